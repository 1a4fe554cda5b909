// Package event provides the in-process event bus used by relay collaborators.
//
// Collaborators never call each other directly. They subscribe to topic
// patterns and publish named events carrying JSON payloads; the bus batches
// publishes into cycles, delivers them in specificity order on the host's next
// turn, and settles each publish future once its delivery and any directly
// cascaded deliveries have completed.
//
// # Architecture
//
//	                    ┌──────────────────────────────────────────┐
//	                    │                  Bus                     │
//	                    │  - Subscription store (topic.Index)      │
//	                    │  - Cycle scheduler (host next tick)      │
//	                    │  - Delivery engine (dispatch.Executor)   │
//	                    └──────────────────────────────────────────┘
//	                                      │
//	          ┌───────────────────────────┼───────────────────────────┐
//	          ▼                           ▼                           ▼
//	┌─────────────────┐         ┌─────────────────┐         ┌─────────────────┐
//	│ Request / will  │         │   Inspectors    │         │  Error handler  │
//	│   / did replies │         │  - subscribe    │         │  - subscriber   │
//	│  - timeouts     │         │  - publish ...  │         │    failures     │
//	└─────────────────┘         └─────────────────┘         └─────────────────┘
//
// # Topics
//
// Event names are dot separated. A subscription to "didSave" receives
// "didSave.document"; an empty segment is a wildcard; a dash starts a sub-topic
// so "didNavigate" also receives "didNavigate-popup". See package topic.
//
// # Cycles
//
// Everything published during one host turn is delivered by a single drain on
// the next turn. A publish issued by a subscriber while it is being delivered
// inherits the cycle id of the event being delivered, and the future of the
// triggering publish settles only after that cascade has been delivered too.
//
// # Payloads
//
// Publish snapshots its payload as a JSON document. Subscribers registered
// with clone enabled (the default) receive their own mutable copy; the others
// share one frozen Payload and any write attempt fails with ErrFrozen.
//
// # Requests
//
// PublishAndGatherReplies implements the request/will/did protocol:
//
//	replies, err := bus.PublishAndGatherReplies("saveRequest", nil,
//	    event.WithSender("editor"))
//	replies.Then(func(r []event.Reply, err error) {
//	    // err is a *TimeoutError when a "willSave" sender never sent "didSave"
//	})
//
// # Threading
//
// The bus is driven by a Host (see package loop). Subscribers, inspectors and
// future continuations run on host turns. All Bus methods may be called from
// any goroutine, but the ordering guarantees above hold for calls made from
// host turns.
package event
