package event

import (
	"fmt"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// requestName matches request event names and captures the parts of the
// will/did suffix.
var requestName = regexp.MustCompile(`^([^.])([^.]*)Request(\..+)?$`)

// RequestSuffix derives the will/did suffix from a request name:
// "saveRequest" yields "Save", "doItRequest.now" yields "DoIt.now".
func RequestSuffix(name string) (string, bool) {
	m := requestName.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return cases.Upper(language.Und).String(m[1]) + m[2] + m[3], true
}

// pendingRequest is the state of one PublishAndGatherReplies call.
type pendingRequest struct {
	name    string
	suffix  string
	sender  string
	timeout time.Duration
	result  *Future[[]Reply]

	mu            sync.Mutex
	awaiting      []string
	replies       []Reply
	cycleFinished bool
	finished      bool
	cancelTimer   func()
	will          Subscription
	did           Subscription
}

// PublishAndGatherReplies publishes a request and gathers did replies.
//
// Collaborators that need time answer the request with "will<Suffix>" and
// later publish "did<Suffix>"; synchronous collaborators publish only the did.
// The future resolves with every did reply once no will is outstanding, or is
// rejected with a *TimeoutError and the replies gathered so far.
func (b *bus) PublishAndGatherReplies(name string, payload any, opts ...PublishOption) (*Future[[]Reply], error) {
	suffix, ok := RequestSuffix(name)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidRequestName, "%q", name)
	}
	snapshot, err := NewPayload(payload)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	options := PublishOptions{DeliverToSender: true, PendingDidTimeout: b.pendingDidTimeout}
	b.mu.Unlock()
	for _, opt := range opts {
		opt(&options)
	}

	req := &pendingRequest{
		name:    name,
		suffix:  suffix,
		sender:  options.Sender,
		timeout: options.PendingDidTimeout,
		result:  newFuture[[]Reply](),
	}

	collector := WithSubscriberID(options.Sender)
	if req.will, err = b.SubscribeFunc("will"+suffix, req.onWill, collector); err != nil {
		return nil, err
	}
	if req.did, err = b.SubscribeFunc("did"+suffix, req.onDid, collector); err != nil {
		req.will.Unsubscribe()
		return nil, err
	}

	if req.timeout > 0 {
		cancel := b.host.AfterFunc(req.timeout, func() { b.expire(req, snapshot) })
		req.mu.Lock()
		req.cancelTimer = cancel
		req.mu.Unlock()
	}

	published, err := b.Publish(name, snapshot,
		WithSender(options.Sender),
		WithDeliverToSender(options.DeliverToSender),
		WithPendingDidTimeout(options.PendingDidTimeout),
	)
	if err != nil {
		req.finish(nil)
		req.will.Unsubscribe()
		return nil, err
	}

	published.Then(func(struct{}, error) {
		req.will.Unsubscribe()

		req.mu.Lock()
		done := len(req.awaiting) == 0
		if !done {
			req.cycleFinished = true
		}
		req.mu.Unlock()

		if done {
			req.finish(nil)
		}
	})

	return req.result, nil
}

// onWill records a collaborator that promised a did reply.
func (r *pendingRequest) onWill(_ *Payload, meta Meta) error {
	if meta.Sender == "" {
		return errors.Wrapf(ErrMissingSender, "%s", meta.Name)
	}
	r.mu.Lock()
	r.awaiting = append(r.awaiting, meta.Sender)
	r.mu.Unlock()
	return nil
}

// onDid collects a reply. One did satisfies every will of its sender.
func (r *pendingRequest) onDid(payload *Payload, meta Meta) error {
	r.mu.Lock()
	r.replies = append(r.replies, Reply{Event: payload, Meta: meta})
	r.awaiting = slices.DeleteFunc(r.awaiting, func(s string) bool {
		return s == meta.Sender
	})
	done := len(r.awaiting) == 0 && r.cycleFinished
	r.mu.Unlock()

	if done {
		r.finish(nil)
	}
	return nil
}

// expire fails the request if wills are still outstanding when the timer fires.
func (b *bus) expire(r *pendingRequest, snapshot *Payload) {
	r.mu.Lock()
	if r.finished || len(r.awaiting) == 0 {
		r.mu.Unlock()
		return
	}
	pending := slices.Clone(r.awaiting)
	r.mu.Unlock()

	timeoutErr := &TimeoutError{
		Request: r.name,
		Did:     "did" + r.suffix,
		Timeout: r.timeout,
		Pending: pending,
	}
	b.report(ErrorReport{
		Message: fmt.Sprintf("Timeout while waiting for pending did%s on %s.", r.suffix, r.name),
		Err:     timeoutErr,
		Event:   snapshot,
		Meta: Meta{
			Name:      r.name,
			Sender:    r.sender,
			Initiator: r.sender,
			CycleID:   -1,
		},
		Pending: pending,
		Timeout: r.timeout,
	})
	r.finish(timeoutErr)
}

// finish stops the timer, removes the did collector and settles the result.
func (r *pendingRequest) finish(err error) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	cancel := r.cancelTimer
	replies := slices.Clone(r.replies)
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.did.Unsubscribe()

	if replies == nil {
		replies = []Reply{}
	}
	if err != nil {
		r.result.reject(replies, err)
		return
	}
	r.result.resolve(replies)
}
