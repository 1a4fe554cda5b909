// Package dispatch provides the isolation boundary around event handler calls.
//
// The bus delivers events on a single scheduling turn, one handler after the
// other. Each call goes through an Executor, which recovers panics, records
// timing, and reports the outcome as a Result. A failing handler therefore
// never aborts delivery to the remaining subscribers.
//
// # Usage
//
//	exec := dispatch.NewExecutor(
//	    dispatch.WithPanicHandler(func(v any, stack []byte) {
//	        log.Printf("panic in handler: %v\n%s", v, stack)
//	    }),
//	)
//	result := exec.Execute(func() error {
//	    return handler.HandleEvent(payload, meta)
//	})
//	if !result.IsSuccess() {
//	    // Report result.Error or result.PanicValue
//	}
package dispatch
