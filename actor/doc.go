// Package actor runs transfers on background goroutines with bounded
// concurrency, so that many callers can share one executor:
//
//	a, err := actor.New(actor.WithWorkers(4))
//	...
//	res := a.Submit(ctx, handle)
//	if err := res.Err(); err != nil { ... }
//
// [Actor.Send] is the blocking form used by non-blocking clients: it
// hands the transfer to a worker and waits for the performed handle.
// [Actor.Wait] joins everything submitted so far and returns all of
// their errors.
package actor
