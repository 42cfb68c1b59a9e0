package actor

import "context"

// Result tracks one submitted job.
type Result struct {
	id     string
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// ID returns the ID of the job.
func (r *Result) ID() string { return r.id }

// Done returns a channel closed when the job completes.
func (r *Result) Done() <-chan struct{} { return r.done }

// Err blocks until the job completes and returns its error.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Cancel cancels the job's context.
func (r *Result) Cancel() {
	r.cancel()
}
