package actor

import (
	"context"
	"errors"
)

var (
	ErrShutdown       = errors.New("actor shut down")
	ErrAlreadyRunning = errors.New("transfer already running")
	ErrNilJob         = errors.New("job must not be nil")
)

// Job is a unit of work identified by a unique ID. *engine.Handle is a
// Job.
type Job interface {
	ID() string
	Perform(ctx context.Context) error
}
