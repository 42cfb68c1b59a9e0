package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adamwoolhether/httpxfer/engine"
)

// Option configures an Actor.
type Option func(*Actor) error

// WithWorkers caps how many jobs run at once. n <= 0 means unlimited.
func WithWorkers(n int) Option {
	return func(a *Actor) error {
		if n > 0 {
			a.sem = make(chan struct{}, n)
		} else {
			a.sem = nil
		}
		return nil
	}
}

// WithLogger sets the logger for job lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(a *Actor) error {
		if l == nil {
			return errors.New("logger must not be nil")
		}
		a.logger = l
		return nil
	}
}

// Actor executes jobs on worker goroutines. It is safe for concurrent
// use and is shared by pointer.
type Actor struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      chan struct{}
	shutdown atomic.Bool
	errs     []error
	running  map[string]context.CancelFunc
	logger   *slog.Logger
}

// New creates an Actor. Without WithWorkers concurrency is unlimited.
func New(opts ...Option) (*Actor, error) {
	a := &Actor{
		running: make(map[string]context.CancelFunc),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	return a, nil
}

// Submit starts job on a worker goroutine and returns a Result tracking
// it. A job whose ID is already running is rejected with
// ErrAlreadyRunning. Failures are also kept for Wait.
func (a *Actor) Submit(ctx context.Context, job Job) *Result {
	return a.submit(ctx, job, true)
}

// Send performs h on a worker and blocks until it completes, returning
// the performed handle. The error goes to the caller only; Wait does not
// report it.
func (a *Actor) Send(ctx context.Context, h *engine.Handle) (*engine.Handle, error) {
	if h == nil {
		return nil, ErrNilJob
	}

	if err := a.submit(ctx, h, false).Err(); err != nil {
		return nil, err
	}

	return h, nil
}

func (a *Actor) submit(ctx context.Context, job Job, keep bool) *Result {
	if job == nil {
		return a.failed("", ErrNilJob, keep)
	}

	id := job.ID()
	ctx, cancel := context.WithCancel(ctx)
	r := &Result{
		id:     id,
		done:   make(chan struct{}),
		cancel: cancel,
	}

	a.mu.Lock()
	if a.shutdown.Load() {
		a.mu.Unlock()
		cancel()
		return a.failed(id, ErrShutdown, keep)
	}
	if _, ok := a.running[id]; ok {
		a.mu.Unlock()
		cancel()
		return a.failed(id, fmt.Errorf("%w: %s", ErrAlreadyRunning, id), keep)
	}
	a.running[id] = cancel
	a.wg.Add(1)
	a.mu.Unlock()

	record := func(err error) {
		r.err = err
		if keep {
			a.recordErr(err)
		}
	}

	go func() {
		defer func() {
			cancel()
			a.mu.Lock()
			delete(a.running, id)
			a.mu.Unlock()
			close(r.done)
			a.wg.Done()
		}()

		if a.sem != nil {
			select {
			case a.sem <- struct{}{}:
				defer func() {
					<-a.sem
				}()
			case <-ctx.Done():
				record(ctx.Err())
				return
			}
		}

		if a.shutdown.Load() {
			record(ErrShutdown)
			return
		}

		start := time.Now()
		a.logger.Debug("job started", "id", id)

		if err := job.Perform(ctx); err != nil {
			a.logger.Debug("job failed", "id", id, "elapsed", time.Since(start), "error", err)
			record(err)
			return
		}

		a.logger.Debug("job finished", "id", id, "elapsed", time.Since(start))
	}()

	return r
}

// Cancel cancels the running job with the given ID. It reports whether
// such a job was found.
func (a *Actor) Cancel(id string) bool {
	a.mu.Lock()
	cancel, ok := a.running[id]
	a.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Running reports how many submitted jobs have not finished.
func (a *Actor) Running() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.running)
}

// Wait blocks until all submitted jobs complete and returns the errors
// of jobs started with Submit, joined. The collected errors are cleared,
// so a long-lived Actor may be waited on repeatedly. Wait must not race
// with Submit or Send: start it once no more jobs are being added.
func (a *Actor) Wait() error {
	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	err := errors.Join(a.errs...)
	a.errs = nil
	return err
}

// Shutdown rejects new submissions and queued jobs that have not started.
// Running jobs finish normally.
func (a *Actor) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdown.Store(true)
}

func (a *Actor) failed(id string, err error, keep bool) *Result {
	if keep {
		a.recordErr(err)
	}

	done := make(chan struct{})
	close(done)

	return &Result{
		id:     id,
		done:   done,
		err:    err,
		cancel: func() {},
	}
}

func (a *Actor) recordErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs = append(a.errs, err)
}
