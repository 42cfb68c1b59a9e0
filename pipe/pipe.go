package pipe

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrFull   = errors.New("pipe full")
	ErrClosed = errors.New("pipe closed")
)

// Pipe is a bounded channel that tolerates sends racing with Close.
type Pipe[T any] struct {
	mu     sync.RWMutex
	ch     chan T
	done   chan struct{}
	once   sync.Once
	closed bool
}

// New creates a Pipe buffering up to size values. A size below one is
// raised to one.
func New[T any](size int) *Pipe[T] {
	if size < 1 {
		size = 1
	}

	return &Pipe[T]{
		ch:   make(chan T, size),
		done: make(chan struct{}),
	}
}

// C returns the receive side of the pipe. It is closed by Close.
func (p *Pipe[T]) C() <-chan T { return p.ch }

// TrySend delivers v without waiting.
func (p *Pipe[T]) TrySend(v T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.ch <- v:
		return nil
	default:
		return ErrFull
	}
}

// SendTimeout delivers v, waiting at most d for buffer space.
// It returns early with ErrClosed if the pipe is closed meanwhile.
func (p *Pipe[T]) SendTimeout(v T, d time.Duration) error {
	if d <= 0 {
		return p.TrySend(v)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case p.ch <- v:
		return nil
	case <-p.done:
		return ErrClosed
	case <-timer.C:
		return ErrFull
	}
}

// Close closes the receive channel. Pending and later sends fail with
// ErrClosed. Close is idempotent.
func (p *Pipe[T]) Close() {
	p.once.Do(func() {
		close(p.done)

		p.mu.Lock()
		defer p.mu.Unlock()

		p.closed = true
		close(p.ch)
	})
}

// Len reports the number of buffered values.
func (p *Pipe[T]) Len() int { return len(p.ch) }
