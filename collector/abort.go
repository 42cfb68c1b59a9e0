package collector

import "sync/atomic"

// AbortSignal is a one-way flag that stops the transfers watching it.
// It is shared by pointer; the zero value is armed. A nil *AbortSignal is
// never aborted.
type AbortSignal struct {
	set atomic.Bool
}

// NewAbortSignal returns an armed signal.
func NewAbortSignal() *AbortSignal {
	return &AbortSignal{}
}

// Abort trips the signal. The next Write or Read callback of every
// collector watching it stops its transfer. There is no reset.
func (a *AbortSignal) Abort() {
	if a == nil {
		return
	}
	a.set.Store(true)
}

// Aborted reports whether Abort was called.
func (a *AbortSignal) Aborted() bool {
	return a != nil && a.set.Load()
}
