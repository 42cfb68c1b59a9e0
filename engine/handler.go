package engine

import (
	"errors"
	"fmt"
)

// Handler receives the data of a transfer. The engine never calls two
// methods of one Handler concurrently.
//
// Write must consume all of data or return an error. Read fills buf and
// returns 0 once the upload is exhausted. Header receives one raw line at
// a time, CRLF included, and returns false to stop the transfer.
type Handler interface {
	Write(data []byte) (int, error)
	Read(buf []byte) (int, error)
	Header(line []byte) bool
}

var (
	// ErrPause asks the engine to offer the same bytes again after a short
	// wait. Callbacks wrap it around the failure that caused the pause.
	ErrPause = errors.New("pause transfer")

	// ErrAbort stops the transfer immediately.
	ErrAbort = errors.New("abort transfer")

	ErrAlreadyPerformed = errors.New("handle already performed")
	ErrNoURL            = errors.New("no url set")
	ErrInvalidOption    = errors.New("invalid option")
	ErrUnsupported      = errors.New("unsupported method")
	ErrRangeUnsupported = errors.New("server does not support byte ranges")
	ErrPartialWrite     = errors.New("write callback consumed partial data")
	ErrHeaderRejected   = errors.New("header callback rejected transfer")
	ErrHTTPStatus       = errors.New("http error status")
)

// CallbackError reports a transfer stopped from inside a Handler method.
type CallbackError struct {
	Callback string // "write", "read" or "header"
	Pauses   int    // number of pauses before giving up, write only
	Err      error
}

func (e *CallbackError) Error() string {
	if e.Pauses > 0 {
		return fmt.Sprintf("%s callback after %d pauses: %v", e.Callback, e.Pauses, e.Err)
	}
	return fmt.Sprintf("%s callback: %v", e.Callback, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// Bare reports whether the callback returned ErrAbort or ErrPause without
// an underlying cause.
func (e *CallbackError) Bare() bool {
	return e.Err == ErrAbort || e.Err == ErrPause
}
