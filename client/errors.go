package client

import (
	"errors"
	"fmt"
)

// maxErrBodySize caps the amount of response body kept in an
// UnexpectedStatusError.
const maxErrBodySize = 4 << 10 // 4KB

var (
	// ErrEngine marks failures of the transfer itself: transport errors,
	// cancellation, range errors and callbacks that kept pausing.
	ErrEngine = errors.New("engine failure")
	// ErrIO marks a local file or stream failure reported by a collector.
	ErrIO = errors.New("local i/o failure")
	// ErrProtocol marks a response that could not be interpreted.
	ErrProtocol = errors.New("protocol failure")
	// ErrConfig marks invalid options or request input.
	ErrConfig = errors.New("invalid configuration")
	// ErrUnimplemented marks a method the client does not support.
	ErrUnimplemented = errors.New("unimplemented")
	// ErrPhase marks use of a builder phase that was already consumed.
	ErrPhase = errors.New("builder phase misuse")

	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrChecksumMismatch is returned when the received data does not
	// match the checksum given to [WithChecksum].
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Error classifies a failure under one of the Err* kinds and keeps the
// underlying cause. Both match with errors.Is.
type Error struct {
	Err   error
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Err, e.Cause)
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func newError(kind error, op string, cause error) *Error {
	return &Error{Err: kind, Op: op, Cause: cause}
}

// UnexpectedStatusError is returned by a client built WithFailOnError
// when the server answers with a status of 400 or above.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}
