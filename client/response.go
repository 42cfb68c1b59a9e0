package client

import (
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/net/http/httpguts"

	"github.com/adamwoolhether/httpxfer/collector"
	"github.com/adamwoolhether/httpxfer/engine"
)

// Status is a validated HTTP status code.
type Status int

// NewStatus validates code, which must lie within 100 to 599.
func NewStatus(code int) (Status, error) {
	if code < 100 || code > 599 {
		return 0, newError(ErrProtocol, "status", fmt.Errorf("status code %d out of range", code))
	}
	return Status(code), nil
}

// Code returns the numeric status code.
func (s Status) Code() int { return int(s) }

// IsSuccess reports a 2xx status.
func (s Status) IsSuccess() bool { return s >= 200 && s < 300 }

func (s Status) String() string {
	if text := http.StatusText(int(s)); text != "" {
		return strconv.Itoa(int(s)) + " " + text
	}
	return strconv.Itoa(int(s))
}

// Response is the outcome of a transfer. Body is nil unless a memory
// collector was used. Aborted is set when the collector's AbortSignal
// cut the transfer short; what arrived until then is kept.
type Response struct {
	Status  Status
	Header  http.Header
	Body    []byte
	Aborted bool
}

func assemble(h *engine.Handle, c *collector.Collector, aborted bool) (*Response, error) {
	code := h.ResponseCode()

	var status Status
	if !aborted || code != 0 {
		var err error
		if status, err = NewStatus(code); err != nil {
			return nil, err
		}
	}

	header := c.Headers()
	if header == nil {
		header = synthesizeHeader(h)
	}

	return &Response{
		Status:  status,
		Header:  header,
		Body:    c.Body(),
		Aborted: aborted,
	}, nil
}

// synthesizeHeader keeps what the engine itself knows about a response
// when the collector did not capture headers.
func synthesizeHeader(h *engine.Handle) http.Header {
	header := make(http.Header)

	if ct := h.ContentType(); ct != "" && httpguts.ValidHeaderFieldValue(ct) {
		header.Set("Content-Type", ct)
	}
	if cl := h.ContentLength(); cl >= 0 {
		header.Set("Content-Length", strconv.FormatInt(cl, 10))
	}

	return header
}
