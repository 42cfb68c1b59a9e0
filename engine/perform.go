package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adamwoolhether/httpxfer/throttle"
)

// maxErrorBody caps how much of a rejected response body is kept.
const maxErrorBody = 4 << 10

var defaultTransport http.RoundTripper = func() http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DisableCompression = true
	return t
}()

// Perform runs the transfer, blocking until the response body has been
// handed to the Handler, a callback stopped it, or ctx ends.
func (h *Handle) Perform(ctx context.Context) error {
	if !h.performed.CompareAndSwap(false, true) {
		return ErrAlreadyPerformed
	}
	if h.url == nil {
		return ErrNoURL
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	logger := h.logger.With("transfer_id", h.id, "method", h.method, "url", h.url.Redacted())
	logger.Debug("transfer starting")

	req, err := h.newRequest(ctx)
	if err != nil {
		return err
	}

	client, err := h.httpClient()
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		if cbErr := h.callbackErr(); cbErr != nil {
			return cbErr
		}
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debug("closing response body", "error", err)
		}
	}()

	if cbErr := h.callbackErr(); cbErr != nil {
		return cbErr
	}

	h.statusCode = resp.StatusCode
	h.respHeader = resp.Header
	h.contentLength = resp.ContentLength
	h.effectiveURL = resp.Request.URL.String()

	if err := h.emitHeaders(resp); err != nil {
		return err
	}

	if h.method == http.MethodGet && h.resume > 0 {
		switch resp.StatusCode {
		case http.StatusRequestedRangeNotSatisfiable:
			logger.Debug("nothing left to resume", "offset", h.resume)
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil

		case http.StatusPartialContent:
			if cr := resp.Header.Get("Content-Range"); !strings.HasPrefix(cr, "bytes "+strconv.FormatInt(h.resume, 10)+"-") {
				return fmt.Errorf("%w: content range %q for offset %d", ErrRangeUnsupported, cr, h.resume)
			}

		default:
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return fmt.Errorf("%w: status %d for offset %d", ErrRangeUnsupported, resp.StatusCode, h.resume)
			}
		}
	}

	if h.failOnError && resp.StatusCode >= http.StatusBadRequest {
		h.errorBody, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	if err := h.receive(ctx, resp.Body); err != nil {
		return err
	}

	logger.Debug("transfer finished", "status", resp.StatusCode)

	return nil
}

func (h *Handle) newRequest(ctx context.Context) (*http.Request, error) {
	var (
		body   io.Reader
		length int64
		extra  []string
	)

	switch {
	case h.upload:
		if err := h.skipUploaded(); err != nil {
			return nil, err
		}

		length = -1
		if h.fileSize >= 0 {
			if h.resume > h.fileSize {
				return nil, fmt.Errorf("%w: resume offset %d beyond file size %d", ErrInvalidOption, h.resume, h.fileSize)
			}
			length = h.fileSize - h.resume

			if h.resume > 0 {
				if length == 0 {
					extra = append(extra, fmt.Sprintf("Content-Range: bytes */%d", h.fileSize))
				} else {
					extra = append(extra, fmt.Sprintf("Content-Range: bytes %d-%d/%d", h.resume, h.fileSize-1, h.fileSize))
				}
			}
		}

		send, err := h.limiter(h.sendSpeed)
		if err != nil {
			return nil, err
		}
		prog := newProgress(h.progress, h.logger, "upload", h.id, length)
		body = send.Reader(ctx, &uploadReader{h: h, progress: prog})

		if length == 0 {
			body = http.NoBody
		}

	case h.hasBody:
		send, err := h.limiter(h.sendSpeed)
		if err != nil {
			return nil, err
		}
		length = int64(len(h.fields))
		body = send.Reader(ctx, bytes.NewReader(h.fields))

	default:
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, h.method, h.url.String(), body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.ContentLength = length

	if h.method == http.MethodGet && h.resume > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", h.resume))
	}

	for _, line := range slices.Concat(extra, h.header) {
		name, value, _ := strings.Cut(line, ": ")
		req.Header.Add(name, value)
	}

	if h.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	return req, nil
}

func (h *Handle) httpClient() (*http.Client, error) {
	rt := h.transport
	if rt == nil {
		rt = defaultTransport
	}

	if h.throttleRPS > 0 {
		var err error
		rt, err = throttle.NewRoundTripper(h.throttleRPS, h.throttleBurst, func() *slog.Logger { return h.logger }, rt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
		}
	}

	c := &http.Client{Transport: rt}
	if h.noFollow {
		c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return c, nil
}

func (h *Handle) limiter(bps int64) (*throttle.Bytes, error) {
	if bps == 0 {
		return nil, nil
	}

	b, err := throttle.NewBytes(bps, h.bufferSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	return b, nil
}

// skipUploaded consumes the resume offset from the Read callback, the
// way an upload source without seek support is fast-forwarded.
func (h *Handle) skipUploaded() error {
	buf := make([]byte, h.bufferSize)
	for remaining := h.resume; remaining > 0; {
		n, err := h.read(buf[:min(int64(len(buf)), remaining)])
		if err != nil {
			return err
		}
		if n == 0 {
			return &CallbackError{Callback: "read", Err: fmt.Errorf("skipping to offset %d: %w", h.resume, io.ErrUnexpectedEOF)}
		}
		remaining -= int64(n)
	}

	return nil
}

func (h *Handle) read(buf []byte) (int, error) {
	h.cbMu.Lock()
	defer h.cbMu.Unlock()

	n, err := h.handler.Read(buf)
	if err != nil {
		h.logger.Debug("read callback failed", "transfer_id", h.id, "error", err)
		h.cbErr = &CallbackError{Callback: "read", Err: err}
		return 0, h.cbErr
	}

	return n, nil
}

func (h *Handle) callbackErr() *CallbackError {
	h.cbMu.Lock()
	defer h.cbMu.Unlock()
	return h.cbErr
}

// uploadReader pulls the request body from the Read callback.
type uploadReader struct {
	h        *Handle
	progress *progress
}

func (r *uploadReader) Read(p []byte) (int, error) {
	if len(p) > r.h.bufferSize {
		p = p[:r.h.bufferSize]
	}

	n, err := r.h.read(p)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	r.progress.add(n)

	return n, nil
}

func (h *Handle) emitHeaders(resp *http.Response) error {
	h.cbMu.Lock()
	defer h.cbMu.Unlock()

	emit := func(line string) error {
		if !h.handler.Header([]byte(line)) {
			return fmt.Errorf("%w: at %q", ErrHeaderRejected, strings.TrimSpace(line))
		}
		return nil
	}

	if err := emit(resp.Proto + " " + resp.Status + "\r\n"); err != nil {
		return err
	}

	for _, name := range slices.Sorted(maps.Keys(resp.Header)) {
		for _, v := range resp.Header[name] {
			if err := emit(name + ": " + v + "\r\n"); err != nil {
				return err
			}
		}
	}

	return emit("\r\n")
}

func (h *Handle) receive(ctx context.Context, body io.Reader) error {
	recv, err := h.limiter(h.recvSpeed)
	if err != nil {
		return err
	}
	body = recv.Reader(ctx, body)

	prog := newProgress(h.progress, h.logger, "download", h.id, h.contentLength)
	buf := make([]byte, h.bufferSize)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			if derr := h.deliver(ctx, buf[:n]); derr != nil {
				return derr
			}
			prog.add(n)
		}

		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("reading response body: %w", err)
		}
	}
}

// deliver hands data to the Write callback, retrying the unconsumed rest
// while the callback pauses.
func (h *Handle) deliver(ctx context.Context, data []byte) error {
	var pauses int

	for {
		h.cbMu.Lock()
		n, err := h.handler.Write(data)
		h.cbMu.Unlock()

		switch {
		case err == nil:
			if n < len(data) {
				return fmt.Errorf("%w: %d of %d bytes", ErrPartialWrite, n, len(data))
			}
			return nil

		case errors.Is(err, ErrPause):
			data = data[min(max(n, 0), len(data)):]
			if len(data) == 0 {
				return nil
			}
			pauses++
			if pauses > h.maxPauseRetries {
				h.logger.Debug("write callback kept pausing", "transfer_id", h.id, "pauses", pauses, "error", err)
				return &CallbackError{Callback: "write", Pauses: pauses, Err: err}
			}

			t := time.NewTimer(time.Duration(pauses) * h.pauseBackoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("waiting out pause: %w", ctx.Err())
			case <-t.C:
			}

		default:
			h.logger.Debug("write callback failed", "transfer_id", h.id, "error", err)
			return &CallbackError{Callback: "write", Err: err}
		}
	}
}
