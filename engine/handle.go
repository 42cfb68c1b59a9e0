package engine

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"

	"github.com/adamwoolhether/httpxfer/throttle"
)

// DefaultBufferSize is the largest chunk handed to a single Write
// callback, and the largest buffer offered to a single Read callback.
const DefaultBufferSize = 16 << 10

// Handle is one configured transfer. It is not safe for concurrent use
// and may be performed only once.
type Handle struct {
	id      string
	handler Handler
	logger  *slog.Logger

	// request
	url      *url.URL
	method   string
	header   []string
	fields   []byte
	hasBody  bool
	upload   bool
	resume   int64
	fileSize int64

	// engine
	bufferSize      int
	recvSpeed       int64
	sendSpeed       int64
	progress        bool
	timeout         time.Duration
	noFollow        bool
	failOnError     bool
	userAgent       string
	transport       http.RoundTripper
	throttleRPS     int
	throttleBurst   int
	maxPauseRetries int
	pauseBackoff    time.Duration

	performed atomic.Bool
	cbMu      sync.Mutex
	cbErr     *CallbackError

	// response
	statusCode    int
	respHeader    http.Header
	contentLength int64
	effectiveURL  string
	errorBody     []byte
}

// New creates a Handle delivering transfer data to h.
func New(h Handler) *Handle {
	return &Handle{
		id:              uuid.New().String(),
		handler:         h,
		logger:          slog.Default(),
		method:          http.MethodGet,
		fileSize:        -1,
		bufferSize:      DefaultBufferSize,
		maxPauseRetries: 5,
		pauseBackoff:    50 * time.Millisecond,
		contentLength:   -1,
	}
}

// ID returns the unique identifier of the transfer.
func (h *Handle) ID() string { return h.id }

// Handler returns the callback target the Handle was created with.
func (h *Handle) Handler() Handler { return h.handler }

// SetLogger replaces the logger. A nil logger is ignored.
func (h *Handle) SetLogger(l *slog.Logger) {
	if l != nil {
		h.logger = l
	}
}

// SetURL sets the absolute http or https URL to transfer.
func (h *Handle) SetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: parsing url: %w", ErrInvalidOption, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url scheme %q", ErrInvalidOption, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url %q has no host", ErrInvalidOption, raw)
	}

	h.url = u
	return nil
}

// SetMethod selects GET, POST or PUT. PUT reads the request body from the
// Handler's Read callback.
func (h *Handle) SetMethod(method string) error {
	switch method {
	case http.MethodGet, http.MethodPost:
		h.upload = false
	case http.MethodPut:
		h.upload = true
	default:
		return fmt.Errorf("%w: %q", ErrUnsupported, method)
	}

	h.method = method
	return nil
}

// AppendHeader adds one request header line. Invalid names or values are
// rejected here rather than at transfer time.
func (h *Handle) AppendHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("%w: header name %q", ErrInvalidOption, name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("%w: header %s value %q", ErrInvalidOption, name, value)
	}

	h.header = append(h.header, name+": "+value)
	return nil
}

// SetPostFields copies data to be sent as the POST body. Empty data sends
// no body at all.
func (h *Handle) SetPostFields(data []byte) {
	h.fields = append([]byte(nil), data...)
	h.hasBody = len(data) > 0
}

// SetResumeFrom sets the byte offset a download or upload continues from.
func (h *Handle) SetResumeFrom(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("%w: resume offset %d is negative", ErrInvalidOption, offset)
	}
	h.resume = offset
	return nil
}

// SetInFileSize announces the full size of the upload source.
func (h *Handle) SetInFileSize(size int64) error {
	if size < 0 {
		return fmt.Errorf("%w: file size %d is negative", ErrInvalidOption, size)
	}
	h.fileSize = size
	return nil
}

// SetMaxRecvSpeed caps the average download rate in bytes per second.
// Zero removes the cap.
func (h *Handle) SetMaxRecvSpeed(bps int64) error {
	if bps < 0 {
		return fmt.Errorf("%w: download speed %d is negative", ErrInvalidOption, bps)
	}
	h.recvSpeed = bps
	return nil
}

// SetMaxSendSpeed caps the average upload rate in bytes per second.
// Zero removes the cap.
func (h *Handle) SetMaxSendSpeed(bps int64) error {
	if bps < 0 {
		return fmt.Errorf("%w: upload speed %d is negative", ErrInvalidOption, bps)
	}
	h.sendSpeed = bps
	return nil
}

// SetBufferSize sets the chunk size used for both callback directions.
func (h *Handle) SetBufferSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: buffer size %d", ErrInvalidOption, size)
	}
	h.bufferSize = size
	return nil
}

// SetProgress toggles periodic progress logging.
func (h *Handle) SetProgress(on bool) { h.progress = on }

// SetTimeout bounds the whole transfer. Zero means no timeout.
func (h *Handle) SetTimeout(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidOption)
	}
	h.timeout = d
	return nil
}

// SetFollowRedirects toggles following 3xx responses. On by default.
func (h *Handle) SetFollowRedirects(on bool) { h.noFollow = !on }

// SetFailOnError makes a final status of 400 or above fail the transfer
// with ErrHTTPStatus before any body reaches the Handler.
func (h *Handle) SetFailOnError(on bool) { h.failOnError = on }

// SetUserAgent sets the User-Agent header unless one was appended.
func (h *Handle) SetUserAgent(ua string) error {
	if !httpguts.ValidHeaderFieldValue(ua) {
		return fmt.Errorf("%w: user agent %q", ErrInvalidOption, ua)
	}
	h.userAgent = ua
	return nil
}

// SetTransport replaces the round tripper requests go through.
func (h *Handle) SetTransport(rt http.RoundTripper) error {
	if rt == nil {
		return fmt.Errorf("%w: transport must not be nil", ErrInvalidOption)
	}
	h.transport = rt
	return nil
}

// SetThrottle limits request starts through this handle's transport.
func (h *Handle) SetThrottle(rps, burst int) error {
	if rps <= 0 || burst <= 0 {
		return fmt.Errorf("%w: rps[%d] and burst[%d] %w", ErrInvalidOption, rps, burst, throttle.ErrMustNotBeZero)
	}
	h.throttleRPS, h.throttleBurst = rps, burst
	return nil
}

// SetPauseRetries sets how often a pausing Write callback is retried, and
// the base wait between attempts. Attempt n waits n times backoff.
func (h *Handle) SetPauseRetries(n int, backoff time.Duration) error {
	if n < 0 || backoff < 0 {
		return fmt.Errorf("%w: pause retries[%d] backoff[%v]", ErrInvalidOption, n, backoff)
	}
	h.maxPauseRetries, h.pauseBackoff = n, backoff
	return nil
}

// Method reports the configured method.
func (h *Handle) Method() string { return h.method }

// URL reports the configured URL, or "" if none was set.
func (h *Handle) URL() string {
	if h.url == nil {
		return ""
	}
	return h.url.String()
}

// ResponseCode reports the final HTTP status, or 0 before a response.
func (h *Handle) ResponseCode() int { return h.statusCode }

// ContentType reports the Content-Type of the final response.
func (h *Handle) ContentType() string { return h.respHeader.Get("Content-Type") }

// ContentLength reports the announced body length, -1 if unknown.
func (h *Handle) ContentLength() int64 { return h.contentLength }

// EffectiveURL reports the URL of the final response after redirects.
func (h *Handle) EffectiveURL() string { return h.effectiveURL }

// ErrorBody returns the start of the body of a response rejected by
// SetFailOnError.
func (h *Handle) ErrorBody() []byte { return h.errorBody }

// ResponseHeader returns a copy of the final response header.
func (h *Handle) ResponseHeader() http.Header { return h.respHeader.Clone() }
