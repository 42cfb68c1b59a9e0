package client

import (
	"errors"
	"fmt"
	"hash"
	"log/slog"
	"math"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httpxfer/engine"
	"github.com/adamwoolhether/httpxfer/throttle"
)

// Option is a functional option for configuring a [Client] via [New] and
// [Prepared.Configure].
type Option func(*options) error
type options struct {
	resume      *BytesOffset
	recvSpeed   *BytesPerSec
	sendSpeed   *BytesPerSec
	fileSize    *FileSize
	bufferSize  int
	progress    bool
	timeout     *time.Duration
	userAgent   string
	noFollow    bool
	rt          http.RoundTripper
	throttle    *[2]int
	failOnError bool
	checksum    *checksumVerifier
	logger      *slog.Logger
	tracer      trace.Tracer
}

// WithResumeFrom continues a download or upload at offset. Downloads ask
// the server for the remaining range; uploads skip offset bytes of the
// collector's file and announce the rest with Content-Range.
func WithResumeFrom(offset BytesOffset) Option {
	return func(o *options) error {
		if offset > math.MaxInt64 {
			return fmt.Errorf("resume offset %d out of range", offset)
		}
		o.resume = &offset
		return nil
	}
}

// WithDownloadSpeed caps the average receive rate. Zero removes the cap.
func WithDownloadSpeed(bps BytesPerSec) Option {
	return func(o *options) error {
		if bps > math.MaxInt64 {
			return fmt.Errorf("download speed %d out of range", bps)
		}
		o.recvSpeed = &bps
		return nil
	}
}

// WithUploadSpeed caps the average send rate. Zero removes the cap.
func WithUploadSpeed(bps BytesPerSec) Option {
	return func(o *options) error {
		if bps > math.MaxInt64 {
			return fmt.Errorf("upload speed %d out of range", bps)
		}
		o.sendSpeed = &bps
		return nil
	}
}

// WithUploadFileSize announces the full size of a PUT source, so that the
// request carries a Content-Length instead of chunked encoding.
func WithUploadFileSize(size FileSize) Option {
	return func(o *options) error {
		if size > math.MaxInt64 {
			return fmt.Errorf("upload file size %d out of range", size)
		}
		o.fileSize = &size
		return nil
	}
}

// WithBufferSize sets the largest chunk handed to the collector at once.
func WithBufferSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.New("buffer size must be greater than zero")
		}
		o.bufferSize = n
		return nil
	}
}

// WithProgress enables transfer progress logging, at most once per second.
func WithProgress() Option {
	return func(o *options) error {
		o.progress = true
		return nil
	}
}

// WithTimeout bounds the whole transfer. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.timeout = &d
		return nil
	}
}

// WithUserAgent sets the User-Agent header unless the request has one.
func WithUserAgent(ua string) Option {
	return func(o *options) error {
		o.userAgent = ua
		return nil
	}
}

// WithNoFollowRedirects returns 3xx responses instead of following them.
func WithNoFollowRedirects() Option {
	return func(o *options) error {
		o.noFollow = true
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting of request starts with
// the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.throttle = &[2]int{rps, burst}
		return nil
	}
}

// WithFailOnError turns a response status of 400 or above into an
// [UnexpectedStatusError]. The body of such a response never reaches the
// collector.
func WithFailOnError() Option {
	return func(o *options) error {
		o.failOnError = true
		return nil
	}
}

// WithChecksum verifies the received data after a complete transfer. h
// is a hash.Hash instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum. File collectors hash the whole file, so
// resumed downloads are covered end to end.
func WithChecksum(h hash.Hash, expected string) Option {
	return func(o *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}
		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}
		o.checksum = &checksumVerifier{hash: h, expected: expected}
		return nil
	}
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTracer records each Perform as a span of tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}

// apply pushes the engine settings onto h.
func (o *options) apply(h *engine.Handle) error {
	if o.logger != nil {
		h.SetLogger(o.logger)
	}

	var errs []error
	if o.resume != nil {
		errs = append(errs, h.SetResumeFrom(int64(*o.resume)))
	}
	if o.recvSpeed != nil {
		errs = append(errs, h.SetMaxRecvSpeed(int64(*o.recvSpeed)))
	}
	if o.sendSpeed != nil {
		errs = append(errs, h.SetMaxSendSpeed(int64(*o.sendSpeed)))
	}
	if o.fileSize != nil {
		errs = append(errs, h.SetInFileSize(int64(*o.fileSize)))
	}
	if o.bufferSize > 0 {
		errs = append(errs, h.SetBufferSize(o.bufferSize))
	}
	if o.timeout != nil {
		errs = append(errs, h.SetTimeout(*o.timeout))
	}
	if o.userAgent != "" {
		errs = append(errs, h.SetUserAgent(o.userAgent))
	}
	if o.rt != nil {
		errs = append(errs, h.SetTransport(o.rt))
	}
	if o.throttle != nil {
		errs = append(errs, h.SetThrottle(o.throttle[0], o.throttle[1]))
	}
	h.SetProgress(o.progress)
	h.SetFollowRedirects(!o.noFollow)
	h.SetFailOnError(o.failOnError)

	return errors.Join(errs...)
}
