package throttle

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// requests is an http.RoundTripper allowing at most rps requests per
// second through to next, with bursts of up to burst requests.
type requests struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	next    http.RoundTripper
	logFn   func() *slog.Logger
}

// NewRoundTripper returns an http.RoundTripper that delays requests
// exceeding rps. logFn is resolved per request; when it returns nil the
// exhaustion and wait logs are skipped.
func NewRoundTripper(rps, burst int, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}
	if next == nil {
		next = http.DefaultTransport
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	return &requests{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		next:    next,
		logFn:   logFn,
	}, nil
}

func (t *requests) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	logger := t.logFn()
	if logger != nil && t.limiter.Tokens() < 1 {
		start := time.Now()
		logger.Info("request throttled", "rate", t.rps, "burst", t.burst, "host", r.URL.Host)
		defer func() {
			logger.Info("request released", "waited", time.Since(start).String(), "host", r.URL.Host)
		}()
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}
