package throttle

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/time/rate"
)

// Bytes caps a byte stream at a steady number of bytes per second.
// A nil *Bytes imposes no limit.
type Bytes struct {
	limiter *rate.Limiter
	burst   int
}

// NewBytes returns a limiter admitting bytesPerSec on average and at most
// burst bytes at once. burst is clamped to bytesPerSec so that slow caps
// are not front-loaded with a large initial allowance.
func NewBytes(bytesPerSec int64, burst int) (*Bytes, error) {
	if bytesPerSec <= 0 || burst <= 0 {
		return nil, fmt.Errorf("bytes per second[%d] and burst[%d] %w", bytesPerSec, burst, ErrMustNotBeZero)
	}

	if int64(burst) > bytesPerSec {
		burst = int(bytesPerSec)
	}

	return &Bytes{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		burst:   burst,
	}, nil
}

// Burst reports the largest amount admitted by a single token grab.
// Callers size their reads by it. A nil limiter reports 0.
func (b *Bytes) Burst() int {
	if b == nil {
		return 0
	}
	return b.burst
}

// Wait blocks until n bytes may pass. Amounts above the burst are taken
// in burst-sized steps.
func (b *Bytes) Wait(ctx context.Context, n int) error {
	if b == nil {
		return nil
	}

	for n > 0 {
		step := min(n, b.burst)
		if err := b.limiter.WaitN(ctx, step); err != nil {
			return fmt.Errorf("%w: %w", ErrWaitingFailed, err)
		}
		n -= step
	}

	return nil
}

// Reader paces reads from r. Each Read is capped at the burst size and
// returns only after the bytes it produced were admitted.
func (b *Bytes) Reader(ctx context.Context, r io.Reader) io.Reader {
	if b == nil {
		return r
	}
	return &reader{ctx: ctx, r: r, b: b}
}

type reader struct {
	ctx context.Context
	r   io.Reader
	b   *Bytes
}

func (pr *reader) Read(p []byte) (int, error) {
	if len(p) > pr.b.burst {
		p = p[:pr.b.burst]
	}

	n, err := pr.r.Read(p)
	if n > 0 {
		if werr := pr.b.Wait(pr.ctx, n); werr != nil {
			return n, werr
		}
	}

	return n, err
}
