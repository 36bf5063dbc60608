package engine

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Throttle limits upload bandwidth to a configurable bytes/sec ceiling,
// the same token-bucket primitive the teacher's HTTP rate limiter builds
// on, keyed by byte count instead of request count. A zero-value
// maxBytesPerSec disables throttling entirely (unlimited burst).
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle returns a Throttle capped at maxBytesPerSec, or an
// unthrottled Throttle if maxBytesPerSec <= 0. The burst size matches the
// rate so one call never has to wait more than ~1s for a full-rate
// allowance.
func NewThrottle(maxBytesPerSec int) *Throttle {
	if maxBytesPerSec <= 0 {
		return &Throttle{}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(maxBytesPerSec), maxBytesPerSec)}
}

// Wait blocks until n bytes' worth of budget is available. Restore never
// throttles, so callers on that path simply never construct a
// Throttle for it.
func (t *Throttle) Wait(ctx context.Context, n int) error {
	if t == nil || t.limiter == nil || n <= 0 {
		return nil
	}
	burst := t.limiter.Burst()
	for n > burst {
		if err := t.limiter.WaitN(ctx, burst); err != nil {
			return err
		}
		n -= burst
	}
	if n > 0 {
		return t.limiter.WaitN(ctx, n)
	}
	return nil
}

// Reader wraps r so every Read call is throttled before the bytes are
// handed to the caller, letting the upload stage stream through the
// limiter without buffering a whole chunk first.
func (t *Throttle) Reader(ctx context.Context, r io.Reader) io.Reader {
	if t == nil || t.limiter == nil {
		return r
	}
	return &throttledReader{ctx: ctx, r: r, t: t}
}

type throttledReader struct {
	ctx context.Context
	r   io.Reader
	t   *Throttle
}

func (tr *throttledReader) Read(p []byte) (int, error) {
	n, err := tr.r.Read(p)
	if n > 0 {
		if werr := tr.t.Wait(tr.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
