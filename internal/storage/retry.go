package storage

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"time"

	"github.com/skylock/skylock/internal/logging"
)

// RetryPolicy mirrors the backup engine's exponential backoff schedule so a
// wire-level hiccup against the storage backend and a hiccup inside the
// upload pipeline are retried the same way.
type RetryPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	BackoffFactor float64
	MaxAttempts  int
}

// DefaultRetryPolicy is base 1s, factor 2, capped at 60s, six attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialDelay:  time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2,
		MaxAttempts:   6,
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

// RetryingBackend composes a Backend with exponential-backoff retry. It
// retries any failure other than context cancellation or a not-exist
// error (os.ErrNotExist) up to Policy.MaxAttempts times.
type RetryingBackend struct {
	Backend
	Policy RetryPolicy
}

// NewRetryingBackend wraps backend with the default retry policy.
func NewRetryingBackend(backend Backend) *RetryingBackend {
	return &RetryingBackend{Backend: backend, Policy: DefaultRetryPolicy()}
}

func (r *RetryingBackend) run(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < r.Policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return err
			}
			lastErr = err
			logging.Warnf("[storage] %s attempt %d/%d failed: %v", op, attempt+1, r.Policy.MaxAttempts, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.Policy.delay(attempt)):
			}
			continue
		}
		return nil
	}
	return lastErr
}

func (r *RetryingBackend) Upload(ctx context.Context, remotePath string, rd io.Reader, sizeHint int64, opts Options) (string, error) {
	var etag string
	var buf []byte
	if seeker, ok := rd.(io.ReadSeeker); ok {
		start, _ := seeker.Seek(0, io.SeekCurrent)
		err := r.run(ctx, "upload:"+remotePath, func() error {
			if _, serr := seeker.Seek(start, io.SeekStart); serr != nil {
				return serr
			}
			var uerr error
			etag, uerr = r.Backend.Upload(ctx, remotePath, rd, sizeHint, opts)
			return uerr
		})
		return etag, err
	}
	// Non-seekable readers can only be attempted once: buffer small payloads,
	// otherwise fall through without retry.
	if sizeHint > 0 && sizeHint <= 32<<20 {
		var err error
		buf, err = io.ReadAll(rd)
		if err != nil {
			return "", err
		}
	}
	if buf != nil {
		err := r.run(ctx, "upload:"+remotePath, func() error {
			var uerr error
			etag, uerr = r.Backend.Upload(ctx, remotePath, byteReader(buf), sizeHint, opts)
			return uerr
		})
		return etag, err
	}
	return r.Backend.Upload(ctx, remotePath, rd, sizeHint, opts)
}

func (r *RetryingBackend) Download(ctx context.Context, remotePath string, w io.Writer, opts Options) error {
	return r.run(ctx, "download:"+remotePath, func() error {
		return r.Backend.Download(ctx, remotePath, w, opts)
	})
}

func (r *RetryingBackend) Exists(ctx context.Context, remotePath string) (bool, error) {
	var exists bool
	err := r.run(ctx, "exists:"+remotePath, func() error {
		var e error
		exists, e = r.Backend.Exists(ctx, remotePath)
		return e
	})
	return exists, err
}

func (r *RetryingBackend) Delete(ctx context.Context, remotePath string) error {
	return r.run(ctx, "delete:"+remotePath, func() error {
		return r.Backend.Delete(ctx, remotePath)
	})
}

func byteReader(b []byte) io.Reader { return &sliceReader{b: b} }

type sliceReader struct {
	b []byte
	i int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.i >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.i:])
	s.i += n
	return n, nil
}
