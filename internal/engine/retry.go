// Package engine implements the direct-upload backup pipeline: scanning
// source paths, classifying changes, and running each included file
// through hash/compress/encrypt/throttle/upload/record stages across a
// pool of worker goroutines.
package engine

import (
	"math"
	"sync"
	"time"
)

// RetryStrategy is the exponential backoff schedule for transient
// storage-backend errors, adapted from the teacher's scheduler package to
// the backup pipeline's own failure semantics: base 1s, factor 2, capped
// at 60s, at most 6 attempts.
type RetryStrategy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryStrategy is the pipeline's upload/download retry schedule.
func DefaultRetryStrategy() *RetryStrategy {
	return &RetryStrategy{
		MaxRetries:    6,
		InitialDelay:  time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
	}
}

// NextDelay returns the backoff before retry attempt (1-indexed).
func (r *RetryStrategy) NextDelay(attempt int) time.Duration {
	if attempt < 1 || attempt > r.MaxRetries {
		return 0
	}
	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	if time.Duration(delay) > r.MaxDelay {
		return r.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether another attempt should be made.
func (r *RetryStrategy) ShouldRetry(attempt int) bool {
	return r != nil && attempt < r.MaxRetries
}

// AdaptiveConcurrency tracks consecutive per-file errors and halves the
// active worker count after three in a row, restoring the original count
// after 30 seconds without a failure. A worker that has taken a file from
// the queue consults Allowed() first; one that finds itself over the
// current limit waits, polling until the limit rises again or the context
// is cancelled.
type AdaptiveConcurrency struct {
	mu              sync.Mutex
	base            int
	current         int
	consecutiveErrs int
	lastError       time.Time
	cooldown        time.Duration
	now             func() time.Time
}

// NewAdaptiveConcurrency starts at workers with the default 30s cooldown.
func NewAdaptiveConcurrency(workers int) *AdaptiveConcurrency {
	return &AdaptiveConcurrency{
		base:     workers,
		current:  workers,
		cooldown: 30 * time.Second,
		now:      time.Now,
	}
}

// Allowed returns the currently permitted concurrency level.
func (a *AdaptiveConcurrency) Allowed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.maybeRestoreLocked()
	return a.current
}

// RecordError registers a per-file failure. On the third consecutive
// failure the allowed concurrency is halved (floor 1).
func (a *AdaptiveConcurrency) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consecutiveErrs++
	a.lastError = a.now()
	if a.consecutiveErrs >= 3 {
		halved := a.current / 2
		if halved < 1 {
			halved = 1
		}
		a.current = halved
		a.consecutiveErrs = 0
	}
}

// RecordSuccess clears the consecutive-error counter. The concurrency
// level itself only recovers after cooldown has elapsed without any
// error, checked lazily in Allowed.
func (a *AdaptiveConcurrency) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consecutiveErrs = 0
}

func (a *AdaptiveConcurrency) maybeRestoreLocked() {
	if a.current >= a.base {
		return
	}
	if a.lastError.IsZero() || a.now().Sub(a.lastError) >= a.cooldown {
		a.current = a.base
	}
}
