package crypto

import (
	"fmt"
	"math"
	"sync"
	"time"

	apperrors "github.com/skylock/skylock/internal/errors"
)

// maxFailuresPerWindow and failureWindow bound how many wrong-password
// attempts a single identifier (backup ID, config name, whatever the
// caller keys on) may make before each further failure imposes a growing
// backoff.
const (
	maxFailuresPerWindow = 5
	failureWindow        = time.Hour
)

// AttemptLimiter throttles password/KDF attempts per identifier: once
// maxFailuresPerWindow failures land within failureWindow, each further
// attempt must wait an exponentially growing backoff (2^n seconds) before
// the limiter will allow it again. It exists because Argon2id's cost
// only slows a single guess — without this, a scripted loop could still
// burn through a wordlist at the KDF's own throughput.
type AttemptLimiter struct {
	mu    sync.Mutex
	state map[string]*attemptState
}

type attemptState struct {
	failures   int
	windowFrom time.Time
	blockedUntil time.Time
}

// NewAttemptLimiter returns an empty limiter.
func NewAttemptLimiter() *AttemptLimiter {
	return &AttemptLimiter{state: make(map[string]*attemptState)}
}

// Check returns an error if identifier is currently blocked by backoff.
// Callers must call Check before attempting a KDF derivation and must
// call RecordFailure/RecordSuccess afterward to update state.
func (l *AttemptLimiter) Check(identifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.state[identifier]
	if !ok {
		return nil
	}
	now := time.Now()
	if now.Before(st.blockedUntil) {
		return apperrors.NewCryptoError(apperrors.ReasonRateLimited,
			fmt.Errorf("too many attempts, retry after %s", st.blockedUntil.Format(time.RFC3339)))
	}
	return nil
}

// RecordFailure registers a failed attempt for identifier. Once the
// failure count within the rolling window reaches maxFailuresPerWindow,
// every failure beyond that doubles the backoff delay (2^n seconds,
// n = failures - maxFailuresPerWindow).
func (l *AttemptLimiter) RecordFailure(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	st, ok := l.state[identifier]
	if !ok || now.Sub(st.windowFrom) > failureWindow {
		st = &attemptState{windowFrom: now}
		l.state[identifier] = st
	}
	st.failures++
	if st.failures > maxFailuresPerWindow {
		backoff := time.Duration(math.Pow(2, float64(st.failures-maxFailuresPerWindow))) * time.Second
		st.blockedUntil = now.Add(backoff)
	}
}

// RecordSuccess clears an identifier's failure history.
func (l *AttemptLimiter) RecordSuccess(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.state, identifier)
}
