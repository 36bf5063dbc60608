package crypto

import (
	"testing"
	"time"

	apperrors "github.com/skylock/skylock/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptLimiterAllowsUnderThreshold(t *testing.T) {
	l := NewAttemptLimiter()
	for i := 0; i < maxFailuresPerWindow; i++ {
		require.NoError(t, l.Check("user-1"))
		l.RecordFailure("user-1")
	}
	// Exactly at the threshold, no backoff has been set yet.
	assert.NoError(t, l.Check("user-1"))
}

func TestAttemptLimiterBlocksAfterThreshold(t *testing.T) {
	l := NewAttemptLimiter()
	for i := 0; i < maxFailuresPerWindow+1; i++ {
		l.RecordFailure("user-1")
	}

	err := l.Check("user-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindCrypto, apperrors.KindOf(err))
}

func TestAttemptLimiterSuccessClearsHistory(t *testing.T) {
	l := NewAttemptLimiter()
	for i := 0; i < maxFailuresPerWindow+1; i++ {
		l.RecordFailure("user-1")
	}
	require.Error(t, l.Check("user-1"))

	l.RecordSuccess("user-1")
	assert.NoError(t, l.Check("user-1"))
}

func TestAttemptLimiterIsPerIdentifier(t *testing.T) {
	l := NewAttemptLimiter()
	for i := 0; i < maxFailuresPerWindow+1; i++ {
		l.RecordFailure("user-1")
	}

	assert.Error(t, l.Check("user-1"))
	assert.NoError(t, l.Check("user-2"))
}

func TestAttemptLimiterWindowResetsOldFailures(t *testing.T) {
	l := NewAttemptLimiter()
	l.mu.Lock()
	l.state["user-1"] = &attemptState{
		failures:   maxFailuresPerWindow + 1,
		windowFrom: time.Now().Add(-2 * failureWindow),
		blockedUntil: time.Now().Add(time.Hour),
	}
	l.mu.Unlock()

	// A failure outside the old window starts a fresh window and should
	// not immediately re-trigger the backoff from the stale state.
	l.RecordFailure("user-1")
	l.mu.Lock()
	failures := l.state["user-1"].failures
	l.mu.Unlock()
	assert.Equal(t, 1, failures)
}
