package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRetryStrategyBackoffSchedule(t *testing.T) {
	r := DefaultRetryStrategy()
	assert.Equal(t, time.Second, r.NextDelay(1))
	assert.Equal(t, 2*time.Second, r.NextDelay(2))
	assert.Equal(t, 4*time.Second, r.NextDelay(3))
	assert.Equal(t, 6, r.MaxRetries)
}

func TestRetryStrategyCapsAtMaxDelay(t *testing.T) {
	r := &RetryStrategy{MaxRetries: 8, InitialDelay: time.Second, MaxDelay: 60 * time.Second, BackoffFactor: 2}
	assert.Equal(t, 60*time.Second, r.NextDelay(7)) // 64s uncapped -> 60s
}

func TestRetryStrategyOutOfRangeAttempt(t *testing.T) {
	r := DefaultRetryStrategy()
	assert.Equal(t, time.Duration(0), r.NextDelay(0))
	assert.Equal(t, time.Duration(0), r.NextDelay(99))
}

func TestShouldRetryRespectsMaxRetries(t *testing.T) {
	r := DefaultRetryStrategy()
	assert.True(t, r.ShouldRetry(1))
	assert.False(t, r.ShouldRetry(6))
}

func TestAdaptiveConcurrencyHalvesAfterThreeConsecutiveErrors(t *testing.T) {
	a := NewAdaptiveConcurrency(8)
	assert.Equal(t, 8, a.Allowed())
	a.RecordError()
	a.RecordError()
	assert.Equal(t, 8, a.Allowed())
	a.RecordError()
	assert.Equal(t, 4, a.Allowed())
}

func TestAdaptiveConcurrencySuccessResetsCounter(t *testing.T) {
	a := NewAdaptiveConcurrency(8)
	a.RecordError()
	a.RecordError()
	a.RecordSuccess()
	a.RecordError()
	a.RecordError()
	assert.Equal(t, 8, a.Allowed()) // never hit 3 consecutive
}

func TestAdaptiveConcurrencyRestoresAfterCooldown(t *testing.T) {
	fixed := time.Now()
	a := NewAdaptiveConcurrency(8)
	a.now = func() time.Time { return fixed }
	a.RecordError()
	a.RecordError()
	a.RecordError()
	assert.Equal(t, 4, a.Allowed())

	a.now = func() time.Time { return fixed.Add(31 * time.Second) }
	assert.Equal(t, 8, a.Allowed())
}

func TestAdaptiveConcurrencyFloorsAtOne(t *testing.T) {
	a := NewAdaptiveConcurrency(2)
	a.RecordError()
	a.RecordError()
	a.RecordError()
	assert.Equal(t, 1, a.Allowed())
}
