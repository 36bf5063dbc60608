package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleDisabledWhenRateIsZero(t *testing.T) {
	th := NewThrottle(0)
	start := time.Now()
	require.NoError(t, th.Wait(context.Background(), 10<<20))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestThrottleLimitsLargeTransfer(t *testing.T) {
	th := NewThrottle(1000) // 1000 B/s, burst 1000
	start := time.Now()
	require.NoError(t, th.Wait(context.Background(), 2500))
	assert.GreaterOrEqual(t, time.Since(start), 1*time.Second)
}

func TestThrottleReaderStreamsBytes(t *testing.T) {
	th := NewThrottle(0)
	r := th.Reader(context.Background(), strings.NewReader("hello world"))
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(buf[:n]))
}

func TestThrottleWaitRespectsContextCancellation(t *testing.T) {
	th := NewThrottle(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := th.Wait(ctx, 1000)
	assert.Error(t, err)
}
