package bandwidth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNilLimiterIsUnlimited(t *testing.T) {
	var l *Limiter
	require.NoError(t, l.WaitN(context.Background(), 1<<20))
	require.Equal(t, float64(0), l.Limit())
}

func TestNewLimiterNonPositiveIsUnlimited(t *testing.T) {
	l := NewLimiter(0)
	require.Nil(t, l)
	require.NoError(t, l.WaitN(context.Background(), 100))
}

func TestLimiterThrottles(t *testing.T) {
	l := NewLimiter(1000) // 1000 bytes/sec, 1000-byte burst
	require.Equal(t, float64(1000), l.Limit())

	start := time.Now()
	// First call consumes the full burst instantly.
	require.NoError(t, l.WaitN(context.Background(), 1000))
	require.Less(t, time.Since(start), 200*time.Millisecond)

	// Requesting another chunk beyond the burst must wait for refill.
	start = time.Now()
	require.NoError(t, l.WaitN(context.Background(), 500))
	require.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestLimiterRespectsContextCancellation(t *testing.T) {
	l := NewLimiter(10) // very slow: 10 bytes/sec
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := l.WaitN(ctx, 10000)
	require.Error(t, err)
}
