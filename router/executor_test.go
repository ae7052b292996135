package router

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOffloadComputeReturnsResult(t *testing.T) {
	e := NewExecutor(2)
	v, err := OffloadCompute(context.Background(), e, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestOffloadComputePropagatesError(t *testing.T) {
	e := NewExecutor(2)
	wantErr := errors.New("boom")
	_, err := OffloadCompute(context.Background(), e, func() (int, error) {
		return 0, wantErr
	})
	require.ErrorIs(t, err, wantErr)
}

func TestOffloadComputeRespectsContextCancellation(t *testing.T) {
	e := NewExecutor(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := OffloadCompute(ctx, e, func() (int, error) {
		time.Sleep(time.Second)
		return 1, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestOffloadParallelPreservesOrder(t *testing.T) {
	e := NewExecutor(4)
	items := []int{0, 1, 2, 3, 4, 5, 6, 7}
	results, err := OffloadParallel(context.Background(), e, items, func(i int) (int, error) {
		return i * i, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49}, results)
}

func TestOffloadParallelPropagatesFirstError(t *testing.T) {
	e := NewExecutor(4)
	items := []int{1, 2, 3}
	wantErr := errors.New("item 2 failed")
	_, err := OffloadParallel(context.Background(), e, items, func(i int) (int, error) {
		if i == 2 {
			return 0, wantErr
		}
		return i, nil
	})
	require.ErrorIs(t, err, wantErr)
}

// a 2-second CPU task submitted via OffloadCompute must not starve a
// 100ms heartbeat running independently — at least 15 ticks must land
// during the task's lifetime.
func TestOffloadComputeDoesNotStarveHeartbeat(t *testing.T) {
	e := NewExecutor(4)
	var ticks int64
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				atomic.AddInt64(&ticks, 1)
			case <-stop:
				return
			}
		}
	}()

	_, err := OffloadCompute(context.Background(), e, func() (int, error) {
		time.Sleep(2 * time.Second)
		return 1, nil
	})
	close(stop)

	require.NoError(t, err)
	require.GreaterOrEqual(t, atomic.LoadInt64(&ticks), int64(15))
}

func TestExecutorStop(t *testing.T) {
	e := NewExecutor(2)
	_, err := OffloadCompute(context.Background(), e, func() (int, error) {
		return 0, nil
	})
	require.NoError(t, err)
	require.NoError(t, e.Stop())
}
