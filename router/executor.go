package router

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/NebulousLabs/threadgroup"
)

// Executor runs CPU-bound work (chunking, hashing, delta generation) on a
// pool distinct from whatever dispatches I/O, so a long compute task never
// blocks the caller's event loop. Concurrency is bounded by a weighted
// semaphore sized to the configured worker count; lifecycle (graceful
// shutdown, double-stop protection) follows the threadgroup idiom.
type Executor struct {
	sem *semaphore.Weighted
	tg  threadgroup.ThreadGroup
}

// NewExecutor builds an executor with the given worker-pool size. Callers
// normally size this from config.ConcurrencyConfig.WorkerThreads.
func NewExecutor(workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{sem: semaphore.NewWeighted(int64(workers))}
}

// Stop signals in-flight work to wind down and blocks until the executor's
// threadgroup drains.
func (e *Executor) Stop() error {
	return e.tg.Stop()
}

// OffloadCompute runs task on the compute pool and returns its result. The
// work itself runs on a dedicated goroutine gated by the semaphore, so a
// caller awaiting the result does not tie up whichever goroutine is
// servicing I/O dispatch.
func OffloadCompute[T any](ctx context.Context, e *Executor, task func() (T, error)) (T, error) {
	var zero T
	if err := e.tg.Add(); err != nil {
		return zero, err
	}
	defer e.tg.Done()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer e.sem.Release(1)

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := task()
		done <- outcome{val: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case o := <-done:
		return o.val, o.err
	}
}

// OffloadParallel runs task over items on the compute pool, bounded by the
// same semaphore, and returns results in input order. The first error
// cancels the remaining work and is returned.
func OffloadParallel[T, R any](ctx context.Context, e *Executor, items []T, task func(T) (R, error)) ([]R, error) {
	if err := e.tg.Add(); err != nil {
		return nil, err
	}
	defer e.tg.Done()

	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := e.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer e.sem.Release(1)
			r, err := task(item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
