// Package sentinel implements the resilience sweep loop: it classifies
// every known chunk by replica count against a redundancy policy and
// drives healing of under-replicated chunks.
package sentinel

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/NebulousLabs/threadgroup"

	"github.com/saworbit/orbit-sub003/bandwidth"
	"github.com/saworbit/orbit-sub003/cid"
	"github.com/saworbit/orbit-sub003/config"
	"github.com/saworbit/orbit-sub003/metrics"
	"github.com/saworbit/orbit-sub003/orbiterrors"
	"github.com/saworbit/orbit-sub003/universe"
)

// Classification buckets a chunk by its current replica count against policy.
type Classification int

const (
	Healthy Classification = iota
	AtRisk
	Lost
)

func (c Classification) String() string {
	switch c {
	case Healthy:
		return "healthy"
	case AtRisk:
		return "at_risk"
	case Lost:
		return "lost"
	default:
		return "unknown"
	}
}

// Classify buckets a replica count against policy's minimum redundancy.
func Classify(locationCount int, policy config.SentinelPolicy) Classification {
	switch {
	case locationCount == 0:
		return Lost
	case locationCount < int(policy.MinRedundancy):
		return AtRisk
	default:
		return Healthy
	}
}

// SweepStats summarizes one pass over the Universe.
type SweepStats struct {
	Healthy        int
	AtRisk         int
	Lost           int
	HealsAttempted int
	HealsSucceeded int
	HealsFailed    int
	Duration       time.Duration
}

// Replicator performs the actual chunk copy for a heal; its implementation
// is the storage/network layer, out of this package's scope.
type Replicator interface {
	Replicate(ctx context.Context, id cid.CID, source universe.Location, destStarID string) (universe.Location, error)
}

// NodeSelector picks a destination star lacking id, excluding stars known
// to already hold a copy.
type NodeSelector interface {
	SelectDestination(id cid.CID, exclude []string) (starID string, ok bool)
}

// Sentinel runs the OODA sweep loop against a Universe.
type Sentinel struct {
	universe   *universe.Universe
	policy     config.SentinelPolicy
	replicator Replicator
	selector   NodeSelector
	limiter    *bandwidth.Limiter
	metrics    *metrics.Metrics
	tg         threadgroup.ThreadGroup
}

// New constructs a Sentinel. policy is validated immediately.
func New(u *universe.Universe, policy config.SentinelPolicy, replicator Replicator, selector NodeSelector) (*Sentinel, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	var limit int64
	if policy.BandwidthLimitBps != nil {
		limit = *policy.BandwidthLimitBps
	}
	return &Sentinel{
		universe:   u,
		policy:     policy,
		replicator: replicator,
		selector:   selector,
		limiter:    bandwidth.NewLimiter(limit),
		metrics:    metrics.Default(),
	}, nil
}

// Sweep performs one classify-and-heal pass over every CID in the
// Universe, bounded to policy.MaxParallelHeals concurrent heals.
func (s *Sentinel) Sweep(ctx context.Context) (SweepStats, error) {
	start := time.Now()
	ids, err := s.universe.AllCIDs()
	if err != nil {
		return SweepStats{}, err
	}

	var stats SweepStats
	var mu sync.Mutex
	sem := semaphore.NewWeighted(int64(s.policy.MaxParallelHeals))
	var wg sync.WaitGroup
	var firstErr error

	for _, id := range ids {
		locs, err := s.universe.FindChunk(id)
		if err != nil {
			return stats, err
		}
		switch Classify(len(locs), s.policy) {
		case Healthy:
			stats.Healthy++
			continue
		case Lost:
			stats.Lost++
			continue
		}
		stats.AtRisk++

		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		id, locs := id, locs
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			s.heal(ctx, id, locs, &stats, &mu)
		}()
	}
	wg.Wait()
	stats.Duration = time.Since(start)
	s.metrics.SetClassification(Healthy.String(), float64(stats.Healthy))
	s.metrics.SetClassification(AtRisk.String(), float64(stats.AtRisk))
	s.metrics.SetClassification(Lost.String(), float64(stats.Lost))
	if firstErr != nil {
		return stats, firstErr
	}
	return stats, nil
}

func (s *Sentinel) heal(ctx context.Context, id cid.CID, locs []universe.Location, stats *SweepStats, mu *sync.Mutex) {
	mu.Lock()
	stats.HealsAttempted++
	mu.Unlock()

	exclude := make([]string, len(locs))
	for i, l := range locs {
		exclude[i] = l.StarID
	}
	dest, ok := s.selector.SelectDestination(id, exclude)
	if !ok {
		mu.Lock()
		stats.HealsFailed++
		mu.Unlock()
		s.metrics.RecordHeal("failed")
		return
	}

	source := locs[0]
	if err := s.limiter.WaitN(ctx, int(source.Length)); err != nil {
		mu.Lock()
		stats.HealsFailed++
		mu.Unlock()
		s.metrics.RecordHeal("failed")
		return
	}

	newLoc, err := s.replicator.Replicate(ctx, id, source, dest)
	if err != nil {
		mu.Lock()
		stats.HealsFailed++
		mu.Unlock()
		s.metrics.RecordHeal("failed")
		return
	}
	if err := s.universe.InsertChunk(id, newLoc); err != nil {
		mu.Lock()
		stats.HealsFailed++
		mu.Unlock()
		s.metrics.RecordHeal("failed")
		return
	}
	mu.Lock()
	stats.HealsSucceeded++
	mu.Unlock()
	s.metrics.RecordHeal("succeeded")
}

// Run ticks Sweep every policy.ScanIntervalSecs until ctx is cancelled or
// Stop is called, invoking onSweep (if non-nil) with each pass's stats.
func (s *Sentinel) Run(ctx context.Context, onSweep func(SweepStats)) error {
	if err := s.tg.Add(); err != nil {
		return orbiterrors.Wrap(orbiterrors.Cancelled, "sentinel: run", err)
	}
	defer s.tg.Done()

	interval := time.Duration(s.policy.ScanIntervalSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.tg.StopChan():
			return nil
		case <-ticker.C:
			stats, err := s.Sweep(ctx)
			if err != nil {
				return err
			}
			if onSweep != nil {
				onSweep(stats)
			}
		}
	}
}

// Stop signals Run to exit and waits for in-flight sweeps to finish.
func (s *Sentinel) Stop() error {
	return s.tg.Stop()
}
