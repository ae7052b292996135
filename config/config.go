// Package config implements Orbit's validated configuration types:
// ChunkConfig, SentinelPolicy, and ConcurrencyConfig. Every
// constructor validates at construction time and returns a
// *orbiterrors.Error of Kind PolicyViolation on invalid input — nothing in
// this package accepts a zero value silently.
package config

import (
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/saworbit/orbit-sub003/orbiterrors"
)

// ChunkConfig bounds the content-defined chunker.
type ChunkConfig struct {
	Min uint32 `yaml:"min"`
	Avg uint32 `yaml:"avg"`
	Max uint32 `yaml:"max"`
}

// NewChunkConfig validates 0 < min <= avg <= max.
func NewChunkConfig(min, avg, max uint32) (ChunkConfig, error) {
	if min == 0 {
		return ChunkConfig{}, orbiterrors.New(orbiterrors.PolicyViolation, "chunk config: min must be > 0")
	}
	if min > avg {
		return ChunkConfig{}, orbiterrors.New(orbiterrors.PolicyViolation, "chunk config: min must be <= avg")
	}
	if avg > max {
		return ChunkConfig{}, orbiterrors.New(orbiterrors.PolicyViolation, "chunk config: avg must be <= max")
	}
	return ChunkConfig{Min: min, Avg: avg, Max: max}, nil
}

// Standard lane chunk tiers, as consumed by the router's lane table.
var (
	StandardChunkConfig   = mustChunkConfig(16*1024, 64*1024, 256*1024)
	TieredChunkConfig     = mustChunkConfig(256*1024, 1024*1024, 4*1024*1024)
	ExtraLargeChunkConfig = mustChunkConfig(1024*1024, 4*1024*1024, 16*1024*1024)
)

func mustChunkConfig(min, avg, max uint32) ChunkConfig {
	c, err := NewChunkConfig(min, avg, max)
	if err != nil {
		panic(err)
	}
	return c
}

// SentinelPolicy configures the resilience daemon.
type SentinelPolicy struct {
	MinRedundancy     uint8  `yaml:"min_redundancy"`
	MaxParallelHeals  int    `yaml:"max_parallel_heals"`
	ScanIntervalSecs  int64  `yaml:"scan_interval_secs"`
	BandwidthLimitBps *int64 `yaml:"bandwidth_limit_bytes_per_sec,omitempty"`
}

// DefaultSentinelPolicy returns dual redundancy, 10 concurrent heals,
// hourly sweeps, and a 50MB/s healing bandwidth cap.
func DefaultSentinelPolicy() SentinelPolicy {
	limit := int64(50 * 1024 * 1024)
	return SentinelPolicy{
		MinRedundancy:     2,
		MaxParallelHeals:  10,
		ScanIntervalSecs:  3600,
		BandwidthLimitBps: &limit,
	}
}

// NewSentinelPolicy validates min_redundancy >= 1, max_parallel_heals >= 1,
// scan_interval > 0.
func NewSentinelPolicy(minRedundancy uint8, maxParallelHeals int, scanIntervalSecs int64, bandwidthLimitBps *int64) (SentinelPolicy, error) {
	p := SentinelPolicy{
		MinRedundancy:     minRedundancy,
		MaxParallelHeals:  maxParallelHeals,
		ScanIntervalSecs:  scanIntervalSecs,
		BandwidthLimitBps: bandwidthLimitBps,
	}
	return p, p.Validate()
}

// Validate checks the policy's invariants.
func (p SentinelPolicy) Validate() error {
	if p.MinRedundancy < 1 {
		return orbiterrors.New(orbiterrors.PolicyViolation, "sentinel policy: min_redundancy must be >= 1")
	}
	if p.MaxParallelHeals < 1 {
		return orbiterrors.New(orbiterrors.PolicyViolation, "sentinel policy: max_parallel_heals must be >= 1")
	}
	if p.ScanIntervalSecs <= 0 {
		return orbiterrors.New(orbiterrors.PolicyViolation, "sentinel policy: scan_interval_secs must be > 0")
	}
	return nil
}

// ConcurrencyConfig governs the compute-pool executor.
type ConcurrencyConfig struct {
	WorkerThreads int `yaml:"worker_threads"`
}

// NewConcurrencyConfig validates worker_threads >= 1.
func NewConcurrencyConfig(workerThreads int) (ConcurrencyConfig, error) {
	if workerThreads < 1 {
		return ConcurrencyConfig{}, orbiterrors.New(orbiterrors.PolicyViolation, "concurrency config: worker_threads must be >= 1")
	}
	return ConcurrencyConfig{WorkerThreads: workerThreads}, nil
}

// DefaultConcurrencyConfig auto-detects worker count from available CPUs,
// with a floor of 2.
func DefaultConcurrencyConfig() ConcurrencyConfig {
	n := runtime.NumCPU()
	if n < 2 {
		n = 2
	}
	return ConcurrencyConfig{WorkerThreads: n}
}

// fileConfig is the on-disk shape loaded via LoadFile.
type fileConfig struct {
	Chunk       *ChunkConfig       `yaml:"chunk"`
	Sentinel    *SentinelPolicy    `yaml:"sentinel"`
	Concurrency *ConcurrencyConfig `yaml:"concurrency"`
}

// LoadFile reads and validates a YAML configuration file containing any
// combination of chunk/sentinel/concurrency sections. Missing sections fall
// back to their documented defaults.
func LoadFile(path string) (ChunkConfig, SentinelPolicy, ConcurrencyConfig, error) {
	chunk, sentinel, conc := StandardChunkConfig, DefaultSentinelPolicy(), DefaultConcurrencyConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return chunk, sentinel, conc, orbiterrors.Wrap(orbiterrors.IO, "reading config file", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return chunk, sentinel, conc, orbiterrors.Wrap(orbiterrors.Corruption, "parsing config file", err)
	}

	if fc.Chunk != nil {
		chunk, err = NewChunkConfig(fc.Chunk.Min, fc.Chunk.Avg, fc.Chunk.Max)
		if err != nil {
			return chunk, sentinel, conc, err
		}
	}
	if fc.Sentinel != nil {
		sentinel = *fc.Sentinel
		if err := sentinel.Validate(); err != nil {
			return chunk, sentinel, conc, err
		}
	}
	if fc.Concurrency != nil {
		conc, err = NewConcurrencyConfig(fc.Concurrency.WorkerThreads)
		if err != nil {
			return chunk, sentinel, conc, err
		}
	}
	return chunk, sentinel, conc, nil
}
