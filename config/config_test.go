package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saworbit/orbit-sub003/orbiterrors"
)

func TestNewChunkConfigValidation(t *testing.T) {
	_, err := NewChunkConfig(0, 10, 20)
	require.True(t, orbiterrors.Is(err, orbiterrors.PolicyViolation))

	_, err = NewChunkConfig(20, 10, 30)
	require.True(t, orbiterrors.Is(err, orbiterrors.PolicyViolation))

	_, err = NewChunkConfig(10, 30, 20)
	require.True(t, orbiterrors.Is(err, orbiterrors.PolicyViolation))

	c, err := NewChunkConfig(10, 20, 30)
	require.NoError(t, err)
	require.Equal(t, ChunkConfig{10, 20, 30}, c)
}

func TestDefaultSentinelPolicyValid(t *testing.T) {
	require.NoError(t, DefaultSentinelPolicy().Validate())
}

func TestSentinelPolicyValidation(t *testing.T) {
	_, err := NewSentinelPolicy(0, 1, 1, nil)
	require.True(t, orbiterrors.Is(err, orbiterrors.PolicyViolation))
	_, err = NewSentinelPolicy(1, 0, 1, nil)
	require.True(t, orbiterrors.Is(err, orbiterrors.PolicyViolation))
	_, err = NewSentinelPolicy(1, 1, 0, nil)
	require.True(t, orbiterrors.Is(err, orbiterrors.PolicyViolation))
}

func TestConcurrencyConfigValidation(t *testing.T) {
	_, err := NewConcurrencyConfig(0)
	require.True(t, orbiterrors.Is(err, orbiterrors.PolicyViolation))

	c, err := NewConcurrencyConfig(4)
	require.NoError(t, err)
	require.Equal(t, 4, c.WorkerThreads)
}

func TestDefaultConcurrencyConfigFloor(t *testing.T) {
	require.GreaterOrEqual(t, DefaultConcurrencyConfig().WorkerThreads, 2)
}

func TestLoadFileDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orbit.yaml")
	yamlBody := []byte("sentinel:\n  min_redundancy: 3\n  max_parallel_heals: 5\n  scan_interval_secs: 60\n")
	require.NoError(t, os.WriteFile(path, yamlBody, 0o600))

	chunk, sentinel, conc, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, StandardChunkConfig, chunk)
	require.Equal(t, uint8(3), sentinel.MinRedundancy)
	require.Equal(t, DefaultConcurrencyConfig(), conc)
}
