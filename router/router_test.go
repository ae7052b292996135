package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saworbit/orbit-sub003/config"
)

func TestSelectStrategyBoundaries(t *testing.T) {
	cases := []struct {
		size uint64
		lane Lane
	}{
		{0, Direct},
		{8*kib - 1, Direct},
		{8 * kib, StandardDedup},
		{1*gib - 1, StandardDedup},
		{1 * gib, TieredLarge},
		{100*gib - 1, TieredLarge},
		{100 * gib, TieredExtraLarge},
		{1000 * gib, TieredExtraLarge},
	}
	for _, c := range cases {
		got := SelectStrategy(c.size)
		require.Equalf(t, c.lane, got.Lane, "size %d", c.size)
	}
}

func TestSelectStrategyChunkConfigMatchesLane(t *testing.T) {
	require.Equal(t, config.ChunkConfig{}, SelectStrategy(100).Chunk)
	require.Equal(t, config.StandardChunkConfig, SelectStrategy(1*mib).Chunk)
	require.Equal(t, config.TieredChunkConfig, SelectStrategy(2*gib).Chunk)
	require.Equal(t, config.ExtraLargeChunkConfig, SelectStrategy(200*gib).Chunk)
}

func TestLaneString(t *testing.T) {
	require.Equal(t, "direct", Direct.String())
	require.Equal(t, "standard", StandardDedup.String())
	require.Equal(t, "tiered-large", TieredLarge.String())
	require.Equal(t, "tiered-extra-large", TieredExtraLarge.String())
}
