// Package router implements file-size-based lane selection and the
// compute-pool executor that keeps CPU-bound work off the I/O path.
package router

import "github.com/saworbit/orbit-sub003/config"

// Lane identifies which replication strategy a file is routed through.
type Lane int

const (
	// Direct transfers small files whole, without chunking.
	Direct Lane = iota
	// StandardDedup chunks mid-sized files at the default tier.
	StandardDedup
	// TieredLarge chunks large files at a coarser tier to bound index size.
	TieredLarge
	// TieredExtraLarge chunks very large files at the coarsest tier.
	TieredExtraLarge
)

func (l Lane) String() string {
	switch l {
	case Direct:
		return "direct"
	case StandardDedup:
		return "standard"
	case TieredLarge:
		return "tiered-large"
	case TieredExtraLarge:
		return "tiered-extra-large"
	default:
		return "unknown"
	}
}

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib

	directCeiling      = 8 * kib
	standardCeiling    = 1 * gib
	tieredLargeCeiling = 100 * gib
)

// Strategy is the routing decision for one file: which lane it travels
// through and, for chunked lanes, which chunk-size tier to use.
type Strategy struct {
	Lane  Lane
	Chunk config.ChunkConfig // zero value when Lane == Direct
}

// SelectStrategy is a pure function of file size. Boundaries are
// lower-inclusive: a file of exactly 1 GiB lands in TieredLarge rather
// than StandardDedup, and exactly 100 GiB lands in TieredExtraLarge,
// so each size belongs to exactly one lane with no overlap.
func SelectStrategy(fileSize uint64) Strategy {
	switch {
	case fileSize < directCeiling:
		return Strategy{Lane: Direct}
	case fileSize < standardCeiling:
		return Strategy{Lane: StandardDedup, Chunk: config.StandardChunkConfig}
	case fileSize < tieredLargeCeiling:
		return Strategy{Lane: TieredLarge, Chunk: config.TieredChunkConfig}
	default:
		return Strategy{Lane: TieredExtraLarge, Chunk: config.ExtraLargeChunkConfig}
	}
}
