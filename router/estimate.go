package router

// Estimate is a cheap, side-effect-free projection of how a file would be
// routed and chunked, without touching the Universe or a job ledger.
// Dashboards and operators use it to size a transfer before committing to
// it.
type Estimate struct {
	Lane                Lane
	EstimatedChunkCount uint64
}

// EstimateFile projects the Strategy and chunk count SelectStrategy and
// the chunker would produce for a file of fileSize bytes, using the
// lane's average chunk size as the divisor. Direct-lane files are never
// chunked, so their estimate is always exactly one chunk.
func EstimateFile(fileSize uint64) Estimate {
	strategy := SelectStrategy(fileSize)
	if strategy.Lane == Direct {
		return Estimate{Lane: Direct, EstimatedChunkCount: 1}
	}
	avg := uint64(strategy.Chunk.Avg)
	count := fileSize / avg
	if fileSize%avg != 0 {
		count++
	}
	if count == 0 {
		count = 1
	}
	return Estimate{Lane: strategy.Lane, EstimatedChunkCount: count}
}
