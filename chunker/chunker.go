// Package chunker implements Orbit's content-defined chunker: it splits
// a byte stream into variable-size chunks whose boundaries depend only
// on local content, so that a localized edit to the source only
// perturbs the chunk(s) touching the edit.
package chunker

import (
	"bufio"
	"io"

	"github.com/saworbit/orbit-sub003/cid"
	"github.com/saworbit/orbit-sub003/config"
	"github.com/saworbit/orbit-sub003/orbiterrors"
)

// Chunk is a contiguous, immutable byte range of a source.
type Chunk struct {
	Offset    uint64
	Length    uint32
	ContentID cid.CID
}

// Chunker produces a finite, ordered, non-restartable sequence of Chunks
// that tile its input stream exactly once.
type Chunker struct {
	r      *bufio.Reader
	cfg    config.ChunkConfig
	offset uint64
	done   bool
}

// New validates cfg and returns a Chunker reading from r. An invalid config
// (min > avg, avg > max, min == 0) is a construction-time failure.
func New(r io.Reader, cfg config.ChunkConfig) (*Chunker, error) {
	if _, err := config.NewChunkConfig(cfg.Min, cfg.Avg, cfg.Max); err != nil {
		return nil, err
	}
	return &Chunker{r: bufio.NewReaderSize(r, int(cfg.Max)*2+1), cfg: cfg}, nil
}

// Next reads and returns the next chunk, or (Chunk{}, io.EOF) once the
// stream is exhausted. Partial chunks are never emitted on a read error:
// the error is returned in-band instead.
func (c *Chunker) Next() (Chunk, error) {
	if c.done {
		return Chunk{}, io.EOF
	}

	var buf []byte
	var gear cid.GearHash
	startOffset := c.offset

	for {
		b, err := c.r.ReadByte()
		if err == io.EOF {
			c.done = true
			break
		}
		if err != nil {
			return Chunk{}, orbiterrors.Wrap(orbiterrors.IO, "chunker: reading stream", err)
		}
		buf = append(buf, b)
		c.offset++
		h := gear.Roll(b)

		n := uint32(len(buf))
		if n < c.cfg.Min {
			continue
		}
		if n >= c.cfg.Max {
			break // forced cut
		}
		if h%uint64(c.cfg.Avg) == 0 {
			break
		}
	}

	if len(buf) == 0 {
		// Stream ended exactly on a prior boundary; nothing left to emit.
		return Chunk{}, io.EOF
	}

	chunk := Chunk{
		Offset:    startOffset,
		Length:    uint32(len(buf)),
		ContentID: cid.Sum(buf),
	}
	return chunk, nil
}

// All drains the Chunker, returning every chunk in order. Convenience
// wrapper around Next for callers that don't need streaming behavior.
func All(r io.Reader, cfg config.ChunkConfig) ([]Chunk, error) {
	c, err := New(r, cfg)
	if err != nil {
		return nil, err
	}
	var chunks []Chunk
	for {
		ch, err := c.Next()
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, ch)
	}
}
