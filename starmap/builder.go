package starmap

import (
	"github.com/saworbit/orbit-sub003/cid"
	"github.com/saworbit/orbit-sub003/orbiterrors"
)

const defaultFalsePositiveRate = 0.01

// Builder accumulates chunk and window rows for one file and serializes
// them into the on-disk Star Map format.
type Builder struct {
	fileSize uint64
	chunks   []ChunkMeta
	windows  []WindowMeta
	presence []*presenceBitmap // parallel to windows
}

// NewBuilder starts a Star Map build for a file of the given total size.
func NewBuilder(fileSize uint64) *Builder {
	return &Builder{fileSize: fileSize}
}

// AddChunk registers one chunk row. Chunks must be added in offset order;
// callers index them by position for AddWindow's first_chunk references.
func (b *Builder) AddChunk(offset uint64, length uint32, id cid.CID) {
	b.chunks = append(b.chunks, ChunkMeta{Offset: offset, Length: length, ContentID: id})
}

// AddWindow registers a window spanning chunks [firstChunk, firstChunk+count).
// present marks, per chunk within the window, whether it is already held
// locally; a nil present means none are (freshly discovered remote file).
func (b *Builder) AddWindow(id, firstChunk uint32, count uint16, merkleRoot cid.CID, overlap uint16, present []bool) error {
	if uint64(firstChunk)+uint64(count) > uint64(len(b.chunks)) {
		return orbiterrors.New(orbiterrors.PolicyViolation, "starmap: window exceeds chunk table")
	}
	bm := newPresenceBitmap(uint(count))
	for i, p := range present {
		if uint16(i) >= count {
			break
		}
		if p {
			bm.set(uint(i))
		}
	}
	b.windows = append(b.windows, WindowMeta{
		ID:         id,
		FirstChunk: firstChunk,
		Count:      count,
		MerkleRoot: merkleRoot,
		Overlap:    overlap,
	})
	b.presence = append(b.presence, bm)
	return nil
}

// Build serializes the accumulated chunks and windows into Star Map bytes.
// A map with zero chunks or zero windows is rejected rather than silently
// producing a degenerate file.
func (b *Builder) Build() ([]byte, error) {
	if len(b.chunks) == 0 || len(b.windows) == 0 {
		return nil, ErrEmpty
	}

	bf := newBloomFilter(uint64(len(b.chunks)), defaultFalsePositiveRate)
	for _, c := range b.chunks {
		bf.add(c.ContentID)
	}

	h := header{
		FileSize:      b.fileSize,
		ChunkCount:    uint32(len(b.chunks)),
		WindowCount:   uint32(len(b.windows)),
		BloomHashes:   bf.k,
		BloomElements: uint32(len(b.chunks)),
		BloomBits:     bf.m,
	}

	out := make([]byte, 0, headerSize+len(magic)+2+
		len(b.chunks)*chunkEntrySize+len(b.windows)*windowEntrySize+
		int(bitmapByteLen(int(bf.m))))
	out = append(out, magic[:]...)
	out = append(out, byte(currentVersion), byte(currentVersion>>8))
	out = append(out, h.encode()...)

	for _, c := range b.chunks {
		out = c.encode(out)
	}
	for _, w := range b.windows {
		out = w.encode(out)
	}
	out = append(out, bf.encode()...)
	for _, bm := range b.presence {
		out = append(out, bm.encode()...)
	}
	return out, nil
}
