package starmap

import (
	"bytes"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/saworbit/orbit-sub003/cid"
)

// Reader provides read-only, O(1)-ish access to a built Star Map. Opened
// from a file it is backed by a read-only memory mapping; Star Map files
// are immutable once built so the mapping is shared freely across readers.
type Reader struct {
	data  []byte
	mm    mmap.MMap // non-nil only when backed by a mapped file
	file  *os.File
	h     header
	bloom *bloomFilter

	chunkTable  []byte
	windowTable []byte
	bitmaps     [][]byte // one slice per window, in window-table order
}

// Open memory-maps path and parses it as a Star Map.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := parse(m)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}
	r.mm = m
	r.file = f
	return r, nil
}

// OpenBytes parses an in-memory Star Map, e.g. one just produced by
// Builder.Build, without touching the filesystem.
func OpenBytes(data []byte) (*Reader, error) {
	return parse(data)
}

// Close releases the underlying mapping, if any.
func (r *Reader) Close() error {
	if r.mm != nil {
		if err := r.mm.Unmap(); err != nil {
			return err
		}
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func parse(data []byte) (*Reader, error) {
	if len(data) < len(magic)+2+headerSize {
		return nil, ErrCorruptData
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, ErrInvalidMagic
	}
	version := uint16(data[8]) | uint16(data[9])<<8
	if version != currentVersion {
		return nil, ErrVersionMismatch
	}
	h, err := decodeHeader(data[10 : 10+headerSize])
	if err != nil {
		return nil, err
	}
	if h.ChunkCount == 0 || h.WindowCount == 0 {
		return nil, ErrEmpty
	}

	off := 10 + headerSize
	chunkTableLen := int(h.ChunkCount) * chunkEntrySize
	windowTableLen := int(h.WindowCount) * windowEntrySize
	bloomLen := bitmapByteLen(int(h.BloomBits))

	if len(data) < off+chunkTableLen+windowTableLen+bloomLen {
		return nil, ErrCorruptData
	}

	r := &Reader{data: data, h: h}
	r.chunkTable = data[off : off+chunkTableLen]
	off += chunkTableLen
	r.windowTable = data[off : off+windowTableLen]
	off += windowTableLen

	bloomPayload := data[off : off+bloomLen]
	off += bloomLen
	r.bloom = decodeBloomFilter(bloomPayload, h.BloomBits, h.BloomHashes)

	r.bitmaps = make([][]byte, h.WindowCount)
	for i := uint32(0); i < h.WindowCount; i++ {
		w, err := decodeWindowMeta(r.windowTable[int(i)*windowEntrySize:])
		if err != nil {
			return nil, err
		}
		n := bitmapByteLen(int(w.Count))
		if len(data) < off+n {
			return nil, ErrCorruptData
		}
		r.bitmaps[i] = data[off : off+n]
		off += n
	}

	return r, nil
}

// HasChunk reports whether id may be present in this file's chunk table.
// A bloom miss returns false in O(1). Every bloom hit (a present CID, or a
// rare <=1% false positive) is confirmed with a linear scan of the chunk
// table, so the result is never a false positive from the caller's
// perspective.
func (r *Reader) HasChunk(id cid.CID) bool {
	if !r.bloom.contains(id) {
		return false
	}
	for i := uint32(0); i < r.h.ChunkCount; i++ {
		c, err := decodeChunkMeta(r.chunkTable[int(i)*chunkEntrySize:])
		if err != nil {
			return false
		}
		if c.ContentID == id {
			return true
		}
	}
	return false
}

// ChunkCount reports how many chunks the map indexes.
func (r *Reader) ChunkCount() int { return int(r.h.ChunkCount) }

// WindowCount reports how many windows the map indexes.
func (r *Reader) WindowCount() int { return int(r.h.WindowCount) }

// GetChunk returns the chunk row at index.
func (r *Reader) GetChunk(index int) (ChunkMeta, error) {
	if index < 0 || index >= int(r.h.ChunkCount) {
		return ChunkMeta{}, ErrChunkIndexOutOfBounds
	}
	return decodeChunkMeta(r.chunkTable[index*chunkEntrySize:])
}

// GetWindow returns the window row at index.
func (r *Reader) GetWindow(index int) (WindowMeta, error) {
	if index < 0 || index >= int(r.h.WindowCount) {
		return WindowMeta{}, ErrWindowIndexOutOfBounds
	}
	return decodeWindowMeta(r.windowTable[index*windowEntrySize:])
}

// NextMissing scans window index's presence bitmap starting at from
// (relative to the window's first chunk) and returns the absolute chunk
// index of the first chunk not yet present locally.
func (r *Reader) NextMissing(windowIndex int, from int) (int, bool, error) {
	w, err := r.GetWindow(windowIndex)
	if err != nil {
		return 0, false, err
	}
	p := decodePresenceBitmap(r.bitmaps[windowIndex], uint(w.Count))
	k, ok := p.nextMissing(uint(from))
	if !ok {
		return 0, false, nil
	}
	return int(w.FirstChunk) + int(k), true, nil
}
