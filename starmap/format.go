// Package starmap implements the per-file Star Map: a memory-mappable
// binary index of a file's chunks and windows, with a bloom filter for
// fast CID membership checks and a per-window presence bitmap for tracking
// which chunks are held locally.
package starmap

import (
	"github.com/saworbit/orbit-sub003/cid"
	"github.com/saworbit/orbit-sub003/codec"
	"github.com/saworbit/orbit-sub003/orbiterrors"
)

var magic = [8]byte{'O', 'R', 'B', 'I', 'T', 'M', 'A', 'P'}

const currentVersion uint16 = 1

const (
	chunkEntrySize  = 8 + 4 + 32        // offset, length, content id
	windowEntrySize = 4 + 4 + 2 + 32 + 2 // id, first_chunk, count, merkle_root, overlap
	headerSize      = 8 + 4 + 4 + 4 + 4 + 8
)

// header holds the fixed-width fields preceding the chunk and window
// tables in a Star Map file.
type header struct {
	FileSize     uint64
	ChunkCount   uint32
	WindowCount  uint32
	BloomHashes  uint32
	BloomElements uint32
	BloomBits    uint64
}

func (h header) encode() []byte {
	buf := make([]byte, 0, headerSize)
	buf = codec.PutUint64(buf, h.FileSize)
	buf = codec.PutUint32(buf, h.ChunkCount)
	buf = codec.PutUint32(buf, h.WindowCount)
	buf = codec.PutUint32(buf, h.BloomHashes)
	buf = codec.PutUint32(buf, h.BloomElements)
	buf = codec.PutUint64(buf, h.BloomBits)
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	if len(buf) < headerSize {
		return header{}, orbiterrors.Wrap(orbiterrors.Corruption, "starmap: short header", codec.ErrShortBuffer)
	}
	var h header
	var err error
	h.FileSize, err = codec.Uint64(buf[0:8])
	if err != nil {
		return header{}, err
	}
	h.ChunkCount, err = codec.Uint32(buf[8:12])
	if err != nil {
		return header{}, err
	}
	h.WindowCount, err = codec.Uint32(buf[12:16])
	if err != nil {
		return header{}, err
	}
	h.BloomHashes, err = codec.Uint32(buf[16:20])
	if err != nil {
		return header{}, err
	}
	h.BloomElements, err = codec.Uint32(buf[20:24])
	if err != nil {
		return header{}, err
	}
	h.BloomBits, err = codec.Uint64(buf[24:32])
	if err != nil {
		return header{}, err
	}
	return h, nil
}

// ChunkMeta is one entry of the chunk table.
type ChunkMeta struct {
	Offset    uint64
	Length    uint32
	ContentID cid.CID
}

func (c ChunkMeta) encode(buf []byte) []byte {
	buf = codec.PutUint64(buf, c.Offset)
	buf = codec.PutUint32(buf, c.Length)
	buf = append(buf, c.ContentID[:]...)
	return buf
}

func decodeChunkMeta(buf []byte) (ChunkMeta, error) {
	if len(buf) < chunkEntrySize {
		return ChunkMeta{}, orbiterrors.Wrap(orbiterrors.Corruption, "starmap: short chunk entry", codec.ErrShortBuffer)
	}
	offset, _ := codec.Uint64(buf[0:8])
	length, _ := codec.Uint32(buf[8:12])
	var id cid.CID
	copy(id[:], buf[12:44])
	return ChunkMeta{Offset: offset, Length: length, ContentID: id}, nil
}

// WindowMeta is one entry of the window table.
type WindowMeta struct {
	ID         uint32
	FirstChunk uint32
	Count      uint16
	MerkleRoot cid.CID
	Overlap    uint16
}

func (w WindowMeta) encode(buf []byte) []byte {
	buf = codec.PutUint32(buf, w.ID)
	buf = codec.PutUint32(buf, w.FirstChunk)
	buf = codec.PutUint16(buf, w.Count)
	buf = append(buf, w.MerkleRoot[:]...)
	buf = codec.PutUint16(buf, w.Overlap)
	return buf
}

func decodeWindowMeta(buf []byte) (WindowMeta, error) {
	if len(buf) < windowEntrySize {
		return WindowMeta{}, orbiterrors.Wrap(orbiterrors.Corruption, "starmap: short window entry", codec.ErrShortBuffer)
	}
	id, _ := codec.Uint32(buf[0:4])
	firstChunk, _ := codec.Uint32(buf[4:8])
	count, _ := codec.Uint16(buf[8:10])
	var root cid.CID
	copy(root[:], buf[10:42])
	overlap, _ := codec.Uint16(buf[42:44])
	return WindowMeta{ID: id, FirstChunk: firstChunk, Count: count, MerkleRoot: root, Overlap: overlap}, nil
}

func bitmapByteLen(bits int) int {
	return (bits + 7) / 8
}
