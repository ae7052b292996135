package router

import (
	"bytes"
	"context"
	"io"

	"github.com/saworbit/orbit-sub003/backend"
	"github.com/saworbit/orbit-sub003/chunker"
	"github.com/saworbit/orbit-sub003/cid"
	"github.com/saworbit/orbit-sub003/codec"
	"github.com/saworbit/orbit-sub003/config"
	"github.com/saworbit/orbit-sub003/orbiterrors"
)

// maxManifestRecordBytes bounds a single decoded chunk record read back by
// ReadChunkManifest; one record is always exactly chunkRecordSize bytes, so
// this is generous headroom rather than a tight limit.
const maxManifestRecordBytes = 1 << 16

const chunkRecordSize = 8 + 4 + cid.Size

// IngestFile chunks srcPath as read through src's ReadRange on the compute
// pool, then writes the resulting chunk boundaries as a length-prefixed
// manifest to manifestPath on dst via Write. It is the concrete place the
// Backend capability contract is driven from outside its own package: the
// router dispatches the I/O through Backend and offloads the CPU-bound
// chunking to the Executor, exactly the split Executor exists for.
func IngestFile(ctx context.Context, e *Executor, src backend.Backend, srcPath string, dst backend.Backend, manifestPath string, cfg config.ChunkConfig) ([]chunker.Chunk, error) {
	meta, err := src.Stat(ctx, srcPath)
	if err != nil {
		return nil, err
	}

	chunks, err := OffloadCompute(ctx, e, func() ([]chunker.Chunk, error) {
		r, err := src.ReadRange(ctx, srcPath, 0, int64(meta.Size))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return chunker.All(r, cfg)
	})
	if err != nil {
		return nil, err
	}

	var manifest bytes.Buffer
	for _, c := range chunks {
		if err := codec.WritePrefixed(&manifest, encodeChunkRecord(c)); err != nil {
			return nil, orbiterrors.Wrap(orbiterrors.IO, "router: encode chunk manifest", err)
		}
	}
	if err := dst.Write(ctx, manifestPath, &manifest); err != nil {
		return nil, err
	}
	return chunks, nil
}

// ReadChunkManifest reads back the chunk boundaries IngestFile wrote to
// manifestPath on src.
func ReadChunkManifest(ctx context.Context, src backend.Backend, manifestPath string) ([]chunker.Chunk, error) {
	meta, err := src.Stat(ctx, manifestPath)
	if err != nil {
		return nil, err
	}
	r, err := src.ReadRange(ctx, manifestPath, 0, int64(meta.Size))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var chunks []chunker.Chunk
	for {
		record, err := codec.ReadPrefixed(r, maxManifestRecordBytes)
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return nil, orbiterrors.Wrap(orbiterrors.Corruption, "router: decode chunk manifest", err)
		}
		c, err := decodeChunkRecord(record)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
}

func encodeChunkRecord(c chunker.Chunk) []byte {
	buf := make([]byte, 0, chunkRecordSize)
	buf = codec.PutUint64(buf, c.Offset)
	buf = codec.PutUint32(buf, c.Length)
	buf = append(buf, c.ContentID[:]...)
	return buf
}

func decodeChunkRecord(buf []byte) (chunker.Chunk, error) {
	if len(buf) != chunkRecordSize {
		return chunker.Chunk{}, orbiterrors.New(orbiterrors.Corruption, "router: truncated chunk record")
	}
	offset, err := codec.Uint64(buf)
	if err != nil {
		return chunker.Chunk{}, orbiterrors.Wrap(orbiterrors.Corruption, "router: decode chunk offset", err)
	}
	length, err := codec.Uint32(buf[8:])
	if err != nil {
		return chunker.Chunk{}, orbiterrors.Wrap(orbiterrors.Corruption, "router: decode chunk length", err)
	}
	var id cid.CID
	copy(id[:], buf[12:12+cid.Size])
	return chunker.Chunk{Offset: offset, Length: length, ContentID: id}, nil
}
