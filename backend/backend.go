// Package backend defines the small capability contract the core dedup
// and transfer pipeline consumes: range reads, whole-file writes, listing,
// stat, and delete. Storage-specific plumbing (S3, SMB, and so on) lives
// outside this module; only the contract and a local-filesystem
// implementation are provided here. router.IngestFile/ReadChunkManifest
// is the pipeline-level consumer: it drives chunking off ReadRange and
// writes the resulting manifest back through Write.
package backend

import (
	"context"
	"io"
	"time"

	"github.com/saworbit/orbit-sub003/orbiterrors"
)

// Metadata describes one file or directory entry, uniformly across
// whatever concrete Backend produced it.
type Metadata struct {
	Path       string
	Size       uint64
	IsDir      bool
	IsSymlink  bool
	ModifiedAt time.Time
}

// Backend is the capability contract every storage collaborator (local
// disk, object store, SMB share) must implement for the core pipeline to
// chunk, dedup, and transfer against it.
type Backend interface {
	// ReadRange reads length bytes starting at offset from path.
	ReadRange(ctx context.Context, path string, offset int64, length int64) (io.ReadCloser, error)
	// Write writes the entirety of r to path, replacing any existing
	// content.
	Write(ctx context.Context, path string, r io.Reader) error
	// List returns the entries directly under path (non-recursive).
	List(ctx context.Context, path string) ([]Metadata, error)
	// Stat returns metadata for exactly path.
	Stat(ctx context.Context, path string) (Metadata, error)
	// Delete removes path.
	Delete(ctx context.Context, path string) error
}

var (
	ErrNotExist  = orbiterrors.New(orbiterrors.NotFound, "backend: path does not exist")
	ErrIsDir     = orbiterrors.New(orbiterrors.PolicyViolation, "backend: path is a directory")
	ErrNotDir    = orbiterrors.New(orbiterrors.PolicyViolation, "backend: path is not a directory")
	ErrOutOfJail = orbiterrors.New(orbiterrors.AccessDenied, "backend: path outside sandbox")
)
