package backend

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/saworbit/orbit-sub003/orbiterrors"
	"github.com/saworbit/orbit-sub003/sandbox"
)

var _ Backend = (*Local)(nil)

// Local is a Backend backed by the host filesystem, with every path
// resolved through a sandbox.Jail before touching disk.
type Local struct {
	jail *sandbox.Jail
}

// NewLocal builds a Local backend confined to jail.
func NewLocal(jail *sandbox.Jail) *Local {
	return &Local{jail: jail}
}

func (l *Local) resolve(path string) (string, error) {
	secured, err := l.jail.SecurePath(path)
	if err != nil {
		return "", ErrOutOfJail
	}
	return secured, nil
}

// ReadRange opens path and returns a ReadCloser limited to [offset,
// offset+length). The caller must Close it.
func (l *Local) ReadRange(_ context.Context, path string, offset int64, length int64) (io.ReadCloser, error) {
	resolved, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, orbiterrors.Wrap(orbiterrors.IO, "backend: open for read", err)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, orbiterrors.Wrap(orbiterrors.IO, "backend: seek", err)
	}
	return &limitedReadCloser{r: io.LimitReader(f, length), c: f}, nil
}

type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error               { return l.c.Close() }

// Write creates (or truncates) path and copies all of r into it,
// creating parent directories as needed.
func (l *Local) Write(_ context.Context, path string, r io.Reader) error {
	resolved, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return orbiterrors.Wrap(orbiterrors.IO, "backend: create parent directory", err)
	}
	f, err := os.Create(resolved)
	if err != nil {
		return orbiterrors.Wrap(orbiterrors.IO, "backend: create file", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return orbiterrors.Wrap(orbiterrors.IO, "backend: write file", err)
	}
	return nil
}

// List returns the direct children of path.
func (l *Local) List(_ context.Context, path string) ([]Metadata, error) {
	resolved, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, orbiterrors.Wrap(orbiterrors.IO, "backend: list directory", err)
	}
	out := make([]Metadata, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, orbiterrors.Wrap(orbiterrors.IO, "backend: stat entry", err)
		}
		out = append(out, metadataFromFileInfo(filepath.Join(path, entry.Name()), info))
	}
	return out, nil
}

// Stat returns metadata for exactly path.
func (l *Local) Stat(_ context.Context, path string) (Metadata, error) {
	resolved, err := l.resolve(path)
	if err != nil {
		return Metadata{}, err
	}
	info, err := os.Lstat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, ErrNotExist
		}
		return Metadata{}, orbiterrors.Wrap(orbiterrors.IO, "backend: stat", err)
	}
	return metadataFromFileInfo(path, info), nil
}

// Delete removes path. Deleting a directory removes it and its contents.
func (l *Local) Delete(_ context.Context, path string) error {
	resolved, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(resolved); err != nil {
		return orbiterrors.Wrap(orbiterrors.IO, "backend: delete", err)
	}
	return nil
}

func metadataFromFileInfo(path string, info os.FileInfo) Metadata {
	return Metadata{
		Path:       path,
		Size:       uint64(info.Size()),
		IsDir:      info.IsDir(),
		IsSymlink:  info.Mode()&os.ModeSymlink != 0,
		ModifiedAt: info.ModTime(),
	}
}
