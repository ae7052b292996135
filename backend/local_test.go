package backend

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saworbit/orbit-sub003/sandbox"
)

func newLocal(t *testing.T) (*Local, string) {
	t.Helper()
	dir := t.TempDir()
	jail := sandbox.New([]string{dir})
	return NewLocal(jail), dir
}

func TestLocalWriteReadRoundTrip(t *testing.T) {
	l, dir := newLocal(t)
	ctx := context.Background()
	path := filepath.Join(dir, "a.txt")

	require.NoError(t, l.Write(ctx, path, bytes.NewBufferString("hello world")))

	rc, err := l.ReadRange(ctx, path, 6, 5)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "world", string(data))
}

func TestLocalStatAndDelete(t *testing.T) {
	l, dir := newLocal(t)
	ctx := context.Background()
	path := filepath.Join(dir, "b.txt")
	require.NoError(t, l.Write(ctx, path, bytes.NewBufferString("12345")))

	meta, err := l.Stat(ctx, path)
	require.NoError(t, err)
	require.Equal(t, uint64(5), meta.Size)
	require.False(t, meta.IsDir)

	require.NoError(t, l.Delete(ctx, path))
	_, err = l.Stat(ctx, path)
	require.ErrorIs(t, err, ErrNotExist)
}

func TestLocalList(t *testing.T) {
	l, dir := newLocal(t)
	ctx := context.Background()
	require.NoError(t, l.Write(ctx, filepath.Join(dir, "x.txt"), bytes.NewBufferString("x")))
	require.NoError(t, l.Write(ctx, filepath.Join(dir, "y.txt"), bytes.NewBufferString("yy")))

	entries, err := l.List(ctx, dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestLocalWriteOutsideJailDenied(t *testing.T) {
	l, dir := newLocal(t)
	ctx := context.Background()
	outside := filepath.Join(filepath.Dir(dir), "outside.txt")

	err := l.Write(ctx, outside, bytes.NewBufferString("nope"))
	require.ErrorIs(t, err, ErrOutOfJail)
}

func TestLocalReadMissingFile(t *testing.T) {
	l, dir := newLocal(t)
	_, err := l.ReadRange(context.Background(), filepath.Join(dir, "missing.txt"), 0, 10)
	require.ErrorIs(t, err, ErrNotExist)
}

func TestLocalWriteCreatesParentDirs(t *testing.T) {
	l, dir := newLocal(t)
	ctx := context.Background()
	nested := filepath.Join(dir, "a", "b", "c.txt")
	require.NoError(t, l.Write(ctx, nested, bytes.NewBufferString("deep")))

	meta, err := l.Stat(ctx, nested)
	require.NoError(t, err)
	require.Equal(t, uint64(4), meta.Size)
}
