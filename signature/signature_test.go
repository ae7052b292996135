package signature

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saworbit/orbit-sub003/cid"
)

func TestNewTableBlocksAndFinalShortBlock(t *testing.T) {
	data := bytes.Repeat([]byte("A"), 10)
	data = append(data, bytes.Repeat([]byte("B"), 4)...) // 14 bytes, blockSize 10 -> 2 blocks
	tbl, err := NewTable(bytes.NewReader(data), 10)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	require.Equal(t, uint32(10), tbl.Signatures()[0].Length)
	require.Equal(t, uint32(4), tbl.Signatures()[1].Length)
}

func TestMatchFindsStrongHash(t *testing.T) {
	block := []byte("0123456789abcdef")
	tbl, err := NewTable(bytes.NewReader(block), 16)
	require.NoError(t, err)

	weak := cid.WeakHash(block)
	strong := cid.Sum(block)
	sig, ok := tbl.Match(weak, strong)
	require.True(t, ok)
	require.Equal(t, uint64(0), sig.Offset)
}

func TestMatchMissesOnWrongStrongHash(t *testing.T) {
	block := []byte("0123456789abcdef")
	tbl, err := NewTable(bytes.NewReader(block), 16)
	require.NoError(t, err)

	weak := cid.WeakHash(block)
	_, ok := tbl.Match(weak, cid.Sum([]byte("different content bytes")))
	require.False(t, ok)
}

func TestZeroBlockSizeRejected(t *testing.T) {
	_, err := NewTable(bytes.NewReader(nil), 0)
	require.Error(t, err)
}
