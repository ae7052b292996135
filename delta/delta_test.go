package delta

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saworbit/orbit-sub003/signature"
)

const blockSize = 16

func buildSigTable(t *testing.T, data []byte) *signature.Table {
	t.Helper()
	tbl, err := signature.NewTable(bytes.NewReader(data), blockSize)
	require.NoError(t, err)
	return tbl
}

func applyToBytes(t *testing.T, instructions []Instruction, dst []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Apply(&buf, instructions, bytes.NewReader(dst)))
	return buf.Bytes()
}

// empty source yields empty instruction stream.
func TestEmptySource(t *testing.T) {
	dst := []byte("whatever destination content, doesn't matter here")
	instrs := Generate(nil, buildSigTable(t, dst), blockSize)
	require.Empty(t, instrs)
}

// Edge case: source shorter than block size.
func TestSourceShorterThanBlock(t *testing.T) {
	dst := []byte("0123456789abcdef0123456789abcdef")
	src := []byte("short")
	instrs := Generate(src, buildSigTable(t, dst), blockSize)
	require.Len(t, instrs, 1)
	require.Equal(t, OpData, instrs[0].Op)
	require.Equal(t, src, instrs[0].Data)
}

// Edge case: empty signature index.
func TestEmptySignatureIndex(t *testing.T) {
	src := bytes.Repeat([]byte("x"), 100)
	emptyTbl, err := signature.NewTable(bytes.NewReader(nil), blockSize)
	require.NoError(t, err)
	instrs := Generate(src, emptyTbl, blockSize)
	require.Len(t, instrs, 1)
	require.Equal(t, OpData, instrs[0].Op)
	require.Equal(t, src, instrs[0].Data)
}

// source == destination produces copies and no literal data.
func TestFullMatchAgainstIdenticalDestination(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 20) // 160 bytes, 10 blocks of 16
	tbl := buildSigTable(t, data)
	instrs := Generate(data, tbl, blockSize)

	var literalBytes int
	for _, ins := range instrs {
		if ins.Op == OpData {
			literalBytes += len(ins.Data)
		}
	}
	require.Zero(t, literalBytes)

	reconstructed := applyToBytes(t, instrs, data)
	require.Equal(t, data, reconstructed)
}

// source unrelated to destination produces one Data instruction of the
// entire source length, and still reconstructs correctly.
func TestNoMatchAgainstUnrelatedDestination(t *testing.T) {
	src := bytes.Repeat([]byte{0xAA}, 500)
	dst := bytes.Repeat([]byte{0x55}, 500)
	tbl := buildSigTable(t, dst)
	instrs := Generate(src, tbl, blockSize)

	require.Len(t, instrs, 1)
	require.Equal(t, OpData, instrs[0].Op)
	require.Equal(t, len(src), len(instrs[0].Data))

	reconstructed := applyToBytes(t, instrs, dst)
	require.Equal(t, src, reconstructed)
}

// round trip and soundness over a source that partially overlaps the
// destination (simulating a small edit).
func TestPartialOverlapRoundTrip(t *testing.T) {
	dst := bytes.Repeat([]byte("0123456789ABCDEF"), 50) // 800 bytes
	src := append([]byte{}, dst...)
	// Corrupt a chunk in the middle so only part of the source matches.
	copy(src[400:420], bytes.Repeat([]byte{0x00}, 20))

	tbl := buildSigTable(t, dst)
	instrs := Generate(src, tbl, blockSize)

	reconstructed := applyToBytes(t, instrs, dst)
	require.Equal(t, src, reconstructed)

	var sawCopy, sawData bool
	for _, ins := range instrs {
		if ins.Op == OpCopy {
			sawCopy = true
		}
		if ins.Op == OpData {
			sawData = true
		}
	}
	require.True(t, sawCopy, "expected at least one Copy instruction")
	require.True(t, sawData, "expected at least one Data instruction")
}

// Literal coalescing: consecutive unmatched bytes collapse into a single
// Data instruction rather than one per byte.
func TestLiteralCoalescing(t *testing.T) {
	dst := bytes.Repeat([]byte{0x11}, 64)
	src := bytes.Repeat([]byte{0x22}, 64) // entirely unmatched
	tbl := buildSigTable(t, dst)
	instrs := Generate(src, tbl, blockSize)
	require.Len(t, instrs, 1)
	require.Equal(t, OpData, instrs[0].Op)
	require.Len(t, instrs[0].Data, 64)
}
