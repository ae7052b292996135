package cid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumDeterministic(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	a := Sum(data)
	b := Sum(data)
	require.Equal(t, a, b)
	require.NotEqual(t, a, Sum([]byte("different")))
}

func TestSumAllMatchesConcat(t *testing.T) {
	p1, p2 := []byte("hello "), []byte("world")
	require.Equal(t, Sum(append(append([]byte{}, p1...), p2...)), SumAll(p1, p2))
}

func TestHexRoundTrip(t *testing.T) {
	c := Sum([]byte("round trip"))
	parsed, err := FromHex(c.String())
	require.NoError(t, err)
	require.Equal(t, c, parsed)
}

func TestFromHexWrongLength(t *testing.T) {
	_, err := FromHex("deadbeef")
	require.ErrorIs(t, err, ErrWrongLength)
}

func TestGearHashDeterministic(t *testing.T) {
	data := []byte("some representative byte stream used to test gear hash rolling")
	var g1, g2 GearHash
	var v1, v2 uint64
	for _, b := range data {
		v1 = g1.Roll(b)
	}
	for _, b := range data {
		v2 = g2.Roll(b)
	}
	require.Equal(t, v1, v2)
}

func TestRollingWeakHashMatchesOneShot(t *testing.T) {
	block := []byte("0123456789abcdef") // 16 bytes
	require.Equal(t, WeakHash(block), NewRollingWeakHash(block).Sum())
}

func TestRollingWeakHashSlide(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz0123456789")
	window := 8
	r := NewRollingWeakHash(data[:window])
	for i := window; i < len(data); i++ {
		r.Roll(data[i-window], data[i])
		want := WeakHash(data[i-window+1 : i+1])
		require.Equal(t, want, r.Sum(), "mismatch at position %d", i)
	}
}
