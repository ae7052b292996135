package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint64RoundTrip(t *testing.T) {
	buf := PutUint64(nil, 0xdeadbeefcafebabe)
	v, err := Uint64(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(0xdeadbeefcafebabe), v)
}

func TestUint32RoundTrip(t *testing.T) {
	buf := PutUint32(nil, 123456789)
	v, err := Uint32(buf)
	require.NoError(t, err)
	require.Equal(t, uint32(123456789), v)
}

func TestUint16RoundTrip(t *testing.T) {
	buf := PutUint16(nil, 4321)
	v, err := Uint16(buf)
	require.NoError(t, err)
	require.Equal(t, uint16(4321), v)
}

func TestShortBuffer(t *testing.T) {
	_, err := Uint64([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestPrefixedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello orbit")
	require.NoError(t, WritePrefixed(&buf, payload))
	got, err := ReadPrefixed(&buf, 1024)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestPrefixedRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePrefixed(&buf, make([]byte, 100)))
	_, err := ReadPrefixed(&buf, 10)
	require.Error(t, err)
}
