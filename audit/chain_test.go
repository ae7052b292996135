package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func chainPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "chain.jsonl")
}

// a freshly-written chain validates cleanly end to end.
func TestChainIntegrityRoundTrip(t *testing.T) {
	path := chainPath(t)
	signer := SignerFromBytes([]byte("test-secret"))

	c, err := Open(path, signer)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := c.Emit(Event{Payload: BackendRead("/a/b", 1024, 5)})
		require.NoError(t, err)
	}
	require.NoError(t, c.Close())

	report, err := Validate(path, signer)
	require.NoError(t, err)
	require.True(t, report.OK())
	require.Equal(t, 5, report.TotalEvents)
	require.Equal(t, 5, report.ValidEvents)
}

func TestChainAssignsIncreasingSequence(t *testing.T) {
	path := chainPath(t)
	signer := SignerFromBytes([]byte("s"))
	c, err := Open(path, signer)
	require.NoError(t, err)

	e0, err := c.Emit(Event{Payload: JobStart(1, 100, "orbit-wire")})
	require.NoError(t, err)
	e1, err := c.Emit(Event{Payload: JobComplete(10, "deadbeef")})
	require.NoError(t, err)
	require.Equal(t, uint64(0), e0.Sequence)
	require.Equal(t, uint64(1), e1.Sequence)
	require.NotEmpty(t, e0.IntegrityHash)
	require.NotEqual(t, e0.IntegrityHash, e1.IntegrityHash)
	require.NoError(t, c.Close())
}

// tampering with any byte of an earlier event is detected during
// validation, and every event from that point on is reported invalid.
func TestChainDetectsTampering(t *testing.T) {
	path := chainPath(t)
	signer := SignerFromBytes([]byte("test-secret"))

	c, err := Open(path, signer)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := c.Emit(Event{Payload: FileComplete(500, 20, "cafebabe")})
		require.NoError(t, err)
	}
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip the first 'c' in the file. It falls in the first line's
	// "trace_id" key, before the integrity_hash field, so the corruption
	// is unambiguously inside the first event.
	idx := -1
	for i, b := range data {
		if b == 'c' { // the 'c' of "trace_id" on line 1
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	data[idx] = 'd'
	require.NoError(t, os.WriteFile(path, data, 0o600))

	report, err := Validate(path, signer)
	require.NoError(t, err)
	require.False(t, report.OK())
	require.Equal(t, 1, report.FirstFailure)
	require.Equal(t, 0, report.ValidEvents)
}

func TestChainResumesAcrossReopen(t *testing.T) {
	path := chainPath(t)
	signer := SignerFromBytes([]byte("test-secret"))

	c1, err := Open(path, signer)
	require.NoError(t, err)
	last, err := c1.Emit(Event{Payload: JobStart(1, 10, "orbit-wire")})
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	c2, err := Open(path, signer)
	require.NoError(t, err)
	next, err := c2.Emit(Event{Payload: JobComplete(1, "digest")})
	require.NoError(t, err)
	require.NoError(t, c2.Close())

	require.Equal(t, last.Sequence+1, next.Sequence)

	report, err := Validate(path, signer)
	require.NoError(t, err)
	require.True(t, report.OK())
	require.Equal(t, 2, report.TotalEvents)
}

func TestChainWithoutSignerSkipsHashing(t *testing.T) {
	path := chainPath(t)
	c, err := Open(path, nil)
	require.NoError(t, err)
	e, err := c.Emit(Event{Payload: SpanStart("scan", "internal")})
	require.NoError(t, err)
	require.Empty(t, e.IntegrityHash)
	require.NoError(t, c.Close())

	report, err := Validate(path, nil)
	require.NoError(t, err)
	require.Equal(t, 1, report.TotalEvents)
	require.True(t, report.OK())
}

func TestChainDifferentSignerFailsValidation(t *testing.T) {
	path := chainPath(t)
	c, err := Open(path, SignerFromBytes([]byte("real-secret")))
	require.NoError(t, err)
	_, err = c.Emit(Event{Payload: WindowOK(1, 4096, false)})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	report, err := Validate(path, SignerFromBytes([]byte("wrong-secret")))
	require.NoError(t, err)
	require.False(t, report.OK())
}
