package ledger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, policy RestartPolicy) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(path, policy)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestInitAndStats(t *testing.T) {
	l := openTemp(t, ResetProcessingToPending)
	require.NoError(t, l.InitFromManifest("job-1", []string{"a", "b", "c"}))

	stats, err := l.GetStats("job-1")
	require.NoError(t, err)
	require.Equal(t, Stats{Total: 3, Pending: 3}, stats)
}

// claim_pending is exclusive — a claimed row never reappears as pending
// within the same ledger until released.
func TestClaimPendingExclusivity(t *testing.T) {
	l := openTemp(t, ResetProcessingToPending)
	require.NoError(t, l.InitFromManifest("job-1", []string{"only"}))

	slot, ok, err := l.ClaimPending("job-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "only", slot.Chunk)
	require.Equal(t, Processing, slot.Status)

	_, ok, err = l.ClaimPending("job-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMarkStatusAndFailed(t *testing.T) {
	l := openTemp(t, ResetProcessingToPending)
	require.NoError(t, l.InitFromManifest("job-1", []string{"a"}))
	_, _, err := l.ClaimPending("job-1")
	require.NoError(t, err)

	require.NoError(t, l.MarkFailed("job-1", "a", errors.New("disk full")))
	stats, err := l.GetStats("job-1")
	require.NoError(t, err)
	require.Equal(t, 1, stats.Failed)

	// Reset it back to pending explicitly; failed chunks stay excluded
	// from ClaimPending until this happens.
	require.NoError(t, l.MarkStatus("job-1", "a", Pending, ""))
	_, ok, err := l.ClaimPending("job-1")
	require.NoError(t, err)
	require.True(t, ok)
}

// a chunk with unmet dependencies is never claimable or topo-ready.
func TestDependencyOrdering(t *testing.T) {
	l := openTemp(t, ResetProcessingToPending)
	require.NoError(t, l.InitFromManifest("job-1", []string{"parent", "child"}))
	require.NoError(t, l.AddDependency("job-1", "child", []string{"parent"}))

	ready, err := l.TopoSortReady("job-1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"parent"}, ready)

	slot, ok, err := l.ClaimPending("job-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "parent", slot.Chunk)

	_, ok, err = l.ClaimPending("job-1")
	require.NoError(t, err)
	require.False(t, ok, "child should not be claimable before parent is done")

	require.NoError(t, l.MarkStatus("job-1", "parent", Done, ""))

	ready, err = l.TopoSortReady("job-1")
	require.NoError(t, err)
	require.Equal(t, []string{"child"}, ready)

	slot, ok, err = l.ClaimPending("job-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "child", slot.Chunk)
}

func TestAddDependencyRejectsCycle(t *testing.T) {
	l := openTemp(t, ResetProcessingToPending)
	require.NoError(t, l.InitFromManifest("job-1", []string{"a", "b"}))
	require.NoError(t, l.AddDependency("job-1", "b", []string{"a"}))

	err := l.AddDependency("job-1", "a", []string{"b"})
	require.ErrorIs(t, err, ErrCyclicDependency)

	err = l.AddDependency("job-1", "a", []string{"a"})
	require.ErrorIs(t, err, ErrCyclicDependency)
}

// crash recovery — rows left processing are reclaimed as pending under
// the default restart policy, once the ledger is reopened.
func TestCrashRecoveryResetsProcessing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l1, err := Open(path, ResetProcessingToPending)
	require.NoError(t, err)
	require.NoError(t, l1.InitFromManifest("job-1", []string{"a"}))
	_, ok, err := l1.ClaimPending("job-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, l1.Close()) // simulate abrupt termination: no MarkStatus call

	l2, err := Open(path, ResetProcessingToPending)
	require.NoError(t, err)
	defer l2.Close()

	rows, err := l2.ResumePending("job-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, Pending, rows[0].Status)
}

func TestCrashRecoverySurfaceAsIs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l1, err := Open(path, ResetProcessingToPending)
	require.NoError(t, err)
	require.NoError(t, l1.InitFromManifest("job-1", []string{"a"}))
	_, ok, err := l1.ClaimPending("job-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, l1.Close())

	l2, err := Open(path, SurfaceAsIs)
	require.NoError(t, err)
	defer l2.Close()

	rows, err := l2.ResumePending("job-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, Processing, rows[0].Status)
}

func TestDeleteJob(t *testing.T) {
	l := openTemp(t, ResetProcessingToPending)
	require.NoError(t, l.InitFromManifest("job-1", []string{"a"}))
	require.NoError(t, l.DeleteJob("job-1"))

	_, err := l.GetStats("job-1")
	require.ErrorIs(t, err, ErrJobNotFound)
}
