package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureRootPrePopulatesStdio(t *testing.T) {
	store := NewStore()
	reg := NewRegistry(store)

	task := reg.EnsureRoot(100)
	for fd, name := range map[int]string{0: "stdin", 1: "stdout", 2: "stderr"} {
		rec, ok := task.FDTable.Lookup(fd)
		require.True(t, ok)
		assert.Equal(t, name, rec.RealPath)
	}
}

func TestEnsureRootOnlyPrePopulatesFirstTask(t *testing.T) {
	store := NewStore()
	reg := NewRegistry(store)
	reg.EnsureRoot(1)
	second := reg.EnsureRoot(2)

	_, ok := second.FDTable.Lookup(0)
	assert.False(t, ok, "only the very first task gets synthetic stdio")
}

func TestCloneSharingCLONE_FILES_FS(t *testing.T) {
	store := NewStore()
	reg := NewRegistry(store)
	parent := reg.EnsureRoot(1)

	flags := cloneFiles | cloneFS
	require.NoError(t, reg.BeginClone(1, flags))
	child, err := reg.CompleteCloneExit(1, 42)
	require.NoError(t, err)

	assert.Same(t, parent.FDTable, child.FDTable, "CLONE_FILES must share identity")
	assert.Same(t, parent.FSInfo, child.FSInfo, "CLONE_FS must share identity")

	rec := store.CreateUnbacked(KindRegularFile, "/etc/hosts")
	child.FDTable.Bind(3, rec)
	got, ok := parent.FDTable.Lookup(3)
	require.True(t, ok)
	assert.Same(t, rec, got)
}

func TestCloneWithoutSharingCopies(t *testing.T) {
	store := NewStore()
	reg := NewRegistry(store)
	parent := reg.EnsureRoot(1)
	parent.FDTable.Bind(5, store.CreateUnbacked(KindPipe, "pipe_5"))

	require.NoError(t, reg.BeginClone(1, 0))
	child, err := reg.CompleteCloneExit(1, 43)
	require.NoError(t, err)

	assert.NotSame(t, parent.FDTable, child.FDTable)
	_, ok := child.FDTable.Lookup(5)
	assert.True(t, ok, "a private copy still has the bindings present at clone time")

	child.FDTable.Close(5)
	_, ok = parent.FDTable.Lookup(5)
	assert.True(t, ok, "closing in the child must not affect the independent parent table")
}

func TestObserveStopCompletesRendezvousBeforeCloneExit(t *testing.T) {
	store := NewStore()
	reg := NewRegistry(store)
	parent := reg.EnsureRoot(1)
	require.NoError(t, reg.BeginClone(1, cloneFiles))

	// Lazy path: tracer reports the child stop before the parent's
	// clone-exit is processed.
	child := reg.ObserveStop(99, 1)
	assert.Same(t, parent.FDTable, child.FDTable)

	// The eventual clone-exit on the parent must reconcile, not duplicate.
	reconciled, err := reg.CompleteCloneExit(1, 99)
	require.NoError(t, err)
	assert.Same(t, child, reconciled)
}

func TestBeginCloneTwiceIsFatal(t *testing.T) {
	store := NewStore()
	reg := NewRegistry(store)
	reg.EnsureRoot(1)
	require.NoError(t, reg.BeginClone(1, 0))
	err := reg.BeginClone(1, 0)
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, FaultProtocolViolation, fault.Kind)
}

func TestEnterExitStateMachine(t *testing.T) {
	store := NewStore()
	reg := NewRegistry(store)
	reg.EnsureRoot(1)

	require.NoError(t, reg.Enter(1, "handler-for-open"))
	err := reg.Enter(1, "again")
	assert.Error(t, err, "entry while Inside is fatal")

	h, err := reg.Exit(1)
	require.NoError(t, err)
	assert.Equal(t, "handler-for-open", h)

	_, err = reg.Exit(1)
	assert.Error(t, err, "exit while Outside is fatal")
}
