package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFdTableBindLookupClose(t *testing.T) {
	store := NewStore()
	table := NewFdTable()
	rec := store.CreateUnbacked(KindPipe, "pipe_read_7")

	table.Bind(7, rec)
	got, ok := table.Lookup(7)
	require.True(t, ok)
	assert.Same(t, rec, got)

	table.Close(7)
	_, ok = table.Lookup(7)
	assert.False(t, ok, "P3: lookup after close must miss")
}

func TestFdTableCloneIsIndependent(t *testing.T) {
	store := NewStore()
	table := NewFdTable()
	rec := store.CreateUnbacked(KindSocket, "socket_3")
	table.Bind(3, rec)

	clone := table.Clone()
	clone.Close(3)

	_, ok := table.Lookup(3)
	assert.True(t, ok, "closing on the clone must not affect the original")
}

func TestFdTableSharedIdentity(t *testing.T) {
	// P2: two tasks sharing an FdTable observe each other's writes.
	store := NewStore()
	shared := NewFdTable()
	taskA := &TaskState{Pid: 1, FDTable: shared}
	taskB := &TaskState{Pid: 2, FDTable: shared}

	rec := store.CreateUnbacked(KindRegularFile, "/etc/hosts")
	taskA.FDTable.Bind(3, rec)

	got, ok := taskB.FDTable.Lookup(3)
	require.True(t, ok)
	assert.Same(t, rec, got)
}

func TestAliasOfUnknownSynthesizesErrorRecord(t *testing.T) {
	store := NewStore()
	warn := NewWarnings()
	table := NewFdTable()

	rec := Alias(store, warn, table, 10, 1, "dup2(1, 10)")
	assert.Equal(t, "unknownFD ERROR 1", rec.RealPath)

	bound, ok := table.Lookup(1)
	require.True(t, ok)
	assert.Same(t, rec, bound, "old fd must also be bound to the synthesized record")

	newBound, ok := table.Lookup(10)
	require.True(t, ok)
	assert.Same(t, rec, newBound, "P4: dup and its target observe the same record")

	assert.Len(t, warn.Messages(), 1)
}

func TestAliasOfKnownFD(t *testing.T) {
	store := NewStore()
	warn := NewWarnings()
	table := NewFdTable()
	rec := store.CreateUnbacked(KindOther, "stdout")
	table.Bind(1, rec)

	got := Alias(store, warn, table, 10, 1, "dup2(1, 10)")
	assert.Same(t, rec, got)
	assert.Empty(t, warn.Messages())
}
