package model

import (
	"strconv"
	"sync"
)

// FdTable maps a task's file descriptors to the FileRecord they currently
// refer to. The record is borrowed; ownership lives in the Store. Sharing
// is identity sharing (spec.md §3 invariant I6): tasks pointing at the same
// *FdTable observe each other's bind/close calls.
type FdTable struct {
	mu      sync.Mutex
	entries map[int]*FileRecord
}

// NewFdTable returns an empty FD table.
func NewFdTable() *FdTable {
	return &FdTable{entries: make(map[int]*FileRecord)}
}

// Clone makes a private, independent copy of the current bindings (used
// when CLONE_FILES is not set at clone-exit).
func (t *FdTable) Clone() *FdTable {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := NewFdTable()
	for fd, rec := range t.entries {
		out.entries[fd] = rec
	}
	return out
}

// Bind inserts or replaces the fd -> record mapping.
func (t *FdTable) Bind(fd int, rec *FileRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[fd] = rec
}

// Close removes the mapping, silently tolerating a missing key.
func (t *FdTable) Close(fd int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, fd)
}

// Lookup returns the record bound to fd, if any. This is the non-logging
// form of spec.md §4.3's lookup.
func (t *FdTable) Lookup(fd int) (*FileRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.entries[fd]
	return rec, ok
}

// LookupOrSynthesize is the logging form: a miss synthesizes and binds an
// error record (via store) so invariant I1 ("every FD table entry points to
// a live record") holds even for bogus lookups, and records a warning.
func (t *FdTable) LookupOrSynthesize(fd int, store *Store, warn *Warnings, context string) *FileRecord {
	if rec, ok := t.Lookup(fd); ok {
		return rec
	}
	rec := store.NewErrorRecord()
	t.Bind(fd, rec)
	warn.Emit("unknown fd " + strconv.Itoa(fd) + " referenced by " + context)
	return rec
}

// Alias implements dup/dup2/dup3/fcntl(F_DUPFD*) per spec.md §4.3: if
// oldFd is unknown, an error record is synthesized and bound to oldFd
// first, then newFd is bound to that same record.
func Alias(store *Store, warn *Warnings, table *FdTable, newFd, oldFd int, context string) *FileRecord {
	rec := table.LookupOrSynthesize(oldFd, store, warn, context)
	table.Bind(newFd, rec)
	return rec
}

// Entries returns a snapshot fd -> record map, used by back-ends that want
// a final picture of a task's open descriptors.
func (t *FdTable) Entries() map[int]*FileRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[int]*FileRecord, len(t.entries))
	for fd, rec := range t.entries {
		out[fd] = rec
	}
	return out
}
