package model

import "sync"

// Warnings accumulates the non-fatal diagnostics described in SPEC_FULL.md
// §7: per-syscall one-shot warnings (rename, unknown syscalls) plus a
// free-form log of everything else (unknown FDs, path resolution fallbacks,
// exec probe mismatches).
type Warnings struct {
	mu        sync.Mutex
	bySyscall map[int64]struct{}
	messages  []string
}

// NewWarnings returns an empty warning sink.
func NewWarnings() *Warnings {
	return &Warnings{bySyscall: make(map[int64]struct{})}
}

// Once records the warning for syscall nr only the first time it is called
// for that nr (spec.md §4.7 "rename" and §4.7 "Unhandled syscall numbers").
// It reports whether this call was the one that recorded it.
func (w *Warnings) Once(nr int64, msg string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.bySyscall[nr]; ok {
		return false
	}
	w.bySyscall[nr] = struct{}{}
	w.messages = append(w.messages, msg)
	return true
}

// Emit always appends msg to the free-form warning log.
func (w *Warnings) Emit(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msg)
}

// SyscallNumbers returns the set of syscall numbers that have triggered a
// one-shot warning.
func (w *Warnings) SyscallNumbers() []int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]int64, 0, len(w.bySyscall))
	for nr := range w.bySyscall {
		out = append(out, nr)
	}
	return out
}

// Messages returns a snapshot of every warning message recorded so far, in
// recording order.
func (w *Warnings) Messages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.messages))
	copy(out, w.messages)
	return out
}
