package model

// SyscallPhase is a task's position in the Outside/Inside state machine of
// spec.md §4.5. Invariant I8: Inside iff Pending != nil.
type SyscallPhase int

const (
	Outside SyscallPhase = iota
	Inside
)

// CloneWait is the in-flight state of a clone-family syscall: the flags
// captured at entry, and the child pid once the registry has matched it
// against an observed stop (spec.md §3 "clone_rendezvous").
type CloneWait struct {
	Flags uint64
	Child *int
}

// TaskState is the per-task record the registry owns (spec.md §3).
type TaskState struct {
	Pid int

	FDTable *FdTable
	FSInfo  *FsInfo

	Phase   SyscallPhase
	Pending interface{} // the in-flight syscalls.Handler, opaque to model

	CloneWait *CloneWait
	Exiting   bool
}
