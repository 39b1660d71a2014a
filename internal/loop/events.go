// Package loop implements the event loop driver of SPEC_FULL.md §4.8: it
// owns the process registry and global state, consumes already-decoded
// events from a platform tracer, and dispatches syscalls.Handler instances.
package loop

// Kind discriminates the Event sum type of spec.md §6 ("Tracer boundary
// (consumed)").
type Kind int

const (
	SyscallEntry Kind = iota
	SyscallExit
	Stop
	Exit
	Signalled
	Continued
)

// Extended classifies a Stop event's ptrace extended-event marker (clone/
// fork/vfork/exec), decoded by the concrete tracer so this package stays
// free of any platform-specific constant.
type Extended int

const (
	ExtendedNone Extended = iota
	ExtendedClone
	ExtendedFork
	ExtendedVfork
	ExtendedVforkDone
	ExtendedExec
)

// Event is the uniform event the loop consumes, corresponding to spec.md
// §6's `Event ∈ { SyscallEntry(pid, nr, args[6]), SyscallExit(pid, retval,
// is_error), Stop(pid, signo, extended), Exit(pid, code), Signalled(pid,
// signo), Continued(pid) }`. Only the fields relevant to Kind are
// populated; the rest are zero.
type Event struct {
	Kind Kind
	Pid  int

	// SyscallEntry
	Nr   int64
	Args [6]uint64

	// SyscallExit
	RetVal  int64
	IsError bool

	// Stop / Signalled
	Signo    int
	Extended Extended
	// ParentPid is the ptrace-ancestry parent for a Stop event on a pid the
	// loop has not seen before (spec.md §4.5 "Clone rendez-vous"); zero
	// means the tracer could not determine one (the very first task).
	ParentPid int

	// Exit
	Code int
}

// EventSource is the "Tracer boundary (consumed)" of spec.md §6: the
// narrow interface the event loop and syscall handlers need from whatever
// actually stops tasks at syscall boundaries. internal/ptrace.Tracer is
// the concrete Linux implementation; the core never imports it directly.
type EventSource interface {
	NextEvent() (Event, error)
	ReadMemory(pid int, addr uint64, length int) ([]byte, error)
	ReadCString(pid int, addr uint64, max int) (string, error)
	Continue(pid int, signal int) error
}
