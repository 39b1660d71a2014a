package model

import "github.com/pkg/errors"

// FaultKind classifies a fatal, non-recoverable error: one that aborts the
// event loop rather than being folded into Warnings. These correspond to
// the TracerDecode and protocol-violation entries of spec.md §7.
type FaultKind int

const (
	// FaultTracerDecode means the platform tracer handed the core an
	// impossible value (syscall-entry without -ENOSYS, a mismatched
	// clone3 struct size, ...).
	FaultTracerDecode FaultKind = iota
	// FaultProtocolViolation means a task's Outside/Inside state machine
	// was driven out of order (exit while Outside, entry while Inside).
	FaultProtocolViolation
)

func (k FaultKind) String() string {
	switch k {
	case FaultTracerDecode:
		return "tracer-decode"
	case FaultProtocolViolation:
		return "protocol-violation"
	default:
		return "fault"
	}
}

// Fault is a fatal condition per spec.md §7: "Fatal conditions abort the
// loop." It always carries a stack trace via github.com/pkg/errors so the
// terminal summary can show where the protocol broke.
type Fault struct {
	Kind FaultKind
	err  error
}

func (f *Fault) Error() string {
	return f.Kind.String() + ": " + f.err.Error()
}

// Unwrap exposes the underlying stack-carrying error for errors.Is/As.
func (f *Fault) Unwrap() error { return f.err }

// NewFault builds a Fault, formatting msg/args with errors.Errorf so the
// resulting error carries a stack trace.
func NewFault(kind FaultKind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, err: errors.Errorf(format, args...)}
}
