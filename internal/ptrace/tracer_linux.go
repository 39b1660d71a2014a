// Package ptrace is the concrete Linux platform tracer of SPEC_FULL.md §4.9:
// it starts the traced command under PTRACE_TRACEME (exec.Cmd with
// SysProcAttr.Ptrace), applies PTRACE_SETOPTIONS, and
// turns raw wait4(2) statuses into the neutral loop.Event sum type. Nothing
// outside this package ever sees a PTRACE_* constant or a wait status word -
// internal/model and internal/loop stay platform-free by construction.
package ptrace

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/ctrtrace/tracecore/internal/loop"
	"golang.org/x/sys/unix"
)

const traceOptions = unix.PTRACE_O_TRACESYSGOOD |
	unix.PTRACE_O_TRACECLONE |
	unix.PTRACE_O_TRACEFORK |
	unix.PTRACE_O_TRACEVFORK |
	unix.PTRACE_O_TRACEEXEC |
	unix.PTRACE_O_EXITKILL

// Tracer drives ptrace over the tree rooted at the process it starts. It
// implements loop.EventSource and, via memory_linux.go, model.Memory.
type Tracer struct {
	mu sync.Mutex

	cmd     *exec.Cmd
	rootPid int

	// parents maps a pid the tracer has seen a PTRACE_EVENT_{CLONE,FORK,
	// VFORK} stop for to the pid that created it, resolved via
	// PTRACE_GETEVENTMSG on the creator's extended-event stop. This is how
	// the loop's lazy clone-rendezvous path (model.Registry.ObserveStop)
	// learns a newly-observed pid's parent without /proc/<pid>/status
	// ever being consulted.
	parents map[int]int

	// inSyscall toggles per pid between an entry stop and an exit stop:
	// PTRACE_O_TRACESYSGOOD delivers the identical SIGTRAP|0x80 for both
	// halves of a syscall, so the tracer - not the kernel - must track
	// which half a given stop is.
	inSyscall map[int]bool
}

// Start execs path with args under ptrace, stopping it at the first signal
// delivery (the traditional "stopped itself with SIGTRAP right after
// execve" ptrace convention applies because SysProcAttr.Ptrace is set, which
// makes the runtime call PTRACE_TRACEME in the child before exec).
func Start(path string, args []string, env []string, stdout, stderr *os.File) (*Tracer, error) {
	cmd := exec.Command(path, args...)
	cmd.Env = env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Stdin = os.Stdin
	cmd.SysProcAttr = &unix.SysProcAttr{Ptrace: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ptrace: starting %s: %w", path, err)
	}
	pid := cmd.Process.Pid

	var ws unix.WaitStatus
	if _, err := unix.Wait4(pid, &ws, 0, nil); err != nil {
		return nil, fmt.Errorf("ptrace: initial wait4 on pid %d: %w", pid, err)
	}
	if err := unix.PtraceSetOptions(pid, traceOptions); err != nil {
		return nil, fmt.Errorf("ptrace: setoptions on pid %d: %w", pid, err)
	}
	if err := unix.PtraceSyscall(pid, 0); err != nil {
		return nil, fmt.Errorf("ptrace: initial syscall-continue on pid %d: %w", pid, err)
	}

	return &Tracer{
		cmd:       cmd,
		rootPid:   pid,
		parents:   make(map[int]int),
		inSyscall: make(map[int]bool),
	}, nil
}

// RootPid returns the pid of the process Start launched.
func (t *Tracer) RootPid() int { return t.rootPid }

// NextEvent blocks on wait4(-1, ...) for the next stop across the whole
// traced tree and decodes it into a loop.Event (spec.md §6).
func (t *Tracer) NextEvent() (loop.Event, error) {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, 0, nil)
		if err != nil {
			return loop.Event{}, fmt.Errorf("ptrace: wait4: %w", err)
		}

		switch {
		case ws.Exited():
			t.forget(pid)
			return loop.Event{Kind: loop.Exit, Pid: pid, Code: ws.ExitStatus()}, nil

		case ws.Signaled():
			t.forget(pid)
			return loop.Event{Kind: loop.Signalled, Pid: pid, Signo: int(ws.Signal())}, nil

		case ws.Stopped():
			ev, handled := t.decodeStop(pid, ws)
			if !handled {
				continue
			}
			return ev, nil
		}
	}
}

// decodeStop turns a single "stopped" wait status into an Event. The second
// return value is false for stops the tracer fully handles itself (the
// PTRACE_EVENT_* extended-event stop on the *creator*, which only exists to
// extract the new child's pid via PTRACE_GETEVENTMSG) without surfacing
// anything to the loop.
func (t *Tracer) decodeStop(pid int, ws unix.WaitStatus) (loop.Event, bool) {
	sig := ws.StopSignal()
	cause := ws.TrapCause()

	switch {
	case sig == unix.SIGTRAP && isCloneFamily(cause):
		childPid, err := unix.PtraceGetEventMsg(pid)
		if err == nil {
			t.mu.Lock()
			t.parents[int(childPid)] = pid
			t.mu.Unlock()
		}
		_ = unix.PtraceSyscall(pid, 0)
		return loop.Event{}, false

	case sig == unix.SIGTRAP && cause == unix.PTRACE_EVENT_EXEC:
		return loop.Event{Kind: loop.Stop, Pid: pid, Extended: loop.ExtendedExec}, true

	case int(sig)&0x80 != 0 && sig&0x7f == unix.SIGTRAP:
		return t.decodeSyscallStop(pid), true

	default:
		// A genuine group-stop / signal-delivery-stop, or the initial
		// SIGSTOP a freshly-seized child reports. Surface it as a Stop so
		// the loop can register a never-before-seen pid, then resume
		// delivering the original signal.
		t.mu.Lock()
		parent := t.parents[pid]
		t.mu.Unlock()
		return loop.Event{Kind: loop.Stop, Pid: pid, Signo: int(sig), ParentPid: parent}, true
	}
}

func isCloneFamily(cause int) bool {
	return cause == unix.PTRACE_EVENT_CLONE || cause == unix.PTRACE_EVENT_FORK || cause == unix.PTRACE_EVENT_VFORK
}

// decodeSyscallStop reads registers and toggles the per-pid entry/exit
// phase (spec.md §4.6's entry/exit pairing is the loop's job; picking which
// half this particular stop is belongs to the tracer, since only the tracer
// sees the raw, duplicated SIGTRAP|0x80).
func (t *Tracer) decodeSyscallStop(pid int) loop.Event {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(pid, &regs); err != nil {
		return loop.Event{Kind: loop.Stop, Pid: pid, Signo: int(unix.SIGTRAP)}
	}

	t.mu.Lock()
	entering := !t.inSyscall[pid]
	t.inSyscall[pid] = entering
	t.mu.Unlock()

	if entering {
		return loop.Event{
			Kind: loop.SyscallEntry,
			Pid:  pid,
			Nr:   syscallNr(&regs),
			Args: syscallArgs(&regs),
		}
	}
	retval, isErr := syscallReturn(&regs)
	return loop.Event{Kind: loop.SyscallExit, Pid: pid, RetVal: retval, IsError: isErr}
}

// Continue resumes pid with PTRACE_SYSCALL, delivering signal if non-zero
// (spec.md §6 "Continue(pid, signal)").
func (t *Tracer) Continue(pid, signal int) error {
	return unix.PtraceSyscall(pid, signal)
}

func (t *Tracer) forget(pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inSyscall, pid)
	for child, parent := range t.parents {
		if parent == pid {
			delete(t.parents, child)
		}
	}
}

// Wait blocks until the root command's Go-side *exec.Cmd bookkeeping
// completes, reaping its process. Call only after NextEvent has reported an
// Exit/Signalled event for RootPid.
func (t *Tracer) Wait() error {
	return t.cmd.Wait()
}
