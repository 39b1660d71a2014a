package loop

import (
	"github.com/ctrtrace/tracecore/internal/logging"
	"github.com/ctrtrace/tracecore/internal/model"
	"github.com/ctrtrace/tracecore/internal/syscalls"
)

// Loop is the event loop driver of spec.md §4.8: it owns the process
// registry and global state, and drives them exclusively from Source.
type Loop struct {
	Source  EventSource
	Global  *model.GlobalState
	Verbose bool
}

// New wires a Loop over an already-constructed GlobalState.
func New(source EventSource, global *model.GlobalState) *Loop {
	return &Loop{Source: source, Global: global}
}

// Run drains events until the root task terminates or the source itself
// errors (spec.md §4.8's main procedure). It returns the root task's exit
// code, or 128+signal if it died by signal.
func (l *Loop) Run() (int, error) {
	for {
		ev, err := l.Source.NextEvent()
		if err != nil {
			return 0, err
		}
		done, code, err := l.dispatch(ev)
		if err != nil {
			return 0, err
		}
		if done {
			return code, nil
		}
	}
}

// dispatch handles one event, recovering a *model.Fault panic raised by a
// handler (e.g. a clone rendez-vous protocol violation) into a returned
// error rather than crashing the process — spec.md §9 "surface these as
// typed fatal errors, never silent".
func (l *Loop) dispatch(ev Event) (done bool, code int, err error) {
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(*model.Fault); ok {
				err = f
				return
			}
			panic(r)
		}
	}()

	switch ev.Kind {
	case Exit:
		l.Global.Registry.MarkExiting(ev.Pid)
		logging.Debugf(ev.Pid, "exited with code %d", ev.Code)
		if ev.Pid == l.Global.RootPid {
			return true, ev.Code, nil
		}
	case Signalled:
		l.Global.Registry.MarkExiting(ev.Pid)
		logging.Debugf(ev.Pid, "killed by signal %d", ev.Signo)
		if ev.Pid == l.Global.RootPid {
			return true, 128 + ev.Signo, nil
		}
	case Stop:
		l.handleStop(ev)
		l.continueTask(ev.Pid, ev.Signo)
	case SyscallEntry:
		l.handleEntry(ev)
		l.continueTask(ev.Pid, 0)
	case SyscallExit:
		l.handleExit(ev)
		l.continueTask(ev.Pid, 0)
	case Continued:
	}
	return false, 0, nil
}

func (l *Loop) continueTask(pid, signal int) {
	if err := l.Source.Continue(pid, signal); err != nil {
		logging.Errorf(pid, "failed to continue: %v", err)
	}
}

// handleStop resolves the lazy half of clone rendez-vous (spec.md §4.5):
// the first stop ever observed for a pid either completes a matching
// creator's rendez-vous or, absent one, creates the task as if parentless.
func (l *Loop) handleStop(ev Event) {
	if _, ok := l.Global.Registry.Get(ev.Pid); ok {
		logging.Debugf(ev.Pid, "stop signo=%d", ev.Signo)
		return
	}
	if ev.ParentPid != 0 {
		l.Global.Registry.ObserveStop(ev.Pid, ev.ParentPid)
	} else {
		l.Global.Registry.EnsureRoot(ev.Pid)
	}
	logging.Debugf(ev.Pid, "new task observed (parent=%d)", ev.ParentPid)
}

// handleEntry constructs and calls the handler for a syscall-entry event,
// then records it as the task's pending handler (spec.md §4.6).
func (l *Loop) handleEntry(ev Event) {
	task, ok := l.Global.Registry.Get(ev.Pid)
	if !ok {
		task = l.Global.Registry.EnsureRoot(ev.Pid)
	}
	h := syscalls.New(ev.Nr)
	if err := l.Global.Registry.Enter(ev.Pid, h); err != nil {
		panic(err)
	}
	args := syscalls.Args{Raw: ev.Args}
	h.Entry(task, l.Global, args)
	if l.Verbose {
		logging.Debugf(ev.Pid, "%s", h.EntryLog(task, l.Global, args))
	}
}

// handleExit retrieves and discards the task's pending handler, calling its
// exit method with the observed return value (spec.md §4.6).
func (l *Loop) handleExit(ev Event) {
	pending, err := l.Global.Registry.Exit(ev.Pid)
	if err != nil {
		panic(err)
	}
	h, ok := pending.(syscalls.Handler)
	if !ok {
		panic(model.NewFault(model.FaultProtocolViolation, "pid %d syscall-exit with no pending handler", ev.Pid))
	}
	task, _ := l.Global.Registry.Get(ev.Pid)
	h.Exit(task, l.Global, ev.RetVal, ev.IsError)
	if l.Verbose {
		logging.Debugf(ev.Pid, "%s", h.ExitLog(task, l.Global, ev.RetVal, ev.IsError))
	}
}
