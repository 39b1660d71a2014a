package model

import "sync"

// Linux clone(2) flag bits the registry needs to decide FD-table/FS-info
// sharing. Stable kernel ABI values (see include/uapi/linux/sched.h);
// kept as local constants rather than importing golang.org/x/sys/unix here
// so the model package carries no platform build tag of its own (the
// concrete tracer in internal/ptrace and the syscall numbers in
// internal/syscalls are the Linux-specific parts).
const (
	cloneVM    uint64 = 0x00000100
	cloneFS    uint64 = 0x00000200
	cloneFiles uint64 = 0x00000400
	cloneVfork uint64 = 0x00004000
)

// VforkFlags and ForkFlags are the hard-coded flag masks spec.md §4.7
// prescribes for vfork/fork, since those syscalls carry no flags argument
// of their own.
const (
	ForkFlags  uint64 = 0
	VforkFlags uint64 = cloneVfork | cloneVM
)

// Registry is the pid -> TaskState map plus the stdio/clone-rendezvous
// bootstrapping logic of spec.md §4.5.
type Registry struct {
	mu          sync.Mutex
	store       *Store
	tasks       map[int]*TaskState
	rootWorkdir string
}

// NewRegistry returns an empty registry. store is used only to allocate the
// synthetic stdio records for the very first task.
func NewRegistry(store *Store) *Registry {
	return &Registry{store: store, tasks: make(map[int]*TaskState), rootWorkdir: "/"}
}

// SetInitialWorkdir seeds the working directory the very first task is
// created with (GlobalState.InitialWorkdir); a no-op once that task already
// exists.
func (r *Registry) SetInitialWorkdir(wd string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tasks) == 0 {
		r.rootWorkdir = wd
	}
}

// Get returns the task state for pid, if known.
func (r *Registry) Get(pid int) (*TaskState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[pid]
	return t, ok
}

// EnsureRoot creates state for a pid with no known parent: either the very
// first task the tracer ever reports, or a child observed before any clone
// rendezvous could match it (spec.md §4.5 "Creating a task without known
// parent").
func (r *Registry) EnsureRoot(pid int) *TaskState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureRootLocked(pid)
}

func (r *Registry) ensureRootLocked(pid int) *TaskState {
	if t, ok := r.tasks[pid]; ok {
		return t
	}
	first := len(r.tasks) == 0
	t := &TaskState{
		Pid:     pid,
		FDTable: NewFdTable(),
		FSInfo:  NewFsInfo(r.rootWorkdir),
	}
	if first {
		t.FDTable.Bind(0, r.store.CreateUnbacked(KindOther, "stdin"))
		t.FDTable.Bind(1, r.store.CreateUnbacked(KindOther, "stdout"))
		t.FDTable.Bind(2, r.store.CreateUnbacked(KindOther, "stderr"))
	}
	r.tasks[pid] = t
	return t
}

func deriveChild(parent *TaskState, childPid int, flags uint64) *TaskState {
	child := &TaskState{Pid: childPid}
	if flags&cloneFiles != 0 {
		child.FDTable = parent.FDTable
	} else {
		child.FDTable = parent.FDTable.Clone()
	}
	if flags&cloneFS != 0 {
		child.FSInfo = parent.FSInfo
	} else {
		child.FSInfo = parent.FSInfo.Clone()
	}
	return child
}

// BeginClone records the flags of an in-flight clone-family syscall
// (spec.md §4.7 "fork / vfork / clone / clone3", entry half). It is a fatal
// protocol violation for a task to already have an unmatched rendezvous
// (invariant I7).
func (r *Registry) BeginClone(pid int, flags uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.ensureRootLocked(pid)
	if t.CloneWait != nil {
		return NewFault(FaultProtocolViolation, "pid %d already has an unmatched clone rendezvous", pid)
	}
	t.CloneWait = &CloneWait{Flags: flags}
	return nil
}

// AbortClone clears a rendezvous without completing it (clone-exit
// observed a negative/error return value).
func (r *Registry) AbortClone(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[pid]; ok {
		t.CloneWait = nil
	}
}

// CompleteCloneExit is the exit half of spec.md §4.7's clone handling: the
// creator's clone-like syscall returned a valid child pid. If the lazy path
// (ObserveStop) already created the child, its shared refs are replaced
// with the ones derived from the authoritative flags; otherwise the child
// is created fresh.
func (r *Registry) CompleteCloneExit(creatorPid, childPid int) (*TaskState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	creator, ok := r.tasks[creatorPid]
	if !ok || creator.CloneWait == nil {
		return nil, NewFault(FaultProtocolViolation, "clone-exit on pid %d with no matching entry", creatorPid)
	}
	flags := creator.CloneWait.Flags
	child := deriveChild(creator, childPid, flags)
	if existing, ok := r.tasks[childPid]; ok {
		existing.FDTable = child.FDTable
		existing.FSInfo = child.FSInfo
		child = existing
	} else {
		r.tasks[childPid] = child
	}
	creator.CloneWait = nil
	return child, nil
}

// ObserveStop is the lazy child-creation path: the tracer reported a stop
// for a pid the registry has never seen. If parentPid has an unmatched
// rendezvous, it is completed now (sharing derived from its flags);
// otherwise the child is created parentless, to be reconciled when the
// creator's clone-exit eventually arrives.
func (r *Registry) ObserveStop(childPid, parentPid int) *TaskState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[childPid]; ok {
		return t
	}
	if parent, ok := r.tasks[parentPid]; ok && parent.CloneWait != nil && parent.CloneWait.Child == nil {
		child := deriveChild(parent, childPid, parent.CloneWait.Flags)
		r.tasks[childPid] = child
		pid := childPid
		parent.CloneWait.Child = &pid
		return child
	}
	return r.ensureRootLocked(childPid)
}

// MarkExiting sets the exiting flag and removes the task from the
// registry; spec.md §4.5 notes the kernel may reuse the pid, so callers
// should treat a subsequent EnsureRoot/ObserveStop for the same pid as a
// brand-new task.
func (r *Registry) MarkExiting(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[pid]; ok {
		t.Exiting = true
		delete(r.tasks, pid)
	}
}

// Enter drives Outside -> Inside on syscall-entry, attaching handler as the
// pending per-syscall state. A task already Inside is a fatal protocol
// violation (invariant I8).
func (r *Registry) Enter(pid int, handler interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.ensureRootLocked(pid)
	if t.Phase != Outside {
		return NewFault(FaultProtocolViolation, "syscall-entry while pid %d already Inside", pid)
	}
	t.Phase = Inside
	t.Pending = handler
	return nil
}

// Exit drives Inside -> Outside on syscall-exit, returning (and clearing)
// the pending handler. A task that is Outside is a fatal protocol
// violation.
func (r *Registry) Exit(pid int) (interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[pid]
	if !ok || t.Phase != Inside {
		return nil, NewFault(FaultProtocolViolation, "syscall-exit while pid %d is Outside", pid)
	}
	h := t.Pending
	t.Phase = Outside
	t.Pending = nil
	return h, nil
}

// Tasks returns a snapshot of every currently-known pid.
func (r *Registry) Tasks() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.tasks))
	for pid := range r.tasks {
		out = append(out, pid)
	}
	return out
}
