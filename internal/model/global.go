package model

// Memory is the subset of the "Tracer boundary (consumed)" of spec.md §6
// that syscall handlers need during their entry phase: reading raw tracee
// memory and NUL-terminated strings out of it. The concrete implementation
// lives in internal/ptrace and is wired in by the event loop; model and
// syscalls only ever see this interface.
type Memory interface {
	ReadMemory(pid int, addr uint64, length int) ([]byte, error)
	ReadCString(pid int, addr uint64, max int) (string, error)
}

// GlobalState is the single mutable model instance the event loop owns and
// passes (by pointer) to every handler's exit method (spec.md §3
// "GlobalState", §9 "no process-wide singletons").
type GlobalState struct {
	Registry *Registry
	Store    *Store
	Warnings *Warnings
	Resolver *Resolver
	Memory   Memory

	RootPid        int
	InitialWorkdir string
	InitialEnv     []string
	InitialArgv    []string
}

// NewGlobalState wires up a fresh model instance rooted at rootPid.
func NewGlobalState(rootPid int, workdir string, env, argv []string, mem Memory) *GlobalState {
	store := NewStore()
	warn := NewWarnings()
	registry := NewRegistry(store)
	registry.SetInitialWorkdir(workdir)
	return &GlobalState{
		Registry:       registry,
		Store:          store,
		Warnings:       warn,
		Resolver:       NewResolver(warn),
		Memory:         mem,
		RootPid:        rootPid,
		InitialWorkdir: workdir,
		InitialEnv:     env,
		InitialArgv:    argv,
	}
}
