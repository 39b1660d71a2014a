// Package syscalls implements the uniform entry/exit handler protocol of
// SPEC_FULL.md §4.6 and the concrete per-syscall handlers of §4.7. Each
// handler is a small value type constructed afresh by New at syscall-entry
// and discarded by the event loop at the matching syscall-exit; state
// needed to bridge entry and exit lives only as that value's own fields.
package syscalls

import "github.com/ctrtrace/tracecore/internal/model"

// maxPathLen bounds a single ReadCString call for a path argument; Linux
// caps PATH_MAX at 4096 including the NUL.
const maxPathLen = 4096

// Args is the decoded syscall-entry payload: the six raw argument registers,
// in kernel calling-convention order. Handlers interpret only the ones they
// need.
type Args struct {
	Raw [6]uint64
}

// Handler is the closed protocol every concrete syscall implements
// (SPEC_FULL.md §4.6). entry must not mutate the model; exit commits the
// effect once success/failure is known. The *_log variants are pure
// functions of already-settled state, called only when verbose logging is
// enabled.
type Handler interface {
	Entry(task *model.TaskState, g *model.GlobalState, args Args)
	Exit(task *model.TaskState, g *model.GlobalState, retval int64, isError bool)
	EntryLog(task *model.TaskState, g *model.GlobalState, args Args) string
	ExitLog(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) string
}

// New constructs the handler for syscall number nr. This is the "tagged
// union plus exhaustive match" dispatch SPEC_FULL.md §9 calls for: a
// switch over a fixed, architecture-specific set of numbers rather than a
// runtime registration table, so an unrecognized number is a single
// default case instead of a lookup miss.
func New(nr int64) Handler {
	switch nr {
	case sysOpen, sysOpenat, sysOpenat2, sysCreat:
		return &openHandler{nr: nr}
	case sysClose:
		return &closeHandler{}
	case sysDup, sysDup2, sysDup3, sysFcntl:
		return &dupHandler{nr: nr}
	case sysPipe, sysPipe2, sysSocket, sysSocketpair, sysEventfd, sysEventfd2,
		sysTimerfdCreate, sysEpollCreate, sysEpollCreate1:
		return &createHandler{nr: nr}
	case sysExecve, sysExecveat:
		return &execveHandler{nr: nr}
	case sysFork, sysVfork, sysClone, sysClone3:
		return &cloneHandler{nr: nr}
	case sysChdir, sysFchdir:
		return &chdirHandler{nr: nr}
	case sysMkdir, sysMkdirat:
		return &mkdirHandler{nr: nr}
	case sysRmdir, sysUnlink, sysUnlinkat:
		return &unlinkHandler{nr: nr}
	case sysRename, sysRenameat, sysRenameat2:
		return &renameHandler{nr: nr}
	case sysStat, sysFstat, sysLstat, sysNewfstatat, sysStatx, sysAccess, sysFaccessat, sysFaccessat2:
		return &statHandler{nr: nr}
	case sysReadlink, sysReadlinkat:
		return &readlinkHandler{nr: nr}
	case sysGetdents, sysGetdents64:
		return &getdentsHandler{}
	case sysRead, sysPread64, sysWrite, sysPwrite64, sysLseek, sysIoctl, sysFtruncate:
		return &passthroughHandler{nr: nr}
	case sysFutex:
		return &futexHandler{}
	default:
		return &unknownHandler{nr: nr}
	}
}
