package syscalls

import (
	"encoding/binary"
	"fmt"

	"github.com/ctrtrace/tracecore/internal/model"
	"golang.org/x/sys/unix"
)

// closeHandler implements close (SPEC_FULL.md §4.7 "close").
type closeHandler struct {
	fd int
}

func (h *closeHandler) Entry(task *model.TaskState, g *model.GlobalState, args Args) {
	h.fd = int(int32(args.Raw[0]))
}

func (h *closeHandler) Exit(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) {
	if isError {
		return
	}
	task.FDTable.Close(h.fd)
}

func (h *closeHandler) EntryLog(task *model.TaskState, g *model.GlobalState, args Args) string {
	return fmt.Sprintf("pid=%d close(%d)", task.Pid, h.fd)
}

func (h *closeHandler) ExitLog(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) string {
	return fmt.Sprintf("pid=%d close(%d) -> %d", task.Pid, h.fd, retval)
}

// dupHandler implements dup/dup2/dup3/fcntl(F_DUPFD[_CLOEXEC])
// (SPEC_FULL.md §4.7), aliasing via model.Alias.
type dupHandler struct {
	nr int64

	oldFd     int
	explicit  int // explicit target fd for dup2/dup3/fcntl; -1 if none (plain dup)
	fcntlCmd  int64
	willAlias bool
}

func (h *dupHandler) Entry(task *model.TaskState, g *model.GlobalState, args Args) {
	h.explicit = -1
	switch h.nr {
	case sysDup:
		h.oldFd = int(int32(args.Raw[0]))
		h.willAlias = true
	case sysDup2, sysDup3:
		h.oldFd = int(int32(args.Raw[0]))
		h.explicit = int(int32(args.Raw[1]))
		h.willAlias = true
	case sysFcntl:
		h.oldFd = int(int32(args.Raw[0]))
		h.fcntlCmd = int64(args.Raw[1])
		h.willAlias = h.fcntlCmd == unix.F_DUPFD || h.fcntlCmd == unix.F_DUPFD_CLOEXEC
	}
}

func (h *dupHandler) Exit(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) {
	if isError || !h.willAlias {
		return
	}
	newFd := int(retval)
	model.Alias(g.Store, g.Warnings, task.FDTable, newFd, h.oldFd, fmt.Sprintf("pid=%d dup(old=%d)", task.Pid, h.oldFd))
}

func (h *dupHandler) EntryLog(task *model.TaskState, g *model.GlobalState, args Args) string {
	return fmt.Sprintf("pid=%d dup-family(old=%d, explicit=%d)", task.Pid, h.oldFd, h.explicit)
}

func (h *dupHandler) ExitLog(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) string {
	return fmt.Sprintf("pid=%d dup-family(old=%d) -> %d", task.Pid, h.oldFd, retval)
}

// createHandler implements pipe/pipe2/socket/socketpair/eventfd/eventfd2/
// timerfd_create/epoll_create/epoll_create1 (SPEC_FULL.md §4.7): on success,
// one or two unbacked records are created and bound to the returned fd(s).
type createHandler struct {
	nr int64

	fdsPtr uint64 // pipe/pipe2/socketpair: address of the int[2] output
}

func (h *createHandler) Entry(task *model.TaskState, g *model.GlobalState, args Args) {
	switch h.nr {
	case sysPipe, sysPipe2:
		h.fdsPtr = args.Raw[0]
	case sysSocketpair:
		h.fdsPtr = args.Raw[3]
	}
}

func (h *createHandler) Exit(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) {
	if isError {
		return
	}
	switch h.nr {
	case sysPipe, sysPipe2:
		h.bindPair(task, g, model.KindPipe, "pipe_read", "pipe_write")
	case sysSocketpair:
		h.bindPair(task, g, model.KindSocket, "socket", "socket")
	case sysSocket:
		h.bindSingle(task, g, model.KindSocket, "socket", int(retval))
	case sysEventfd, sysEventfd2:
		h.bindSingle(task, g, model.KindEventfd, "eventfd", int(retval))
	case sysTimerfdCreate:
		h.bindSingle(task, g, model.KindTimer, "timerfd", int(retval))
	case sysEpollCreate, sysEpollCreate1:
		h.bindSingle(task, g, model.KindEpoll, "epoll", int(retval))
	}
}

func (h *createHandler) bindSingle(task *model.TaskState, g *model.GlobalState, kind model.Kind, prefix string, fd int) {
	rec := g.Store.CreateUnbacked(kind, model.NextSyntheticName(prefix, fd))
	task.FDTable.Bind(fd, rec)
}

func (h *createHandler) bindPair(task *model.TaskState, g *model.GlobalState, kind model.Kind, prefixA, prefixB string) {
	buf, err := g.Memory.ReadMemory(task.Pid, h.fdsPtr, 8)
	if err != nil || len(buf) < 8 {
		g.Warnings.Emit(fmt.Sprintf("pid=%d: could not read fd pair at 0x%x", task.Pid, h.fdsPtr))
		return
	}
	fdA := int(int32(binary.LittleEndian.Uint32(buf[0:4])))
	fdB := int(int32(binary.LittleEndian.Uint32(buf[4:8])))
	recA := g.Store.CreateUnbacked(kind, model.NextSyntheticName(prefixA, fdA))
	task.FDTable.Bind(fdA, recA)
	recB := g.Store.CreateUnbacked(kind, model.NextSyntheticName(prefixB, fdB))
	task.FDTable.Bind(fdB, recB)
}

func (h *createHandler) EntryLog(task *model.TaskState, g *model.GlobalState, args Args) string {
	return fmt.Sprintf("pid=%d create-fd-syscall(nr=%d)", task.Pid, h.nr)
}

func (h *createHandler) ExitLog(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) string {
	return fmt.Sprintf("pid=%d create-fd-syscall(nr=%d) -> %d", task.Pid, h.nr, retval)
}
