package syscalls

import (
	"encoding/binary"
	"fmt"

	"github.com/ctrtrace/tracecore/internal/model"
	"golang.org/x/sys/unix"
)

// cloneHandler implements fork/vfork/clone/clone3 (SPEC_FULL.md §4.7
// "fork / vfork / clone / clone3"). entry opens the clone rendez-vous on
// the creator's TaskState; exit completes it once a real child pid is
// known. A protocol violation from the registry (invariant I7) is a fatal
// bug, surfaced by panicking with the *model.Fault; internal/loop recovers
// it at the top of its dispatch loop and aborts the run.
type cloneHandler struct {
	nr int64

	flags    uint64
	pidfdPtr uint64
}

func (h *cloneHandler) Entry(task *model.TaskState, g *model.GlobalState, args Args) {
	switch h.nr {
	case sysFork:
		h.flags = model.ForkFlags
	case sysVfork:
		h.flags = model.VforkFlags
	case sysClone:
		h.flags = args.Raw[0]
		if h.flags&unix.CLONE_PIDFD != 0 {
			h.pidfdPtr = args.Raw[2]
		}
	case sysClone3:
		buf, err := g.Memory.ReadMemory(task.Pid, args.Raw[0], 16)
		if err != nil || len(buf) < 16 {
			g.Warnings.Emit(fmt.Sprintf("pid=%d: partial memory read for clone_args", task.Pid))
		} else {
			h.flags = binary.LittleEndian.Uint64(buf[0:8])
			if h.flags&unix.CLONE_PIDFD != 0 {
				h.pidfdPtr = binary.LittleEndian.Uint64(buf[8:16])
			}
		}
	}

	if err := g.Registry.BeginClone(task.Pid, h.flags); err != nil {
		panic(err)
	}
}

func (h *cloneHandler) Exit(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) {
	if isError || retval <= 0 {
		g.Registry.AbortClone(task.Pid)
		return
	}
	childPid := int(retval)
	if _, err := g.Registry.CompleteCloneExit(task.Pid, childPid); err != nil {
		panic(err)
	}
	if h.pidfdPtr != 0 {
		h.bindPidfd(task, g)
	}
}

// bindPidfd reads the pidfd the kernel wrote back through pidfdPtr and
// binds a synthetic process-handle record for it in the *creator's* FD
// table (SPEC_FULL.md §4.7: "bind that fd to a synthetic process-handle
// record in the parent's table").
func (h *cloneHandler) bindPidfd(task *model.TaskState, g *model.GlobalState) {
	buf, err := g.Memory.ReadMemory(task.Pid, h.pidfdPtr, 4)
	if err != nil || len(buf) < 4 {
		g.Warnings.Emit(fmt.Sprintf("pid=%d: could not read pidfd output", task.Pid))
		return
	}
	pidfd := int(int32(binary.LittleEndian.Uint32(buf)))
	rec := g.Store.CreateUnbacked(model.KindProcess, model.NextSyntheticName("pidfd", pidfd))
	task.FDTable.Bind(pidfd, rec)
}

func (h *cloneHandler) EntryLog(task *model.TaskState, g *model.GlobalState, args Args) string {
	return fmt.Sprintf("pid=%d clone-family(flags=0x%x)", task.Pid, h.flags)
}

func (h *cloneHandler) ExitLog(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) string {
	return fmt.Sprintf("pid=%d clone-family(flags=0x%x) -> %d", task.Pid, h.flags, retval)
}
