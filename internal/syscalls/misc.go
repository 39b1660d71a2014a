package syscalls

import (
	"fmt"

	"github.com/ctrtrace/tracecore/internal/model"
)

// passthroughHandler implements read/pread/write/pwrite/lseek/ioctl/
// ftruncate (SPEC_FULL.md §4.7): no model mutation, the fd is only noted in
// the logging methods for access-bit fidelity in a verbose trace.
type passthroughHandler struct {
	nr int64
	fd int
}

func (h *passthroughHandler) Entry(task *model.TaskState, g *model.GlobalState, args Args) {
	h.fd = int(int32(args.Raw[0]))
}

func (h *passthroughHandler) Exit(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) {
}

func (h *passthroughHandler) EntryLog(task *model.TaskState, g *model.GlobalState, args Args) string {
	return fmt.Sprintf("pid=%d passthrough-syscall(nr=%d, fd=%d)", task.Pid, h.nr, h.fd)
}

func (h *passthroughHandler) ExitLog(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) string {
	return fmt.Sprintf("pid=%d passthrough-syscall(nr=%d, fd=%d) -> %d", task.Pid, h.nr, h.fd, retval)
}

// legacy futex(2) command encoding: the low 7 bits of op (after masking out
// FUTEX_PRIVATE_FLAG/FUTEX_CLOCK_REALTIME) select the command.
const (
	futexCmdMask = 0x7f
	futexFD      = 2 // removed from the kernel long ago; never representable here
)

// futexHandler implements futex (SPEC_FULL.md §4.7 "futex with FUTEX_FD"):
// every command other than the legacy FUTEX_FD is a pure no-op; FUTEX_FD
// itself cannot be represented in the model and only emits a warning.
type futexHandler struct {
	op int32
}

func (h *futexHandler) Entry(task *model.TaskState, g *model.GlobalState, args Args) {
	h.op = int32(args.Raw[1])
}

func (h *futexHandler) Exit(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) {
	if h.op&futexCmdMask == futexFD {
		g.Warnings.Once(sysFutex, "futex(FUTEX_FD, ...) observed; this legacy command is not representable in the model")
	}
}

func (h *futexHandler) EntryLog(task *model.TaskState, g *model.GlobalState, args Args) string {
	return fmt.Sprintf("pid=%d futex(op=%d)", task.Pid, h.op)
}

func (h *futexHandler) ExitLog(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) string {
	return fmt.Sprintf("pid=%d futex(op=%d) -> %d", task.Pid, h.op, retval)
}
