package syscalls

import (
	"fmt"

	"github.com/ctrtrace/tracecore/internal/model"
)

// unknownHandler is the default case of New's switch (SPEC_FULL.md §4.7
// "Unhandled syscall numbers"): a one-shot-per-number warning, no mutation.
type unknownHandler struct {
	nr int64
}

func (h *unknownHandler) Entry(task *model.TaskState, g *model.GlobalState, args Args) {}

func (h *unknownHandler) Exit(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) {
	g.Warnings.Once(h.nr, fmt.Sprintf("unhandled syscall number %d", h.nr))
}

func (h *unknownHandler) EntryLog(task *model.TaskState, g *model.GlobalState, args Args) string {
	return fmt.Sprintf("pid=%d unhandled-syscall(nr=%d)", task.Pid, h.nr)
}

func (h *unknownHandler) ExitLog(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) string {
	return fmt.Sprintf("pid=%d unhandled-syscall(nr=%d) -> %d", task.Pid, h.nr, retval)
}
