package syscalls

import (
	"encoding/binary"
	"fmt"

	"github.com/ctrtrace/tracecore/internal/model"
	"golang.org/x/sys/unix"
)

// openHandler implements open/openat/openat2/creat (SPEC_FULL.md §4.7
// "open / openat / openat2 / creat").
type openHandler struct {
	nr int64

	rawPath    string
	resolved   string
	flags      int64
	dirfd      int
	workdir    string
	preExisted bool
	snapshot   model.StatResult
}

func (h *openHandler) Entry(task *model.TaskState, g *model.GlobalState, args Args) {
	h.workdir = task.FSInfo.Workdir()

	switch h.nr {
	case sysOpen:
		h.dirfd = model.AtFDCWD
		h.rawPath = readPath(g, task.Pid, args.Raw[0])
		h.flags = int64(args.Raw[1])
	case sysOpenat:
		h.dirfd = int(int32(args.Raw[0]))
		h.rawPath = readPath(g, task.Pid, args.Raw[1])
		h.flags = int64(args.Raw[2])
	case sysOpenat2:
		h.dirfd = int(int32(args.Raw[0]))
		h.rawPath = readPath(g, task.Pid, args.Raw[1])
		h.flags = readOpenHowFlags(g, task.Pid, args.Raw[2])
	case sysCreat:
		h.dirfd = model.AtFDCWD
		h.rawPath = readPath(g, task.Pid, args.Raw[0])
		h.flags = unix.O_CREAT | unix.O_WRONLY | unix.O_TRUNC
	}

	resolveFlags := model.ResolveFlags(0)
	if h.flags&unix.O_NOFOLLOW != 0 {
		resolveFlags |= model.NoFollowSymlink
	}
	h.resolved = g.Resolver.Resolve(task, h.dirfd, h.rawPath, resolveFlags)
	h.snapshot = model.StatPath(h.resolved)
	h.preExisted = h.snapshot.Exists
}

func (h *openHandler) Exit(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) {
	if isError {
		return
	}
	fd := int(retval)
	rec := g.Store.GetOrCreate(h.resolved, model.InitialAttrs{
		OnDisk: boolToTristate(h.preExisted),
		Kind:   h.snapshot.Kind,
	})
	task.FDTable.Bind(fd, rec)
	rec.RegisterAccess(model.AccessRecord{
		Pid:       task.Pid,
		RelPath:   h.rawPath,
		OpenFlags: h.flags,
		HasFlags:  true,
		Workdir:   h.workdir,
	})
	rec.MarkOnDisk(model.True)
	if h.flags&unix.O_CREAT != 0 && !h.preExisted {
		rec.MarkCreated()
	}
}

func (h *openHandler) EntryLog(task *model.TaskState, g *model.GlobalState, args Args) string {
	return fmt.Sprintf("pid=%d open(%q, flags=0x%x)", task.Pid, h.rawPath, h.flags)
}

func (h *openHandler) ExitLog(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) string {
	if isError {
		return fmt.Sprintf("pid=%d open(%q) -> error", task.Pid, h.resolved)
	}
	return fmt.Sprintf("pid=%d open(%q) -> fd=%d", task.Pid, h.resolved, retval)
}

// readPath reads a NUL-terminated path argument, returning the empty string
// on a memory-read failure (the handler still proceeds; a blank relPath is
// observable rather than fatal, per SPEC_FULL.md §7's MemoryReadPartial).
func readPath(g *model.GlobalState, pid int, addr uint64) string {
	s, err := g.Memory.ReadCString(pid, addr, maxPathLen)
	if err != nil {
		g.Warnings.Emit(fmt.Sprintf("pid=%d: partial memory read for path at 0x%x: %v", pid, addr, err))
		return ""
	}
	return s
}

// readOpenHowFlags decodes the leading `flags` field (first 8 bytes,
// little-endian) of the openat2 `struct open_how` pointed to by addr.
func readOpenHowFlags(g *model.GlobalState, pid int, addr uint64) int64 {
	buf, err := g.Memory.ReadMemory(pid, addr, 8)
	if err != nil || len(buf) < 8 {
		g.Warnings.Emit(fmt.Sprintf("pid=%d: partial memory read for open_how at 0x%x", pid, addr))
		return 0
	}
	return int64(binary.LittleEndian.Uint64(buf))
}

func boolToTristate(b bool) model.Tristate {
	if b {
		return model.True
	}
	return model.False
}
