package syscalls

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ctrtrace/tracecore/internal/model"
)

const maxShebangDepth = 4

// execveHandler implements execve/execveat (SPEC_FULL.md §4.7 "execve"),
// including shebang chasing.
type execveHandler struct {
	nr int64

	dirfd      int
	rawPath    string
	resolved   string
	workdir    string
	preExisted bool
}

func (h *execveHandler) Entry(task *model.TaskState, g *model.GlobalState, args Args) {
	switch h.nr {
	case sysExecve:
		h.dirfd = model.AtFDCWD
		h.rawPath = readPath(g, task.Pid, args.Raw[0])
	case sysExecveat:
		h.dirfd = int(int32(args.Raw[0]))
		h.rawPath = readPath(g, task.Pid, args.Raw[1])
	}
	h.workdir = task.FSInfo.Workdir()
	h.resolved = g.Resolver.Resolve(task, h.dirfd, h.rawPath, 0)
	h.preExisted = model.StatPath(h.resolved).Exists
}

func (h *execveHandler) Exit(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) {
	if isError {
		return
	}
	h.registerExecutable(task, g, h.resolved, h.rawPath, h.workdir, h.preExisted)
	if !h.preExisted {
		g.Warnings.Emit(fmt.Sprintf("pid=%d: execve on %q succeeded though the pre-exec snapshot said it did not exist on disk", task.Pid, h.resolved))
	}
	chaseShebang(task, g, h.resolved, 1)
}

// registerExecutable records one executable AccessRecord and commits the
// on-disk existence implied by a successful exec of that path.
func (h *execveHandler) registerExecutable(task *model.TaskState, g *model.GlobalState, resolved, rawPath, workdir string, preExisted bool) {
	rec := g.Store.GetOrCreate(resolved, model.InitialAttrs{OnDisk: boolToTristate(preExisted)})
	rec.SetKindIfUnset(model.KindRegularFile)
	rec.MarkOnDisk(model.True)
	rec.RegisterAccess(model.AccessRecord{
		Pid:        task.Pid,
		RelPath:    rawPath,
		Executable: true,
		Workdir:    workdir,
	})
}

func (h *execveHandler) EntryLog(task *model.TaskState, g *model.GlobalState, args Args) string {
	return fmt.Sprintf("pid=%d execve(%q)", task.Pid, h.rawPath)
}

func (h *execveHandler) ExitLog(task *model.TaskState, g *model.GlobalState, retval int64, isError bool) string {
	if isError {
		return fmt.Sprintf("pid=%d execve(%q) -> error", task.Pid, h.resolved)
	}
	return fmt.Sprintf("pid=%d execve(%q) -> ok", task.Pid, h.resolved)
}

// chaseShebang reads the host file at resolved and, if it begins with
// "#!", resolves and registers the interpreter as an executable access,
// recursing up to maxShebangDepth (SPEC_FULL.md §4.7, P6/P7).
func chaseShebang(task *model.TaskState, g *model.GlobalState, resolved string, depth int) {
	line, ok := readFirstLine(resolved)
	if !ok || !strings.HasPrefix(line, "#!") {
		return
	}
	if depth > maxShebangDepth {
		g.Warnings.Once(sysExecve, fmt.Sprintf("shebang chase exceeded depth %d starting at %q", maxShebangDepth, resolved))
		return
	}
	target := parseShebangTarget(line)
	if target == "" {
		return
	}
	resolvedTarget := g.Resolver.Resolve(task, model.AtFDCWD, target, 0)
	rec := g.Store.GetOrCreate(resolvedTarget, model.InitialAttrs{
		OnDisk: boolToTristate(model.StatPath(resolvedTarget).Exists),
	})
	rec.SetKindIfUnset(model.KindRegularFile)
	rec.RegisterAccess(model.AccessRecord{
		Pid:        task.Pid,
		RelPath:    target,
		Executable: true,
		Workdir:    task.FSInfo.Workdir(),
	})
	chaseShebang(task, g, resolvedTarget, depth+1)
}

// readFirstLine best-effort reads the first line of the host file at path,
// bounded well under PATH_MAX so a binary file's junk bytes never cause an
// unbounded scan.
func readFirstLine(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	buf := make([]byte, 0, 512)
	sc.Buffer(buf, 512)
	if !sc.Scan() {
		return "", false
	}
	return sc.Text(), true
}

// parseShebangTarget extracts the interpreter path from a "#!..." line: skip
// the marker, skip one optional leading space, stop at the first space, tab
// or end of line (SPEC_FULL.md §4.7 "execve").
func parseShebangTarget(line string) string {
	rest := strings.TrimPrefix(line, "#!")
	rest = strings.TrimPrefix(rest, " ")
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}
