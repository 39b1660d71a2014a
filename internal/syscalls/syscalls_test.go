package syscalls

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ctrtrace/tracecore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeMemory is a minimal model.Memory backed by an in-test map, standing
// in for internal/ptrace's /proc/<pid>/mem reader.
type fakeMemory struct {
	strings map[uint64]string
	bytes   map[uint64][]byte
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{strings: make(map[uint64]string), bytes: make(map[uint64][]byte)}
}

func (m *fakeMemory) ReadCString(pid int, addr uint64, max int) (string, error) {
	return m.strings[addr], nil
}

func (m *fakeMemory) ReadMemory(pid int, addr uint64, length int) ([]byte, error) {
	return m.bytes[addr], nil
}

func newTestGlobal(mem model.Memory) *model.GlobalState {
	return model.NewGlobalState(1, "/", nil, nil, mem)
}

// scenario 1: trivial open.
func TestScenarioTrivialOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("hi"), 0o644))

	mem := newFakeMemory()
	mem.strings[0x1000] = "b.txt"
	g := newTestGlobal(mem)
	task := g.Registry.EnsureRoot(100)
	task.FSInfo.SetWorkdir(dir)

	h := &openHandler{nr: sysOpenat}
	args := Args{Raw: [6]uint64{uint64(int64(model.AtFDCWD)), 0x1000, uint64(unix.O_RDONLY), 0, 0, 0}}
	h.Entry(task, g, args)
	h.Exit(task, g, 7, false)

	rec, ok := task.FDTable.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "b.txt"), rec.RealPath)
	assert.Equal(t, model.True, rec.IsCurrentlyOnDisk)

	closeH := &closeHandler{}
	closeH.Entry(task, g, Args{Raw: [6]uint64{7}})
	closeH.Exit(task, g, 0, false)
	_, ok = task.FDTable.Lookup(7)
	assert.False(t, ok, "fd must be unbound after close")
}

// scenario 2: shebang chasing.
func TestScenarioShebang(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "s")
	require.NoError(t, os.WriteFile(script, []byte("#!/opt/tracecore-test-interpreter/python3\nprint(1)\n"), 0o755))

	mem := newFakeMemory()
	mem.strings[0x2000] = script
	g := newTestGlobal(mem)
	task := g.Registry.EnsureRoot(200)
	task.FSInfo.SetWorkdir(dir)

	h := &execveHandler{nr: sysExecve}
	h.Entry(task, g, Args{Raw: [6]uint64{0x2000}})
	h.Exit(task, g, 0, false)

	scriptRec, ok := g.Store.Lookup(script)
	require.True(t, ok)
	found := false
	for _, a := range scriptRec.Accesses() {
		if a.Executable {
			found = true
		}
	}
	assert.True(t, found, "the script itself must be recorded as an executable access")

	interpRec, ok := g.Store.Lookup("/opt/tracecore-test-interpreter/python3")
	require.True(t, ok, "the shebang target must also be recorded")
	found = false
	for _, a := range interpRec.Accesses() {
		if a.Executable {
			found = true
		}
	}
	assert.True(t, found)
}

func TestShebangDepthLimitWarns(t *testing.T) {
	dir := t.TempDir()
	// a -> b -> c -> d -> e -> f (five hops, exceeds depth 4)
	names := []string{"a", "b", "c", "d", "e", "f"}
	for i := 0; i < len(names)-1; i++ {
		target := filepath.Join(dir, names[i+1])
		require.NoError(t, os.WriteFile(filepath.Join(dir, names[i]), []byte("#!"+target+"\n"), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, names[len(names)-1]), []byte("echo done\n"), 0o755))

	mem := newFakeMemory()
	start := filepath.Join(dir, "a")
	mem.strings[0x3000] = start
	g := newTestGlobal(mem)
	task := g.Registry.EnsureRoot(300)
	task.FSInfo.SetWorkdir(dir)

	h := &execveHandler{nr: sysExecve}
	h.Entry(task, g, Args{Raw: [6]uint64{0x3000}})
	h.Exit(task, g, 0, false)

	assert.NotEmpty(t, g.Warnings.Messages())
}

// scenario 3: clone sharing.
func TestScenarioCloneSharing(t *testing.T) {
	mem := newFakeMemory()
	g := newTestGlobal(mem)
	parent := g.Registry.EnsureRoot(1)

	h := &cloneHandler{nr: sysClone}
	flags := uint64(unix.CLONE_FILES | unix.CLONE_FS)
	h.Entry(parent, g, Args{Raw: [6]uint64{flags}})
	h.Exit(parent, g, 42, false)

	child, ok := g.Registry.Get(42)
	require.True(t, ok)
	assert.Same(t, parent.FDTable, child.FDTable)
	assert.Same(t, parent.FSInfo, child.FSInfo)
}

// scenario 4: dup aliasing.
func TestScenarioDupAliasing(t *testing.T) {
	mem := newFakeMemory()
	g := newTestGlobal(mem)
	task := g.Registry.EnsureRoot(1)

	h := &dupHandler{nr: sysDup2}
	h.Entry(task, g, Args{Raw: [6]uint64{1, 10}})
	h.Exit(task, g, 10, false)

	stdoutRec, _ := task.FDTable.Lookup(1)
	dupRec, ok := task.FDTable.Lookup(10)
	require.True(t, ok)
	assert.Same(t, stdoutRec, dupRec)
}

// scenario 5: unlink.
func TestScenarioUnlink(t *testing.T) {
	dir := t.TempDir()
	mem := newFakeMemory()
	mem.strings[0x4000] = "x"
	g := newTestGlobal(mem)
	task := g.Registry.EnsureRoot(1)
	task.FSInfo.SetWorkdir(dir)

	openH := &openHandler{nr: sysOpenat}
	openH.Entry(task, g, Args{Raw: [6]uint64{
		uint64(int64(model.AtFDCWD)), 0x4000, uint64(unix.O_CREAT | unix.O_WRONLY), 0o644, 0, 0,
	}})
	openH.Exit(task, g, 4, false)
	closeH := &closeHandler{}
	closeH.Entry(task, g, Args{Raw: [6]uint64{4}})
	closeH.Exit(task, g, 0, false)

	unlinkH := &unlinkHandler{nr: sysUnlink}
	unlinkH.Entry(task, g, Args{Raw: [6]uint64{0x4000}})
	unlinkH.Exit(task, g, 0, false)

	rec, ok := g.Store.Lookup(filepath.Join(dir, "x"))
	require.True(t, ok)
	assert.Equal(t, model.True, rec.WasEverCreated)
	assert.Equal(t, model.True, rec.WasEverDeleted)
	assert.Equal(t, model.False, rec.IsCurrentlyOnDisk)
}

// scenario 6: stat without open.
func TestScenarioStatWithoutOpen(t *testing.T) {
	mem := newFakeMemory()
	mem.strings[0x5000] = "/nope"
	g := newTestGlobal(mem)
	task := g.Registry.EnsureRoot(1)

	h := &statHandler{nr: sysStat}
	h.Entry(task, g, Args{Raw: [6]uint64{0x5000}})
	h.Exit(task, g, -1, true)

	rec, ok := g.Store.Lookup("/nope")
	require.True(t, ok)
	assert.Equal(t, model.False, rec.WasInitiallyOnDisk)
	accesses := rec.Accesses()
	require.Len(t, accesses, 1)
	assert.False(t, accesses[0].HasFlags)
}

func TestRenameWarnsOncePerSyscallNumber(t *testing.T) {
	mem := newFakeMemory()
	g := newTestGlobal(mem)
	task := g.Registry.EnsureRoot(1)

	h1 := &renameHandler{nr: sysRename}
	h1.Exit(task, g, 0, false)
	h2 := &renameHandler{nr: sysRename}
	h2.Exit(task, g, 0, false)

	assert.Len(t, g.Warnings.Messages(), 1, "rename warns once per syscall number, not once per call")
}

func TestUnknownSyscallWarnsOnce(t *testing.T) {
	mem := newFakeMemory()
	g := newTestGlobal(mem)
	task := g.Registry.EnsureRoot(1)

	h := New(999999)
	h.Exit(task, g, 0, false)
	h2 := New(999999)
	h2.Exit(task, g, 0, false)

	assert.Len(t, g.Warnings.Messages(), 1)
}

func TestGetdentsMarksRequiresAllChildren(t *testing.T) {
	mem := newFakeMemory()
	g := newTestGlobal(mem)
	task := g.Registry.EnsureRoot(1)
	rec := g.Store.CreateUnbacked("", "dirfd_3")
	task.FDTable.Bind(3, rec)

	h := &getdentsHandler{}
	h.Entry(task, g, Args{Raw: [6]uint64{3}})
	h.Exit(task, g, 128, false)

	assert.True(t, rec.RequiresAllChildren)
	assert.Equal(t, model.KindDirectory, rec.Kind)
}

func TestFutexFDWarns(t *testing.T) {
	mem := newFakeMemory()
	g := newTestGlobal(mem)
	task := g.Registry.EnsureRoot(1)

	h := &futexHandler{}
	h.Entry(task, g, Args{Raw: [6]uint64{0, futexFD}})
	h.Exit(task, g, 0, false)

	assert.NotEmpty(t, g.Warnings.Messages())
}
