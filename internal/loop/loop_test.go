package loop

import (
	"testing"

	"github.com/ctrtrace/tracecore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a scripted EventSource standing in for internal/ptrace.
type fakeSource struct {
	events    []Event
	i         int
	strings   map[uint64]string
	continued []int
}

func (f *fakeSource) NextEvent() (Event, error) {
	if f.i >= len(f.events) {
		return Event{}, errEOF
	}
	ev := f.events[f.i]
	f.i++
	return ev, nil
}

func (f *fakeSource) ReadMemory(pid int, addr uint64, length int) ([]byte, error) { return nil, nil }

func (f *fakeSource) ReadCString(pid int, addr uint64, max int) (string, error) {
	return f.strings[addr], nil
}

func (f *fakeSource) Continue(pid int, signal int) error {
	f.continued = append(f.continued, pid)
	return nil
}

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }

const errEOF = sentinelErr("no more events")

func TestLoopRunsToRootExit(t *testing.T) {
	const openatNr = 257 // sysOpenat, duplicated here to avoid an import cycle with internal/syscalls

	src := &fakeSource{
		strings: map[uint64]string{0x1000: "b.txt"},
		events: []Event{
			{Kind: SyscallEntry, Pid: 100, Nr: openatNr, Args: [6]uint64{uint64(int64(model.AtFDCWD)), 0x1000, 0, 0, 0, 0}},
			{Kind: SyscallExit, Pid: 100, RetVal: 7, IsError: false},
			{Kind: Exit, Pid: 100, Code: 0},
		},
	}

	global := model.NewGlobalState(100, "/tmp", nil, nil, src)
	l := New(src, global)

	code, err := l.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	rec, ok := global.Store.Lookup("/tmp/b.txt")
	require.True(t, ok)
	assert.Equal(t, model.True, rec.IsCurrentlyOnDisk)

	_, ok = global.Registry.Get(100)
	assert.False(t, ok, "the root task must be removed from the registry once it exits")
}

func TestLoopAbortsOnDoubleEntryProtocolViolation(t *testing.T) {
	const cloneNr = 56

	src := &fakeSource{
		events: []Event{
			{Kind: SyscallEntry, Pid: 1, Nr: cloneNr, Args: [6]uint64{0}},
			// no matching SyscallExit: this second entry finds pid 1 still
			// Inside, which is a fatal Outside/Inside state machine violation.
			{Kind: SyscallEntry, Pid: 1, Nr: cloneNr, Args: [6]uint64{0}},
		},
	}
	global := model.NewGlobalState(1, "/", nil, nil, src)
	l := New(src, global)

	_, err := l.Run()
	require.Error(t, err, "a syscall-entry while already Inside is a fatal protocol violation")
}
