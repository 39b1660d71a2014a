//go:build linux

package ptrace

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ReadMemory implements model.Memory by reading the tracee's address space
// through /proc/<pid>/mem, which is the efficient path once a tracer holds
// the process stopped (spec.md §6 "Tracer boundary (consumed)"). It falls
// back to word-at-a-time PTRACE_PEEKDATA for the rare kernel/container
// configuration where /proc/<pid>/mem is unreadable even to the tracer
// (e.g. some hardened LSM setups).
func (t *Tracer) ReadMemory(pid int, addr uint64, length int) ([]byte, error) {
	if length <= 0 {
		return nil, nil
	}
	if buf, err := readViaProcMem(pid, addr, length); err == nil {
		return buf, nil
	}
	return readViaPeek(pid, addr, length)
}

func readViaProcMem(pid int, addr uint64, length int) ([]byte, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/mem", pid))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, length)
	n, err := f.ReadAt(buf, int64(addr))
	if n == 0 && err != nil {
		return nil, err
	}
	return buf[:n], nil
}

const wordSize = 8

func readViaPeek(pid int, addr uint64, length int) ([]byte, error) {
	out := make([]byte, 0, length)
	for len(out) < length {
		var word [wordSize]byte
		n, err := unix.PtracePeekData(pid, uintptr(addr)+uintptr(len(out)), word[:])
		if err != nil {
			return out, err
		}
		if n <= 0 {
			break
		}
		out = append(out, word[:n]...)
	}
	if len(out) > length {
		out = out[:length]
	}
	return out, nil
}

// ReadCString reads a NUL-terminated string starting at addr, 256 bytes at
// a time, up to max bytes (spec.md §6). Used for path and argv/envp arguments
// decoded during a syscall-entry handler.
func (t *Tracer) ReadCString(pid int, addr uint64, max int) (string, error) {
	const chunk = 256
	var out []byte
	for len(out) < max {
		want := chunk
		if remaining := max - len(out); remaining < want {
			want = remaining
		}
		buf, err := t.ReadMemory(pid, addr+uint64(len(out)), want)
		if err != nil {
			if len(out) > 0 {
				break
			}
			return "", err
		}
		if i := bytes.IndexByte(buf, 0); i >= 0 {
			out = append(out, buf[:i]...)
			return string(out), nil
		}
		if len(buf) == 0 {
			break
		}
		out = append(out, buf...)
	}
	return string(out), nil
}
