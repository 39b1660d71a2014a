//go:build linux

package ptrace

import "golang.org/x/sys/unix"

// syscallNr returns the syscall number a task is currently stopped in,
// per the x86-64 System V calling convention ptrace exposes through
// PTRACE_GETREGS: orig_rax holds the number on a syscall-entry stop.
func syscallNr(regs *unix.PtraceRegs) int64 {
	return int64(regs.Orig_rax)
}

// syscallArgs extracts the six argument registers in kernel calling-
// convention order (rdi, rsi, rdx, r10, r8, r9).
func syscallArgs(regs *unix.PtraceRegs) [6]uint64 {
	return [6]uint64{regs.Rdi, regs.Rsi, regs.Rdx, regs.R10, regs.R8, regs.R9}
}

// syscallReturn returns the raw rax value at a syscall-exit stop, and
// whether it encodes an error (the kernel returns -errno in rax; negative
// in [-4095, -1] is the POSIX convention glibc/the raw syscall ABI uses to
// signal failure).
func syscallReturn(regs *unix.PtraceRegs) (retval int64, isError bool) {
	v := int64(regs.Rax)
	if v < 0 && v >= -4095 {
		return v, true
	}
	return v, false
}

// isDecodeSentinel reports whether rax holds -ENOSYS, the value the kernel
// guarantees on a syscall-entry stop before the syscall has run (spec.md
// §4.8 step 3: any other value at entry means the platform decode is off).
// decodeSyscallStop does not call it: entry stops are not checked against
// this sentinel.
func isDecodeSentinel(regs *unix.PtraceRegs) bool {
	return int64(regs.Rax) == -int64(unix.ENOSYS)
}
