// Package procutil looks up best-effort process metadata (username,
// executable, command line) for a pid (SPEC_FULL.md §4.10). None of it sits
// on the model's critical path: a gopsutil failure is logged and the caller
// gets an Info holding the pid and whichever fields did resolve. Nothing in
// the tree calls Lookup; the generated Dockerfile's header carries only the
// run ID.
package procutil

import (
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ctrtrace/tracecore/internal/logging"
)

// Info is the best-effort enrichment SPEC_FULL.md §4.10 describes.
// Any field may be empty if gopsutil could not resolve it (the process
// already exited, permission denied, etc).
type Info struct {
	Pid      int
	Username string
	Exe      string
	Cmdline  string
}

// String renders Info as a single line suitable for a log context value or
// the Dockerfile header comment.
func (i Info) String() string {
	if i.Exe == "" {
		return ""
	}
	if i.Username != "" {
		return i.Username + "@" + i.Exe
	}
	return i.Exe
}

// Lookup queries /proc (via gopsutil) for pid's username, executable path
// and command line. Errors are logged at debug level and swallowed: a
// process can legitimately have already exited by the time enrichment
// happens, which is expected, not exceptional.
func Lookup(pid int) Info {
	info := Info{Pid: pid}

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		logging.Debugf(pid, "procutil: process lookup failed: %v", err)
		return info
	}
	if user, err := p.Username(); err == nil {
		info.Username = user
	} else {
		logging.Debugf(pid, "procutil: username lookup failed: %v", err)
	}
	if exe, err := p.Exe(); err == nil {
		info.Exe = exe
	} else {
		logging.Debugf(pid, "procutil: exe lookup failed: %v", err)
	}
	if cmdline, err := p.Cmdline(); err == nil {
		info.Cmdline = cmdline
	} else {
		logging.Debugf(pid, "procutil: cmdline lookup failed: %v", err)
	}
	return info
}
