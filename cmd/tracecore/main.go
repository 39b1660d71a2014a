// Command tracecore traces a process tree's filesystem behavior via ptrace
// and emits a minimal container image describing what it actually touched.
package main

import (
	"os"

	"github.com/ctrtrace/tracecore/internal/command"
)

func main() {
	if err := command.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
