// Package command wires the cobra subcommands of SPEC_FULL.md §6 on top of
// internal/ptrace, internal/loop, internal/model and internal/backend.
package command

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/ctrtrace/tracecore/internal/logging"
	"github.com/ctrtrace/tracecore/internal/loop"
	"github.com/ctrtrace/tracecore/internal/model"
	"github.com/ctrtrace/tracecore/internal/ptrace"
)

// traceResult bundles everything a subcommand needs out of one trace run.
type traceResult struct {
	Global *model.GlobalState
	RunID  string
	Code   int
}

// trace execs args under ptrace and drives the event loop to completion,
// returning the resulting model and the traced command's exit code. It is
// the one routine all three subcommands (trace, dump-csv, warnings) share.
// Each call mints a fresh RunID so repeated traces of the same command are
// distinguishable in logs and in the emitted Dockerfile's header comment.
func trace(args []string, verbose bool) (traceResult, error) {
	runID := uuid.New().String()
	if len(args) == 0 {
		return traceResult{RunID: runID}, fmt.Errorf("no command given to trace")
	}

	tracer, err := ptrace.Start(args[0], args[1:], os.Environ(), os.Stdout, os.Stderr)
	if err != nil {
		return traceResult{RunID: runID}, fmt.Errorf("starting tracee: %w", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = "/"
	}
	global := model.NewGlobalState(tracer.RootPid(), wd, os.Environ(), args, tracer)
	logging.Infof(runID, "tracing pid %d: %v", tracer.RootPid(), args)

	l := loop.New(tracer, global)
	l.Verbose = verbose
	code, err := l.Run()
	result := traceResult{Global: global, RunID: runID, Code: code}
	if err != nil {
		logging.Errorf(runID, "trace aborted: %v", err)
		return result, err
	}
	return result, nil
}
