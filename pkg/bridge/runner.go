package bridge

import (
	"context"
	"errors"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog/log"
)

// Runner executes a host command line and returns its captured text.
// started is false only when the process could not be launched at all;
// a non-zero exit still reports started=true together with whatever it printed.
type Runner interface {
	Run(ctx context.Context, cmdline string) (output string, started bool)
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(ctx context.Context, cmdline string) (string, bool)

func (f RunnerFunc) Run(ctx context.Context, cmdline string) (string, bool) {
	return f(ctx, cmdline)
}

// ExecRunner runs command lines through the host shell and merges stdout and stderr.
type ExecRunner struct{}

// NewExecRunner returns the default process-spawning runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, cmdline string) (string, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", cmdline)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", cmdline)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Debug().Str("cmd", cmdline).Int("exit_code", exitErr.ExitCode()).Msg("bridge: command exited non-zero")
			return string(out), true
		}
		log.Debug().Err(err).Str("cmd", cmdline).Msg("bridge: command failed to start")
		return string(out), false
	}
	return string(out), true
}
