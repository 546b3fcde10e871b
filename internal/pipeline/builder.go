package pipeline

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapsweep/internal/process"
)

// Builder compiles the external program before a run.
type Builder struct {
	Command  string
	Args     []string
	Dir      string
	Executor process.Executor
	Logger   *slog.Logger
}

// Build runs the build command with its output discarded. The result is
// advisory: a failed or missing build never aborts the pipeline.
func (b *Builder) Build(ctx context.Context) bool {
	logger := b.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	exec := b.Executor
	if exec == nil {
		exec = process.ExecExecutor{}
	}

	cmd := process.Command{Name: b.Command, Args: b.Args, Dir: b.Dir}
	logger.Debug("building program", "command", cmd.String())

	res, err := exec.Run(ctx, cmd)
	if err != nil {
		logger.Warn("build could not be started", "command", cmd.String(), "error", err)
		return false
	}
	if !res.Success() {
		logger.Warn("build failed", "command", cmd.String(), "exit_code", res.ExitCode)
		return false
	}
	logger.Info("build finished", "duration", res.Duration)
	return true
}
