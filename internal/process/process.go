// Package process runs external programs with explicit argument vectors.
// Nothing is passed through a shell, so record fields need no quoting.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Command describes one external invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory (empty for the current one).
	Dir string
	// Stdout and Stderr receive the program's output; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command for logs, quoting arguments that need it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, p := range append([]string{c.Name}, c.Args...) {
		if p == "" || strings.ContainsAny(p, " \t\n\"'\\$`;&|<>()*?") {
			p = strconv.Quote(p)
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// Result is the outcome of a finished (or unstartable) process.
type Result struct {
	StartedAt time.Time
	Duration  time.Duration
	// ExitCode is -1 when the process could not be started or was killed.
	ExitCode int
}

// Success reports a zero exit status.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Executor starts external processes and waits for them.
type Executor interface {
	// Run blocks until the process exits. A non-zero exit is reported in
	// Result.ExitCode with a nil error; the error is set when the process
	// could not be started or waited for.
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecExecutor runs commands with os/exec.
type ExecExecutor struct{}

var _ Executor = ExecExecutor{}

// Run implements Executor.
func (ExecExecutor) Run(ctx context.Context, c Command) (Result, error) {
	if c.Name == "" {
		return Result{ExitCode: -1}, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...) //nolint:gosec // commands come from configuration
	cmd.Dir = c.Dir
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	res := Result{StartedAt: time.Now()}
	err := cmd.Run()
	res.Duration = time.Since(res.StartedAt)

	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	res.ExitCode = -1
	return res, fmt.Errorf("failed to run %s: %w", c.Name, err)
}
