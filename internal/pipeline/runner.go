package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapsweep/internal/experiment"
	"github.com/leapstack-labs/leapsweep/internal/process"
	"github.com/leapstack-labs/leapsweep/internal/rundir"
	"github.com/leapstack-labs/leapsweep/internal/runlog"
	"github.com/leapstack-labs/leapsweep/internal/state"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Program is the executable invoked once per record.
	Program string
	// Args precede the record fields on every invocation.
	Args []string
	// LogFile and AuditFile are file names inside the run directory.
	LogFile   string
	AuditFile string

	Executor process.Executor
	Logger   *slog.Logger
}

// Runner executes records one after another inside a run directory.
type Runner struct {
	program   string
	args      []string
	logFile   string
	auditFile string
	exec      process.Executor
	logger    *slog.Logger
}

// RunStats summarizes a Runner pass.
type RunStats struct {
	Attempted int `json:"attempted"`
	Failed    int `json:"failed"`
}

// NewRunner creates a runner, filling in defaults for unset fields.
func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{
		program:   cfg.Program,
		args:      append([]string(nil), cfg.Args...),
		logFile:   cfg.LogFile,
		auditFile: cfg.AuditFile,
		exec:      cfg.Executor,
		logger:    cfg.Logger,
	}
	if r.logFile == "" {
		r.logFile = runlog.DefaultLogFile
	}
	if r.auditFile == "" {
		r.auditFile = runlog.DefaultAuditFile
	}
	if r.exec == nil {
		r.exec = process.ExecExecutor{}
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// LogPath returns the experiment log inside dir.
func (r *Runner) LogPath(dir *rundir.Dir) string { return dir.Join(r.logFile) }

// AuditPath returns the audit file inside dir.
func (r *Runner) AuditPath(dir *rundir.Dir) string { return dir.Join(r.auditFile) }

// Command returns the invocation for one record.
func (r *Runner) Command(dir *rundir.Dir, rec *experiment.Record) process.Command {
	args := make([]string, 0, len(r.args)+rec.Len())
	args = append(args, r.args...)
	args = append(args, rec.Fields()...)
	return process.Command{Name: r.program, Args: args, Dir: dir.Path}
}

// Run appends each record to the audit file, invokes the program with the
// record's fields and separates the outputs in the log. A failing program
// never stops the loop; only I/O errors on the audit or log file do.
// The log ends with the done marker once every record was attempted.
// Invocations are recorded under runID through recorder when runID is set.
func (r *Runner) Run(ctx context.Context, dir *rundir.Dir, recorder Recorder, runID string, records experiment.Set) (stats RunStats, err error) {
	if recorder == nil {
		recorder = NopRecorder{}
	}

	audit, err := runlog.OpenAppend(r.AuditPath(dir))
	if err != nil {
		return stats, err
	}
	defer func() { err = errors.Join(err, audit.Close()) }()

	log, err := runlog.OpenAppend(r.LogPath(dir))
	if err != nil {
		return stats, err
	}
	defer func() { err = errors.Join(err, log.Close()) }()

	for i, rec := range records {
		if err := audit.WriteString(rec.String() + "\n"); err != nil {
			return stats, err
		}

		cmd := r.Command(dir, rec)
		cmd.Stdout = log
		cmd.Stderr = log

		r.logger.Debug("invoking program", "seq", i+1, "label", rec.Label(), "command", cmd.String())
		res, runErr := r.exec.Run(ctx, cmd)
		stats.Attempted++

		inv := &state.Invocation{
			RunID:     runID,
			Seq:       i + 1,
			Label:     rec.Label(),
			Args:      rec.Fields(),
			ExitCode:  res.ExitCode,
			Duration:  res.Duration,
			StartedAt: res.StartedAt,
		}
		switch {
		case runErr != nil:
			stats.Failed++
			inv.Error = runErr.Error()
			r.logger.Warn("experiment could not be started", "seq", inv.Seq, "label", inv.Label, "error", runErr)
		case !res.Success():
			stats.Failed++
			r.logger.Warn("experiment exited with error", "seq", inv.Seq, "label", inv.Label, "exit_code", res.ExitCode)
		}

		if err := log.WriteString(runlog.Separator); err != nil {
			return stats, err
		}

		if runID != "" {
			if err := recorder.RecordInvocation(inv); err != nil {
				r.logger.Warn("failed to record invocation", "seq", inv.Seq, "error", err)
			}
		}
	}

	if err := log.WriteString(runlog.DoneMarker); err != nil {
		return stats, fmt.Errorf("failed to finish log: %w", err)
	}
	return stats, nil
}
