// Package pipeline drives a complete experiment run: build the program,
// load the experiment files, create the run directory, run every record,
// tidy the log and render the plots.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapsweep/internal/experiment"
	"github.com/leapstack-labs/leapsweep/internal/rundir"
	"github.com/leapstack-labs/leapsweep/internal/runlog"
	"github.com/leapstack-labs/leapsweep/internal/state"
)

// Config wires the pipeline components. Loader and Runner are required.
type Config struct {
	Loader *experiment.Loader
	Runner *Runner
	// Builder and Plotter are optional; nil skips the step.
	Builder *Builder
	Plotter *Plotter
	// Recorder stores run history (defaults to NopRecorder). The runner
	// records invocations through it under the run it created.
	Recorder Recorder
	// OnLoad is called with the load result before anything is executed
	// (optional).
	OnLoad func(*experiment.LoadResult)

	BaseDir string
	Layout  rundir.Layout
	// DryRun stops after loading and validation.
	DryRun bool

	// Progress receives human-readable status lines (optional).
	Progress io.Writer
	Now      func() time.Time
	Logger   *slog.Logger
}

// Pipeline runs experiment sets end to end.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// Result describes one pipeline execution.
type Result struct {
	RunID     string                 `json:"run_id,omitempty"`
	Directory string                 `json:"directory,omitempty"`
	Records   int                    `json:"records"`
	Invalid   int                    `json:"invalid_lines"`
	Built     bool                   `json:"built"`
	Run       RunStats               `json:"run"`
	Plots     PlotStats              `json:"plots"`
	Cleaned   int                    `json:"cleaned_sequences"`
	DryRun    bool                   `json:"dry_run,omitempty"`
	Load      *experiment.LoadResult `json:"-"`
}

// New validates the configuration and returns a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Loader == nil {
		return nil, errors.New("pipeline requires a loader")
	}
	if cfg.Runner == nil {
		return nil, errors.New("pipeline requires a runner")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	if cfg.Progress == nil {
		cfg.Progress = io.Discard
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{cfg: cfg, logger: logger}, nil
}

// Run executes the stages in order. Load problems are reported in the
// result and never stop the run. Only failing to create the run directory,
// to register the run or to write the log and audit files is fatal.
func (p *Pipeline) Run(ctx context.Context, files []string) (*Result, error) {
	res := &Result{DryRun: p.cfg.DryRun}

	if p.cfg.Builder != nil && !p.cfg.DryRun {
		res.Built = p.cfg.Builder.Build(ctx)
	}

	load := p.cfg.Loader.Load(files)
	res.Load = load
	res.Records = len(load.Records)
	res.Invalid = load.InvalidLines()
	p.logger.Info("loaded experiments", "files", len(files), "records", res.Records, "invalid", res.Invalid)
	if p.cfg.OnLoad != nil {
		p.cfg.OnLoad(load)
	}

	if p.cfg.DryRun {
		return res, nil
	}

	dir, err := rundir.Create(rundir.Options{
		BaseDir: p.cfg.BaseDir,
		Layout:  p.cfg.Layout,
		Now:     p.cfg.Now,
		Logger:  p.logger,
	})
	if err != nil {
		return res, err
	}
	res.Directory = dir.Path

	run, err := p.cfg.Recorder.CreateRun(dir.Path, p.cfg.Loader.Schema().Name, res.Records)
	if err != nil {
		return res, fmt.Errorf("failed to register run: %w", err)
	}
	res.RunID = run.ID

	p.progress("Performing %d experiments...\n", res.Records)
	p.progress("\t(Follow progress with 'tail -f %s')\n", p.cfg.Runner.LogPath(dir))

	res.Run, err = p.cfg.Runner.Run(ctx, dir, p.cfg.Recorder, run.ID, load.Records)
	if err != nil {
		p.complete(run.ID, state.RunStatusFailed, res.Run.Failed, err)
		return res, fmt.Errorf("experiment run failed: %w", err)
	}

	res.Cleaned, err = runlog.CleanFile(p.cfg.Runner.LogPath(dir))
	if err != nil {
		p.logger.Warn("failed to clean log", "path", p.cfg.Runner.LogPath(dir), "error", err)
	}

	if p.cfg.Plotter != nil {
		p.progress("Plotting...\n")
		res.Plots, err = p.cfg.Plotter.Plot(ctx, dir)
		if err != nil {
			p.logger.Warn("plotting skipped", "error", err)
		}
	}

	p.complete(run.ID, state.RunStatusCompleted, res.Run.Failed, nil)
	p.logger.Info("run finished", "directory", dir.Path, "experiments", res.Run.Attempted,
		"failed", res.Run.Failed, "plots", res.Plots.Attempted)
	return res, nil
}

func (p *Pipeline) complete(runID string, status state.RunStatus, failed int, runErr error) {
	if runID == "" {
		return
	}
	var msg string
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := p.cfg.Recorder.CompleteRun(runID, status, failed, msg); err != nil {
		p.logger.Warn("failed to complete run", "run_id", runID, "error", err)
	}
}

func (p *Pipeline) progress(format string, args ...any) {
	_, _ = fmt.Fprintf(p.cfg.Progress, format, args...)
}
