package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leapstack-labs/leapsweep/internal/process"
	"github.com/leapstack-labs/leapsweep/internal/rundir"
)

// DefaultPlotPattern matches the scripts generated into tmp/.
const DefaultPlotPattern = "tmp/*.gp"

// Plotter renders every generated plot script of a run directory.
type Plotter struct {
	Command string
	// Pattern is a glob relative to the run directory.
	Pattern  string
	Executor process.Executor
	Logger   *slog.Logger
}

// PlotStats summarizes a plotting pass.
type PlotStats struct {
	Attempted int `json:"attempted"`
	Failed    int `json:"failed"`
}

// Scripts lists the plot scripts of dir in lexical order.
func (p *Plotter) Scripts(dir *rundir.Dir) ([]string, error) {
	pattern := p.Pattern
	if pattern == "" {
		pattern = DefaultPlotPattern
	}
	matches, err := filepath.Glob(filepath.Join(dir.Path, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid plot pattern %q: %w", pattern, err)
	}

	scripts := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(dir.Path, m)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, rel)
	}
	return scripts, nil
}

// Plot invokes the plot command once per script, from inside the run
// directory. A failing script is logged and the next one is attempted.
func (p *Plotter) Plot(ctx context.Context, dir *rundir.Dir) (PlotStats, error) {
	var stats PlotStats

	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	exec := p.Executor
	if exec == nil {
		exec = process.ExecExecutor{}
	}

	scripts, err := p.Scripts(dir)
	if err != nil {
		return stats, err
	}

	for _, script := range scripts {
		stats.Attempted++
		res, err := exec.Run(ctx, process.Command{Name: p.Command, Args: []string{script}, Dir: dir.Path})
		switch {
		case err != nil:
			stats.Failed++
			logger.Warn("plot could not be started", "script", script, "error", err)
		case !res.Success():
			stats.Failed++
			logger.Warn("plot failed", "script", script, "exit_code", res.ExitCode)
		default:
			logger.Debug("plotted", "script", script)
		}
	}
	return stats, nil
}
