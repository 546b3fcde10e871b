package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapsweep/internal/cli/output"
	"github.com/leapstack-labs/leapsweep/internal/pipeline"
	"github.com/leapstack-labs/leapsweep/internal/process"
	"github.com/leapstack-labs/leapsweep/internal/rundir"
	"github.com/spf13/cobra"
)

// NewPlotCommand creates the plot command.
func NewPlotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plot RUNDIR",
		Short: "Render the plot scripts of an existing run directory",
		Long: `Invoke the plot command (gnuplot by default) once for every script matching
the plot pattern (tmp/*.gp by default) inside an existing run directory.

Failing scripts are reported and the remaining ones are still rendered.`,
		Example: `  leapsweep plot experiments_2024-03-01-12:00:00`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(cmd, args[0])
		},
	}
}

func runPlot(cmd *cobra.Command, path string) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	dir, err := rundir.Open(path, cfg.Run.Layout())
	if err != nil {
		return err
	}

	plotter := &pipeline.Plotter{
		Command:  cfg.Plot.Command,
		Pattern:  cfg.Plot.Pattern,
		Executor: process.ExecExecutor{},
		Logger:   cmdCtx.Logger,
	}
	stats, err := plotter.Plot(cmd.Context(), dir)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(stats)
	}

	status := "success"
	if stats.Failed > 0 {
		status = "failed"
	}
	r.StatusLine(plural(stats.Attempted, "plot script"), status, fmt.Sprintf("(%d failed)", stats.Failed))
	return nil
}
