package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapsweep/internal/cli/output"
	"github.com/leapstack-labs/leapsweep/internal/experiment"
	"github.com/leapstack-labs/leapsweep/internal/pipeline"
	"github.com/leapstack-labs/leapsweep/internal/process"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command. --skip-build, --no-plot
// and --base-dir reach the configuration directly.
type RunOptions struct {
	DryRun     bool
	JSONOutput bool
}

// runOutput is the JSON summary of a run.
type runOutput struct {
	*pipeline.Result
	Errors   []string `json:"errors,omitempty"`
	Duration string   `json:"duration"`
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Validate experiment files and run every experiment",
		Long: `Build the program, validate every line of the given experiment files and
run each valid experiment in a fresh timestamped directory.

Invalid lines are reported and skipped. Every experiment is appended to
all.experiment, its output goes to experiments.log, and once all of them
ran the generated gnuplot scripts in tmp/ are rendered.`,
		Example: `  # Run two experiment files
  leapsweep run small.txt large.txt

  # Check what would run without building or executing anything
  leapsweep run --dry-run experiments.txt

  # Skip the ant build and plotting, write results elsewhere
  leapsweep run --skip-build --no-plot --base-dir /data/sweeps experiments.txt

  # Machine-readable summary
  leapsweep run --json experiments.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Usage()
			}
			return runRun(cmd, opts, args)
		},
	}

	cmd.Flags().Bool("skip-build", false, "Do not run the build command first")
	cmd.Flags().Bool("no-plot", false, "Do not render plot scripts afterwards")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Only validate the experiment files")
	cmd.Flags().String("base-dir", "", "Directory in which the run directory is created")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Print the run summary as JSON")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions, files []string) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	if opts.JSONOutput {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeJSON)
	}
	logger := cmdCtx.Logger

	// Run history is optional: without a store the experiments still run.
	var recorder pipeline.Recorder
	store, err := openStore(cfg.StatePath, logger)
	if err != nil {
		logger.Warn("run history disabled", "path", cfg.StatePath, "error", err)
	} else {
		defer func() { _ = store.Close() }()
		recorder = store
	}

	loader, err := newLoader(cfg, logger)
	if err != nil {
		return err
	}

	exec := process.ExecExecutor{}
	pcfg := pipeline.Config{
		Loader: loader,
		Runner: pipeline.NewRunner(pipeline.RunnerConfig{
			Program:   cfg.Program.Command,
			Args:      cfg.Program.Args,
			LogFile:   cfg.Run.LogFile,
			AuditFile: cfg.Run.AuditFile,
			Executor:  exec,
			Logger:    logger,
		}),
		Recorder: recorder,
		BaseDir:  cfg.Run.BaseDir,
		Layout:   cfg.Run.Layout(),
		DryRun:   opts.DryRun,
		Progress: r.StatusWriter(),
		Logger:   logger,
	}
	if r.EffectiveMode() != output.ModeJSON {
		pcfg.OnLoad = func(load *experiment.LoadResult) { printLoadErrors(r, load) }
	}
	if !cfg.Build.Skip {
		pcfg.Builder = &pipeline.Builder{
			Command:  cfg.Build.Command,
			Args:     cfg.Build.Args,
			Dir:      cfg.Build.Dir,
			Executor: exec,
			Logger:   logger,
		}
	}
	if !cfg.Plot.Skip {
		pcfg.Plotter = &pipeline.Plotter{
			Command:  cfg.Plot.Command,
			Pattern:  cfg.Plot.Pattern,
			Executor: exec,
			Logger:   logger,
		}
	}

	p, err := pipeline.New(pcfg)
	if err != nil {
		return err
	}

	start := time.Now()
	res, runErr := p.Run(cmd.Context(), files)
	elapsed := time.Since(start).Round(time.Millisecond)

	if r.EffectiveMode() == output.ModeJSON {
		out := runOutput{Result: res, Duration: elapsed.String()}
		if res.Load != nil {
			out.Errors = errorStrings(res.Load)
		}
		if err := r.JSON(out); err != nil {
			return err
		}
		return runErr
	}

	if runErr != nil {
		return runErr
	}

	renderRunSummary(r, res, elapsed)
	return nil
}

func renderRunSummary(r *output.Renderer, res *pipeline.Result, elapsed time.Duration) {
	r.Println("")
	if res.DryRun {
		status := "success"
		if res.Invalid > 0 {
			status = "failed"
		}
		r.StatusLine(plural(res.Records, "valid experiment"), status, fmt.Sprintf("(%d invalid lines)", res.Invalid))
		r.Muted("Dry run: nothing was built or executed.")
		return
	}

	r.Header(2, "Run summary")
	runStatus := "success"
	if res.Run.Failed > 0 {
		runStatus = "failed"
	}
	r.StatusLine(plural(res.Run.Attempted, "experiment"), runStatus, fmt.Sprintf("(%d failed)", res.Run.Failed))
	if res.Invalid > 0 {
		r.StatusLine(plural(res.Invalid, "invalid line"), "failed", "(skipped)")
	}
	plotStatus := "success"
	if res.Plots.Failed > 0 {
		plotStatus = "failed"
	}
	r.StatusLine(plural(res.Plots.Attempted, "plot script"), plotStatus, fmt.Sprintf("(%d failed)", res.Plots.Failed))
	r.Printf("Directory: %s\n", res.Directory)
	if res.RunID != "" {
		r.Muted("Run " + res.RunID)
	}
	r.Printf("Completed in %s\n", elapsed)
}
