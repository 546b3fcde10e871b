package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapsweep/internal/cli/output"
	"github.com/leapstack-labs/leapsweep/internal/experiment"
	"github.com/spf13/cobra"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Watch bool
}

// checkOutput is the JSON form of a check.
type checkOutput struct {
	Schema  string                   `json:"schema"`
	Records int                      `json:"records"`
	Invalid int                      `json:"invalid_lines"`
	Files   []experiment.FileSummary `json:"files"`
	Errors  []string                 `json:"errors,omitempty"`
}

// watchDebounce groups editor save bursts into one re-check.
const watchDebounce = 200 * time.Millisecond

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Validate experiment files without running them",
		Long: `Validate every line of the given experiment files against the configured
schema and report each problem with its file and line number.

The command fails when any line is invalid or a file is missing.
With --watch it keeps running and re-validates whenever a file changes.`,
		Example: `  # Validate a file
  leapsweep check experiments.txt

  # Validate against the linear-divisor layout
  leapsweep check --schema linear ldm.txt

  # Re-validate on every save
  leapsweep check --watch experiments.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-validate whenever a file changes")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *CheckOptions, files []string) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	r := cmdCtx.Renderer

	loader, err := newLoader(cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}

	checkErr := checkOnce(r, loader, files)
	if !opts.Watch {
		return checkErr
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return watchFiles(ctx, cmdCtx.Logger, files, func() {
		r.Println("")
		r.Muted(fmt.Sprintf("[%s] change detected, re-validating", time.Now().Format(time.TimeOnly)))
		if err := checkOnce(r, loader, files); err != nil {
			r.Error(err.Error())
		}
	})
}

// checkOnce loads the files and renders the result.
func checkOnce(r *output.Renderer, loader *experiment.Loader, files []string) error {
	res := loader.Load(files)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(checkOutput{
			Schema:  loader.Schema().Name,
			Records: len(res.Records),
			Invalid: res.InvalidLines(),
			Files:   res.Files,
			Errors:  errorStrings(res),
		}); err != nil {
			return err
		}
	default:
		printLoadErrors(r, res)
		renderCheckSummary(r, loader.Schema(), res)
	}

	if res.HasErrors() {
		return fmt.Errorf("%s in %s", plural(len(res.Errors), "problem"), plural(len(files), "file"))
	}
	return nil
}

func renderCheckSummary(r *output.Renderer, schema experiment.Schema, res *experiment.LoadResult) {
	rows := make([][]string, 0, len(res.Files))
	for _, f := range res.Files {
		status := "ok"
		switch {
		case f.Missing:
			status = "missing"
		case f.Invalid > 0:
			status = "invalid"
		}
		rows = append(rows, []string{
			f.Path,
			strconv.Itoa(f.Lines),
			strconv.Itoa(f.Records),
			strconv.Itoa(f.Skipped),
			strconv.Itoa(f.Invalid),
			status,
		})
	}

	r.Println("")
	r.Header(2, fmt.Sprintf("Schema %s (%d columns)", schema.Name, schema.Width()))
	r.Table([]string{"File", "Lines", "Valid", "Skipped", "Invalid", "Status"}, rows)

	if res.HasErrors() {
		r.StatusLine(plural(len(res.Records), "valid experiment"), "failed", fmt.Sprintf("(%s)", plural(len(res.Errors), "problem")))
		return
	}
	r.Success(plural(len(res.Records), "valid experiment"))
}

// watchFiles calls onChange after any watched file is written, created or
// renamed, until ctx is done. Directories are watched so editors that
// replace files on save are still seen.
func watchFiles(ctx context.Context, logger *slog.Logger, files []string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[ev.Name] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			logger.Debug("file changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}
