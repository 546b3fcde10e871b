package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapsweep/internal/cli/output"
	"github.com/leapstack-labs/leapsweep/internal/runlog"
	"github.com/spf13/cobra"
)

// NewCleanLogCommand creates the clean-log command.
func NewCleanLogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean-log LOGFILE...",
		Short: "Remove progress-redraw escapes from experiment logs",
		Long: `Rewrite experiment logs in place, replacing every cursor-up/erase-line
escape sequence left behind by progress output with eight spaces.

Cleaning is idempotent. run already does this for the logs it writes.`,
		Example: `  leapsweep clean-log experiments_2024-03-01-12:00:00/experiments.log`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanLog(NewCommandContextWithoutStore(cmd).Renderer, args)
		},
	}
}

func runCleanLog(r *output.Renderer, paths []string) error {
	type cleaned struct {
		Path     string `json:"path"`
		Replaced int    `json:"replaced"`
		Error    string `json:"error,omitempty"`
	}

	var results []cleaned
	var errs []error
	for _, path := range paths {
		n, err := runlog.CleanFile(path)
		res := cleaned{Path: path, Replaced: n}
		if err != nil {
			res.Error = err.Error()
			errs = append(errs, err)
		}
		results = append(results, res)
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(results); err != nil {
			return err
		}
		return errors.Join(errs...)
	}

	for _, res := range results {
		if res.Error != "" {
			r.StatusLine(res.Path, "failed", res.Error)
			continue
		}
		r.StatusLine(res.Path, "success", fmt.Sprintf("(%s replaced)", plural(res.Replaced, "sequence")))
	}
	return errors.Join(errs...)
}
