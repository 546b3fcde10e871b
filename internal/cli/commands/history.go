package commands

import (
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapsweep/internal/cli/output"
	"github.com/leapstack-labs/leapsweep/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// runDetail is the JSON form of a single run.
type runDetail struct {
	*state.Run
	Invocations []*state.Invocation `json:"invocations"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [RUN-ID]",
		Short: "Show past runs or the invocations of one run",
		Long: `List recorded runs, newest first. Given a run ID, list the program
invocations of that run in execution order with their exit codes.`,
		Example: `  # Recent runs
  leapsweep history

  # One run in detail
  leapsweep history 0b6f8c0e-6a55-4a8e-9f3e-2f0d7f3f9a1c`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 1 {
				return runHistoryDetail(cmdCtx, args[0])
			}
			return runHistoryList(cmdCtx, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")

	return cmd
}

func runHistoryList(cmdCtx *CommandContext, opts *HistoryOptions) error {
	r := cmdCtx.Renderer

	runs, err := cmdCtx.Store.ListRuns(opts.Limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	}

	if len(runs) == 0 {
		r.Muted("No runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			string(run.Status),
			strconv.Itoa(run.Experiments),
			strconv.Itoa(run.Failed),
			run.Directory,
		})
	}

	r.Header(1, "Runs")
	r.Table([]string{"ID", "Started", "Status", "Experiments", "Failed", "Directory"}, rows)
	return nil
}

func runHistoryDetail(cmdCtx *CommandContext, id string) error {
	r := cmdCtx.Renderer

	run, err := cmdCtx.Store.GetRun(id)
	if err != nil {
		return err
	}
	invs, err := cmdCtx.Store.ListInvocations(run.ID)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if invs == nil {
			invs = []*state.Invocation{}
		}
		return r.JSON(runDetail{Run: run, Invocations: invs})
	}

	r.Header(1, "Run "+run.ID)
	r.Printf("Directory:   %s\n", run.Directory)
	r.Printf("Schema:      %s\n", run.Schema)
	r.Printf("Status:      %s\n", run.Status)
	r.Printf("Started:     %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.CompletedAt != nil {
		r.Printf("Duration:    %s\n", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	if run.Error != "" {
		r.Printf("Error:       %s\n", run.Error)
	}
	r.Println("")

	rows := make([][]string, 0, len(invs))
	for _, inv := range invs {
		exit := strconv.Itoa(inv.ExitCode)
		if inv.Error != "" {
			exit = inv.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(inv.Seq),
			inv.Label,
			exit,
			inv.Duration.Round(time.Millisecond).String(),
			strings.Join(inv.Args, " "),
		})
	}
	r.Table([]string{"#", "Label", "Exit", "Duration", "Arguments"}, rows)
	return nil
}
