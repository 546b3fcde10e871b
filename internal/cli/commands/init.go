package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapsweep/internal/cli/config"
	"github.com/leapstack-labs/leapsweep/internal/cli/output"
	"github.com/leapstack-labs/leapsweep/internal/experiment"
	"github.com/leapstack-labs/leapsweep/internal/rundir"
	"github.com/leapstack-labs/leapsweep/internal/runlog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Starter file names written by init.
const (
	starterConfig      = "leapsweep.yaml"
	starterExperiments = "experiments.txt"
)

// starterFile mirrors the config keys a new project usually edits.
type starterFile struct {
	Schema        string            `yaml:"schema"`
	Distributions []string          `yaml:"distributions"`
	Validation    map[string]bool   `yaml:"validation"`
	Program       starterCommand    `yaml:"program"`
	Build         starterCommand    `yaml:"build"`
	Plot          map[string]string `yaml:"plot"`
	Run           map[string]string `yaml:"run"`
	StatePath     string            `yaml:"state_path"`
}

type starterCommand struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

const starterExperimentsBody = `# One experiment per line, columns separated by whitespace.
# Lines starting with # and blank lines are ignored.
#
# label  n-list     k-list  reps  runs  seed  distribution  method
small    100,200    2,4     10    3     NOW   uniform       SainteLague
ldm      1000,2000  5       10    3     42    pareto1.5     LDM(0.5,1)
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a starter leapsweep.yaml and experiment file",
		Long: `Initialize a directory for running experiment sweeps.

This creates:
  - leapsweep.yaml with the default program, build and plot commands
  - experiments.txt with commented example lines`,
		Example: `  # Initialize in current directory
  leapsweep init

  # Initialize in a new directory
  leapsweep init sweeps

  # Force overwrite existing files
  leapsweep init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(NewCommandContextWithoutStore(cmd).Renderer, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, starterConfig)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", starterConfig)
	}

	body, err := yaml.Marshal(defaultStarter())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configPath, body, 0o644); err != nil { //nolint:gosec // config is not secret
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	r.StatusLine(configPath, "success", "")

	expPath := filepath.Join(dir, starterExperiments)
	switch _, err := os.Stat(expPath); {
	case err == nil && !force:
		r.StatusLine(expPath, "skipped", "(exists)")
	case err == nil || errors.Is(err, fs.ErrNotExist):
		if err := os.WriteFile(expPath, []byte(starterExperimentsBody), 0o644); err != nil { //nolint:gosec // sample data
			return fmt.Errorf("failed to write %s: %w", expPath, err)
		}
		r.StatusLine(expPath, "success", "")
	default:
		return err
	}

	r.Println("")
	r.Success("leapsweep project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Point program.command and program.args at your experiment driver")
	r.Println("  2. Edit experiments.txt")
	r.Println("  3. Run 'leapsweep check experiments.txt' to validate it")
	r.Println("  4. Run 'leapsweep run experiments.txt'")
	return nil
}

func defaultStarter() starterFile {
	cfg := config.Default()
	return starterFile{
		Schema:        experiment.DefaultSchema,
		Distributions: append([]string(nil), experiment.DefaultDistributions...),
		Validation:    map[string]bool{"lenient": false},
		Program:       starterCommand{Command: cfg.Program.Command, Args: cfg.Program.Args},
		Build:         starterCommand{Command: cfg.Build.Command, Args: cfg.Build.Args},
		Plot:          map[string]string{"command": cfg.Plot.Command, "pattern": cfg.Plot.Pattern},
		Run: map[string]string{
			"base_dir":    ".",
			"prefix":      rundir.DefaultPrefix,
			"time_format": rundir.DefaultTimeLayout,
			"log_file":    runlog.DefaultLogFile,
			"audit_file":  runlog.DefaultAuditFile,
		},
		StatePath: config.DefaultStateFile,
	}
}
