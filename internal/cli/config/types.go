// Package config provides configuration management for the leapsweep CLI.
//
// Values are layered with koanf: built-in defaults, then leapsweep.yaml,
// then LEAPSWEEP_* environment variables, then explicitly set flags.
package config

import (
	"github.com/leapstack-labs/leapsweep/internal/experiment"
	"github.com/leapstack-labs/leapsweep/internal/rundir"
	"github.com/leapstack-labs/leapsweep/internal/runlog"
)

// Config holds all CLI configuration options.
type Config struct {
	// Schema names a preset, or "custom" together with Columns.
	Schema        string           `koanf:"schema"`
	Columns       []string         `koanf:"columns"`
	Distributions []string         `koanf:"distributions"`
	Validation    ValidationConfig `koanf:"validation"`

	Program ProgramConfig `koanf:"program"`
	Build   BuildConfig   `koanf:"build"`
	Plot    PlotConfig    `koanf:"plot"`
	Run     RunConfig     `koanf:"run"`

	StatePath    string `koanf:"state_path"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
	LogLevel     string `koanf:"log_level"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// ValidationConfig tunes the line validator.
type ValidationConfig struct {
	// Lenient accepts tokens that merely contain a valid value.
	Lenient bool `koanf:"lenient"`
}

// ProgramConfig is the program invoked once per experiment.
type ProgramConfig struct {
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
}

// BuildConfig is the build step run before loading.
type BuildConfig struct {
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
	Dir     string   `koanf:"dir"`
	Skip    bool     `koanf:"skip"`
}

// PlotConfig is the plot step run after the experiments.
type PlotConfig struct {
	Command string `koanf:"command"`
	Pattern string `koanf:"pattern"`
	Skip    bool   `koanf:"skip"`
}

// RunConfig controls the run directory and its files.
type RunConfig struct {
	BaseDir    string `koanf:"base_dir"`
	Prefix     string `koanf:"prefix"`
	TimeFormat string `koanf:"time_format"`
	LogFile    string `koanf:"log_file"`
	AuditFile  string `koanf:"audit_file"`
}

// Layout returns the run directory layout.
func (r RunConfig) Layout() rundir.Layout {
	return rundir.Layout{Prefix: r.Prefix, TimeLayout: r.TimeFormat}
}

// Default configuration values.
const (
	DefaultStateFile   = ".leapsweep/state.db"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel    = "warn"
	DefaultProgram     = "java"
	DefaultMainClass   = "de.unikl.cs.agak.appportionment.experiments.RunningTimeMain"
	DefaultBuild       = "ant"
	DefaultPlotCommand = "gnuplot"
	DefaultPlotPattern = "tmp/*.gp"
)

// Defaults returns the built-in configuration as a flat koanf map.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"schema":             experiment.DefaultSchema,
		"validation.lenient": false,
		"program.command":    DefaultProgram,
		"program.args":       []string{"-cp", "../build", DefaultMainClass},
		"build.command":      DefaultBuild,
		"build.args":         []string{"clean", "compile"},
		"build.dir":          ".",
		"build.skip":         false,
		"plot.command":       DefaultPlotCommand,
		"plot.pattern":       DefaultPlotPattern,
		"plot.skip":          false,
		"run.base_dir":       ".",
		"run.prefix":         rundir.DefaultPrefix,
		"run.time_format":    rundir.DefaultTimeLayout,
		"run.log_file":       runlog.DefaultLogFile,
		"run.audit_file":     runlog.DefaultAuditFile,
		"state_path":         DefaultStateFile,
		"verbose":            false,
		"output":             DefaultOutput,
		"log_level":          DefaultLogLevel,
	}
}
