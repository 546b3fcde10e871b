package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapsweep/internal/experiment"
)

// OutputModes are the accepted values of the output option.
var OutputModes = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.ExperimentSchema(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Program.Command) == "" {
		errs = append(errs, errors.New("program.command is required"))
	}
	if !c.Build.Skip && strings.TrimSpace(c.Build.Command) == "" {
		errs = append(errs, errors.New("build.command is required unless build.skip is set"))
	}
	if !c.Plot.Skip && strings.TrimSpace(c.Plot.Command) == "" {
		errs = append(errs, errors.New("plot.command is required unless plot.skip is set"))
	}
	if c.OutputFormat != "" && !slices.Contains(OutputModes, c.OutputFormat) {
		errs = append(errs, fmt.Errorf("invalid output format %q (want %s)", c.OutputFormat, strings.Join(OutputModes, ", ")))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ExperimentSchema resolves the effective record schema: a preset, or the
// custom column list, with the configured distributions and strictness.
func (c *Config) ExperimentSchema() (experiment.Schema, error) {
	var schema experiment.Schema

	name := c.Schema
	if name == "" {
		name = experiment.DefaultSchema
	}

	if name == experiment.SchemaCustom || len(c.Columns) > 0 {
		if len(c.Columns) == 0 {
			return schema, errors.New("schema \"custom\" needs a columns list")
		}
		schema = experiment.Schema{
			Name:          experiment.SchemaCustom,
			Distributions: append([]string(nil), experiment.DefaultDistributions...),
		}
		for _, col := range c.Columns {
			kind, err := experiment.ParseColumnKind(col)
			if err != nil {
				return schema, fmt.Errorf("invalid columns: %w", err)
			}
			schema.Columns = append(schema.Columns, kind)
		}
	} else {
		var err error
		schema, err = experiment.Preset(name)
		if err != nil {
			return schema, err
		}
	}

	if len(c.Distributions) > 0 {
		schema.Distributions = append([]string(nil), c.Distributions...)
	}
	schema.Lenient = c.Validation.Lenient

	if err := schema.Validate(); err != nil {
		return schema, fmt.Errorf("invalid schema %s: %w", schema.Name, err)
	}
	return schema, nil
}
