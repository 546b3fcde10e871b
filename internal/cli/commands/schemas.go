package commands

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsweep/internal/cli/output"
	"github.com/leapstack-labs/leapsweep/internal/experiment"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// schemaInfo is the JSON form of one schema.
type schemaInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Columns     []string `json:"columns"`
	Active      bool     `json:"active"`
}

type schemasOutput struct {
	Schemas       []schemaInfo `json:"schemas"`
	Distributions []string     `json:"distributions"`
	Methods       []string     `json:"methods"`
}

// NewSchemasCommand creates the schemas command.
func NewSchemasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List the experiment line layouts and accepted values",
		Long: `Show the built-in column layouts, the one currently configured, the
accepted distributions and the apportionment method grammar.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchemas(NewCommandContextWithoutStore(cmd))
		},
	}
}

func runSchemas(cmdCtx *CommandContext) error {
	r := cmdCtx.Renderer

	active, err := cmdCtx.Cfg.ExperimentSchema()
	if err != nil {
		return err
	}

	var infos []schemaInfo
	for _, name := range experiment.PresetNames() {
		s, err := experiment.Preset(name)
		if err != nil {
			return err
		}
		infos = append(infos, schemaInfo{
			Name:        name,
			Description: experiment.PresetDescription(name),
			Columns:     kindNames(s.Columns),
			Active:      name == active.Name,
		})
	}
	if active.Name == experiment.SchemaCustom {
		infos = append(infos, schemaInfo{
			Name:        active.Name,
			Description: "columns from configuration",
			Columns:     kindNames(active.Columns),
			Active:      true,
		})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(schemasOutput{
			Schemas:       infos,
			Distributions: active.Distributions,
			Methods:       experiment.MethodNames(),
		})
	}

	titleCaser := cases.Title(language.English)
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name
		if info.Active {
			name += " *"
		}
		cols := make([]string, len(info.Columns))
		for i, c := range info.Columns {
			cols[i] = titleCaser.String(c)
		}
		rows = append(rows, []string{name, strconv.Itoa(len(cols)), strings.Join(cols, " "), info.Description})
	}

	r.Header(1, "Schemas")
	r.Table([]string{"Name", "Width", "Columns", "Description"}, rows)
	r.Muted("* active")
	r.Println("")
	r.Header(2, "Distributions")
	r.Println(strings.Join(active.Distributions, ", "))
	r.Println("")
	r.Header(2, "Methods")
	r.Println(strings.Join(experiment.MethodNames(), ", "))
	return nil
}

func kindNames(kinds []experiment.ColumnKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
