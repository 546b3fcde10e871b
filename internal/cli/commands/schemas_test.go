package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemas_Text(t *testing.T) {
	setupProject(t)

	out, _, err := execute(NewSchemasCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "divisor-k *")
	assert.Contains(t, out, "Label")
	assert.Contains(t, out, "Distribution")
	assert.Contains(t, out, "pareto1.5")
	assert.Contains(t, out, "LDM(double,double)")
}

func TestSchemas_CustomJSON(t *testing.T) {
	setupProject(t)
	useConfig(t, `output: json
schema: custom
columns: [label, integer, float]
distributions: [uniform, zipf]
`)

	out, _, err := execute(NewSchemasCommand())
	require.NoError(t, err)

	var got schemasOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"uniform", "zipf"}, got.Distributions)

	var active []string
	for _, s := range got.Schemas {
		if s.Active {
			active = append(active, s.Name)
		}
	}
	assert.Equal(t, []string{"custom"}, active)
	last := got.Schemas[len(got.Schemas)-1]
	assert.Equal(t, []string{"label", "integer", "float"}, last.Columns)
}
