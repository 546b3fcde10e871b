package experiment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ColumnKind identifies the validation rule applied to one column.
type ColumnKind string

// Supported column kinds.
const (
	ColumnLabel        ColumnKind = "label"
	ColumnIntegerList  ColumnKind = "integer-list"
	ColumnInteger      ColumnKind = "integer"
	ColumnSeed         ColumnKind = "seed"
	ColumnDistribution ColumnKind = "distribution"
	ColumnMethod       ColumnKind = "method"
	ColumnFloat        ColumnKind = "float"
)

// ColumnKinds lists every supported column kind in documentation order.
func ColumnKinds() []ColumnKind {
	return []ColumnKind{
		ColumnLabel,
		ColumnIntegerList,
		ColumnInteger,
		ColumnSeed,
		ColumnDistribution,
		ColumnMethod,
		ColumnFloat,
	}
}

// ParseColumnKind converts a config string into a ColumnKind.
func ParseColumnKind(s string) (ColumnKind, error) {
	kind := ColumnKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range ColumnKinds() {
		if k == kind {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown column kind %q (available: %s)", s, joinKinds(ColumnKinds()))
}

// Schema preset names.
const (
	SchemaDivisor  = "divisor"
	SchemaDivisorK = "divisor-k"
	SchemaLinear   = "linear"

	// DefaultSchema matches the column layout of the classic experiment files.
	DefaultSchema = SchemaDivisorK

	// SchemaCustom is reported as the name of schemas built from explicit columns.
	SchemaCustom = "custom"
)

// DefaultDistributions is the distribution set understood by RunningTimeMain.
var DefaultDistributions = []string{"uniform", "exponential", "poisson", "pareto1.5", "pareto2", "pareto3"}

var presets = map[string][]ColumnKind{
	SchemaDivisor: {
		ColumnLabel, ColumnIntegerList, ColumnInteger, ColumnInteger,
		ColumnSeed, ColumnDistribution, ColumnMethod,
	},
	SchemaDivisorK: {
		ColumnLabel, ColumnIntegerList, ColumnIntegerList, ColumnInteger, ColumnInteger,
		ColumnSeed, ColumnDistribution, ColumnMethod,
	},
	SchemaLinear: {
		ColumnLabel, ColumnIntegerList, ColumnInteger, ColumnInteger,
		ColumnSeed, ColumnDistribution, ColumnFloat, ColumnFloat,
	},
}

var presetDescriptions = map[string]string{
	SchemaDivisor:  "divisor method runs with a fixed k range",
	SchemaDivisorK: "divisor method runs with an explicit k or kmin,kmax column",
	SchemaLinear:   "linear divisor runs parameterised by alpha and beta",
}

// Schema describes the columns an experiment line must have.
type Schema struct {
	Name          string
	Columns       []ColumnKind
	Distributions []string
	// Lenient restores the historic unanchored matching: a token passes a
	// numeric or method rule when it merely contains a valid match.
	Lenient bool
}

// PresetNames returns the names of the built-in schemas, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetDescription returns a one-line summary of a built-in schema.
func PresetDescription(name string) string {
	return presetDescriptions[name]
}

// Preset returns a built-in schema with the default distribution set.
func Preset(name string) (Schema, error) {
	cols, ok := presets[name]
	if !ok {
		return Schema{}, fmt.Errorf("unknown schema %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return Schema{
		Name:          name,
		Columns:       append([]ColumnKind(nil), cols...),
		Distributions: append([]string(nil), DefaultDistributions...),
	}, nil
}

// Width is the exact number of whitespace-separated tokens a line must have.
func (s Schema) Width() int {
	return len(s.Columns)
}

// HasMethod reports whether the schema contains a method column.
func (s Schema) HasMethod() bool {
	return s.indexOf(ColumnMethod) >= 0
}

func (s Schema) indexOf(kind ColumnKind) int {
	for i, c := range s.Columns {
		if c == kind {
			return i
		}
	}
	return -1
}

// Validate checks the schema is usable by a Validator.
func (s Schema) Validate() error {
	if len(s.Columns) < 2 {
		return fmt.Errorf("schema %q needs a label and at least one data column", s.Name)
	}
	if s.Columns[0] != ColumnLabel {
		return fmt.Errorf("schema %q: first column must be %s, got %s", s.Name, ColumnLabel, s.Columns[0])
	}
	for i, c := range s.Columns[1:] {
		if _, err := ParseColumnKind(string(c)); err != nil {
			return fmt.Errorf("schema %q column %d: %w", s.Name, i+2, err)
		}
		if c == ColumnLabel {
			return fmt.Errorf("schema %q column %d: only the first column may be a label", s.Name, i+2)
		}
	}
	if s.indexOf(ColumnDistribution) >= 0 {
		if len(s.Distributions) == 0 {
			return fmt.Errorf("schema %q has a distribution column but no distributions", s.Name)
		}
		seen := make(map[string]bool, len(s.Distributions))
		for _, d := range s.Distributions {
			if d == "" || strings.ContainsAny(d, " \t") {
				return fmt.Errorf("schema %q: invalid distribution name %q", s.Name, d)
			}
			if seen[d] {
				return fmt.Errorf("schema %q: duplicate distribution %q", s.Name, d)
			}
			seen[d] = true
		}
	}
	return nil
}

func joinKinds(kinds []ColumnKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

var numberWords = []string{
	"zero", "one", "two", "three", "four", "five", "six",
	"seven", "eight", "nine", "ten", "eleven", "twelve",
}

// countWord spells small column counts the way the error messages use them.
func countWord(n int) string {
	if n >= 0 && n < len(numberWords) {
		return numberWords[n]
	}
	return strconv.Itoa(n)
}
