package experiment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SeedNow is the seed token replaced by the current time in microseconds.
const SeedNow = "NOW"

var (
	integerListStrict = regexp.MustCompile(`^\d+(,\d+)*$`)
	integerListLoose  = regexp.MustCompile(`\d+(,\d+)*`)
	integerStrict     = regexp.MustCompile(`^\d+$`)
	integerLoose      = regexp.MustCompile(`\d+`)
	floatPattern      = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// Validator checks single experiment lines against a Schema.
type Validator struct {
	schema Schema
	now    func() time.Time

	distributions map[string]bool
	distList      string
	methodList    string
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock sets the clock used to resolve NOW seeds.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewValidator creates a validator for the given schema.
func NewValidator(schema Schema, opts ...Option) (*Validator, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	v := &Validator{
		schema:        schema,
		now:           time.Now,
		distributions: make(map[string]bool, len(schema.Distributions)),
		distList:      strings.Join(schema.Distributions, ", "),
		methodList:    strings.Join(MethodNames(), ", "),
	}
	for _, d := range schema.Distributions {
		v.distributions[d] = true
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Schema returns the schema the validator enforces.
func (v *Validator) Schema() Schema {
	return v.schema
}

// IsSkipped reports whether a trimmed line carries no experiment.
func IsSkipped(line string) bool {
	return line == "" || line[0] == '#'
}

// ValidateLine validates one trimmed line. Blank and comment lines return
// neither a record nor errors. Every failing column is reported; a record is
// only returned when there are no errors.
func (v *Validator) ValidateLine(file string, lineNo int, line string) (*Record, []*ValidationError) {
	if IsSkipped(line) {
		return nil, nil
	}

	tokens := strings.Fields(line)
	if len(tokens) != v.schema.Width() {
		return nil, []*ValidationError{{
			File:    file,
			Line:    lineNo,
			Message: fmt.Sprintf("need %s columns.", countWord(v.schema.Width())),
		}}
	}

	rec := &Record{
		File:   file,
		Line:   lineNo,
		fields: make([]string, len(tokens)),
	}
	var errs []*ValidationError

	for i, kind := range v.schema.Columns {
		field, msg := v.checkColumn(kind, i+1, tokens[i], rec)
		if msg != "" {
			errs = append(errs, &ValidationError{File: file, Line: lineNo, Column: i + 1, Message: msg})
			continue
		}
		rec.fields[i] = field
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return rec, nil
}

// checkColumn returns the normalized field, or a non-empty message on failure.
func (v *Validator) checkColumn(kind ColumnKind, col int, token string, rec *Record) (string, string) {
	switch kind {
	case ColumnLabel:
		return token, ""

	case ColumnIntegerList:
		if v.match(integerListStrict, integerListLoose, token) {
			return token, ""
		}
		return "", fmt.Sprintf("column %d needs to be a comma-separated list of integers.", col)

	case ColumnInteger:
		if v.match(integerStrict, integerLoose, token) {
			return token, ""
		}
		return "", fmt.Sprintf("column %d needs to be an integer.", col)

	case ColumnSeed:
		if v.match(integerStrict, integerLoose, token) {
			return token, ""
		}
		if token == SeedNow {
			return strconv.FormatInt(v.now().UnixMicro(), 10), ""
		}
		return "", fmt.Sprintf("column %d needs to be an integer or '%s'.", col, SeedNow)

	case ColumnDistribution:
		if v.distributions[token] {
			return token, ""
		}
		return "", fmt.Sprintf("column %d needs to be one of %s.", col, v.distList)

	case ColumnMethod:
		var m Method
		if v.schema.Lenient {
			m, _ = FindMethod(token)
		} else {
			m, _ = ParseMethod(token)
		}
		if m != nil {
			rec.method = m
			return token, ""
		}
		return "", fmt.Sprintf("column %d needs to be one of %s.", col, v.methodList)

	case ColumnFloat:
		if floatPattern.MatchString(token) {
			return token, ""
		}
		return "", fmt.Sprintf("column %d needs to be a decimal number.", col)
	}

	return "", fmt.Sprintf("column %d has unsupported kind %q.", col, kind)
}

func (v *Validator) match(strict, loose *regexp.Regexp, token string) bool {
	if v.schema.Lenient {
		return loose.MatchString(token)
	}
	return strict.MatchString(token)
}
