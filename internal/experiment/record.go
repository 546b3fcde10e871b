package experiment

import "strings"

// Record is one validated experiment line. It is never mutated after validation.
type Record struct {
	// File and Line locate the definition the record was built from.
	File string
	Line int

	fields []string
	method Method
}

// Fields returns a copy of the record's fields in column order.
func (r *Record) Fields() []string {
	return append([]string(nil), r.fields...)
}

// Field returns the field at the 0-based column index.
func (r *Record) Field(i int) string {
	return r.fields[i]
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// Label returns the free-form first column.
func (r *Record) Label() string {
	return r.fields[0]
}

// Method returns the parsed method column, or nil when the schema has none.
func (r *Record) Method() Method {
	return r.method
}

// String joins the fields with tabs, the format of the audit file.
func (r *Record) String() string {
	return strings.Join(r.fields, "\t")
}

// Set is an ordered collection of records; order is run order.
type Set []*Record
