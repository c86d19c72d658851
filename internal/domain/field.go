package domain

import (
	"fmt"
	"strings"
)

// Field pairs a form question label with the destination column it is
// written to.
type Field struct {
	Label  string
	Column string
}

// Fields is the canonical field table. Every component that needs a label or
// a column name reads it from here.
var Fields = []Field{
	{Label: "Nombre", Column: "Nombre"},
	{Label: "Apellido", Column: "Apellido"},
	{Label: "Número celular", Column: "Numero celular"},
	{Label: "Fecha", Column: "Fecha"},
	{Label: "Hora", Column: "Hora"},
	{Label: "Color Favorito", Column: "Color favorito"},
}

// Columns returns the destination column names in canonical order.
func Columns() []string {
	cols := make([]string, len(Fields))
	for i, f := range Fields {
		cols[i] = f.Column
	}
	return cols
}

// LabelMatch controls how payload labels are compared to canonical labels.
type LabelMatch string

const (
	// LabelMatchExact compares labels byte for byte.
	LabelMatchExact LabelMatch = "exact"
	// LabelMatchFold compares labels with Unicode case folding.
	LabelMatchFold LabelMatch = "fold"
)

// ParseLabelMatch validates a configured match policy.
func ParseLabelMatch(s string) (LabelMatch, error) {
	switch LabelMatch(s) {
	case LabelMatchExact, LabelMatchFold:
		return LabelMatch(s), nil
	}
	return "", fmt.Errorf("unknown label match %q, must be one of: exact, fold", s)
}

// Equal reports whether a payload label matches a canonical label.
func (m LabelMatch) Equal(got, want string) bool {
	if m == LabelMatchFold {
		return strings.EqualFold(got, want)
	}
	return got == want
}

// isCanonicalLabel reports whether label names one of the canonical fields.
func isCanonicalLabel(label string, match LabelMatch) bool {
	for _, f := range Fields {
		if match.Equal(label, f.Label) {
			return true
		}
	}
	return false
}
