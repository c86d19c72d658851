package domain

import (
	"bytes"
	"encoding/json"
)

// Cell is one column of a destination row. A nil Value is written as null.
type Cell struct {
	Column string
	Value  any
}

// Row is a destination row in canonical column order.
type Row []Cell

// Get returns the value stored under column.
func (r Row) Get(column string) (any, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return nil, false
}

// Map returns the row as a column → value map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, c := range r {
		m[c.Column] = c.Value
	}
	return m
}

// MarshalJSON encodes the row as an object, keeping column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
