package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldDescriptor is one answered question in a submitted form.
type FieldDescriptor struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// FieldSet is the normalized form of every accepted payload shape.
// Descriptors keep arrival order.
type FieldSet struct {
	descriptors []FieldDescriptor
}

// NewFieldSet builds a FieldSet from descriptors in the given order.
func NewFieldSet(descriptors ...FieldDescriptor) FieldSet {
	return FieldSet{descriptors: append([]FieldDescriptor(nil), descriptors...)}
}

// Len returns the number of descriptors.
func (s FieldSet) Len() int {
	return len(s.descriptors)
}

// Lookup scans the descriptors and returns the value of the first one whose
// label matches.
func (s FieldSet) Lookup(label string, match LabelMatch) (any, bool) {
	for _, d := range s.descriptors {
		if match.Equal(d.Label, label) {
			return d.Value, true
		}
	}
	return nil, false
}

// Extract builds the destination row. Labels absent from the set resolve
// to nil.
func Extract(set FieldSet, match LabelMatch) Row {
	row := make(Row, len(Fields))
	for i, f := range Fields {
		v, _ := set.Lookup(f.Label, match)
		row[i] = Cell{Column: f.Column, Value: v}
	}
	return row
}

// envelope is the outer webhook body.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// NormalizePayload accepts either payload shape and returns a FieldSet:
//
//	{"data":{"fields":[{"label":..,"value":..}, ...]}}
//	{"data":{"fields":{"<label>": <value>, ...}}}
//	{"data":{"<label>": <value>, ...}}
//
// Both flat shapes must carry at least one canonical label, otherwise the
// object is not recognizable as a submission. Descriptors without a string
// label match nothing and are skipped.
func NormalizePayload(body []byte, match LabelMatch) (FieldSet, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return FieldSet{}, InvalidPayload("body must be a JSON object")
	}
	if !isJSONObject(env.Data) {
		return FieldSet{}, InvalidPayload("data must be an object")
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return FieldSet{}, InvalidPayload("data must be an object")
	}

	if rawFields, ok := data["fields"]; ok {
		switch firstByte(rawFields) {
		case '[':
			return fromDescriptors(rawFields)
		case '{':
			return fromFlat(rawFields, match, "data.fields has no known field label")
		}
		return FieldSet{}, InvalidPayload("data.fields must be an array or an object")
	}

	return fromFlat(env.Data, match, "data has neither a fields collection nor any known field label")
}

func fromFlat(raw json.RawMessage, match LabelMatch, missing string) (FieldSet, error) {
	set, err := fromObject(raw)
	if err != nil {
		return FieldSet{}, err
	}
	for _, d := range set.descriptors {
		if isCanonicalLabel(d.Label, match) {
			return set, nil
		}
	}
	return FieldSet{}, InvalidPayload(missing)
}

func fromDescriptors(raw json.RawMessage) (FieldSet, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return FieldSet{}, InvalidPayload("data.fields must be an array")
	}

	descriptors := make([]FieldDescriptor, 0, len(items))
	for i, item := range items {
		var elem map[string]json.RawMessage
		if err := json.Unmarshal(item, &elem); err != nil || elem == nil {
			return FieldSet{}, InvalidPayload(fmt.Sprintf("data.fields[%d] must be an object", i))
		}
		rawLabel, ok := elem["label"]
		if !ok || firstByte(rawLabel) != '"' {
			continue
		}
		var d FieldDescriptor
		if err := json.Unmarshal(rawLabel, &d.Label); err != nil {
			return FieldSet{}, InvalidPayload(fmt.Sprintf("data.fields[%d].label is malformed", i))
		}
		if v, ok := elem["value"]; ok {
			if err := json.Unmarshal(v, &d.Value); err != nil {
				return FieldSet{}, InvalidPayload(fmt.Sprintf("data.fields[%d].value is not valid JSON", i))
			}
		}
		descriptors = append(descriptors, d)
	}
	return FieldSet{descriptors: descriptors}, nil
}

// fromObject keeps the key order of the JSON object so the first
// occurrence of a label wins, as with the descriptor shape.
func fromObject(raw json.RawMessage) (FieldSet, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return FieldSet{}, InvalidPayload("fields object is malformed")
	}

	var descriptors []FieldDescriptor
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return FieldSet{}, InvalidPayload("fields object is malformed")
		}
		label, ok := tok.(string)
		if !ok {
			return FieldSet{}, InvalidPayload("fields object is malformed")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return FieldSet{}, InvalidPayload("fields object is malformed")
		}
		descriptors = append(descriptors, FieldDescriptor{Label: label, Value: value})
	}
	return FieldSet{descriptors: descriptors}, nil
}

func isJSONObject(raw json.RawMessage) bool {
	return firstByte(raw) == '{'
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
