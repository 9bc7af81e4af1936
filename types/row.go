package types

import "maps"

// KeyField is the pseudo-column name that resolves to a row's key when the row
// carries no field of that name.
const KeyField = "key"

// Key identifies a row. Numeric keys from the wire are normalized to their decimal text.
type Key string

// Row is a keyed record in the canonical table.
//
// Field values are opaque: the library never coerces or deep-merges them. Rows handed
// out by the table or inside a Diff are copies; mutating them does not affect the table.
type Row struct {
	Key    Key
	Fields map[string]any
}

// NewRow creates a row holding a shallow copy of fields.
func NewRow(key Key, fields map[string]any) Row {
	r := Row{Key: key, Fields: make(map[string]any, len(fields))}
	maps.Copy(r.Fields, fields)

	return r
}

// Clone returns a copy of the row with its own field map.
// Nested values (maps, slices) are shared, matching the shallow merge semantics.
func (r Row) Clone() Row {
	return NewRow(r.Key, r.Fields)
}

// Value returns the value stored under field.
//
// The KeyField name resolves to the row key unless the row defines a field of
// that name itself.
//
// Returns:
//   - any: Field value (nil if absent)
//   - bool: true if the field exists
func (r Row) Value(field string) (any, bool) {
	if v, ok := r.Fields[field]; ok {
		return v, true
	}
	if field == KeyField {
		return string(r.Key), true
	}

	return nil, false
}
