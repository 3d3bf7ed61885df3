package relational

import (
	"time"
)

// Value is a single field of a Row.
// Like the storage layer, we use interface{} with direct Go types.
type Value interface{}

// Valid value types:
// - nil (SQL NULL)
// - string
// - int, int32, int64, uint64
// - float64
// - bool
// - time.Time
// - []byte

// Null is the representation of an absent value.
var Null Value = nil

// Row is an ordered sequence of fields. Rows handed to the join operator
// are treated as read-only.
type Row []Value

// IsNull reports whether v represents absence.
func IsNull(v Value) bool {
	return v == nil
}

// NullRow returns a row of n null fields, used to pad the missing side of
// an outer join.
func NullRow(n int) Row {
	return make(Row, n)
}

// Concat returns a new row holding left's fields followed by right's.
// Neither input is modified.
func Concat(left, right Row) Row {
	out := make(Row, len(left)+len(right))
	copy(out, left)
	copy(out[len(left):], right)
	return out
}

// HasNullAt reports whether the field at idx is null. Positions past the
// end of the row are not null; key extraction reports those separately.
func (r Row) HasNullAt(idx int) bool {
	return idx >= 0 && idx < len(r) && r[idx] == nil
}

// Copy returns an independent copy of the row.
func (r Row) Copy() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Helper functions for creating typed values
func String(s string) Value  { return s }
func Int(i int64) Value      { return i }
func Float(f float64) Value  { return f }
func Bool(b bool) Value      { return b }
func Time(t time.Time) Value { return t }
func Bytes(b []byte) Value   { return b }
