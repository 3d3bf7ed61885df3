package relational

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"
)

// CompareValues compares two values and returns:
//
//	-1 if left < right
//	 0 if left == right
//	 1 if left > right
//
// Numeric types compare exactly across widths (int, int32, int64, uint64,
// float64): int64(2^53+1) is greater than float64(2^53).
// Nil is less than any non-nil value. Mismatched families compare as -1,
// unknown types fall back to comparing their string forms.
func CompareValues(left, right interface{}) int {
	// Handle nil
	if left == nil && right == nil {
		return 0
	}
	if left == nil {
		return -1
	}
	if right == nil {
		return 1
	}

	// Handle numeric comparisons
	if l, ok := asNumber(left); ok {
		if r, ok := asNumber(right); ok {
			return compareNumbers(l, r)
		}
		// Numeric vs non-numeric: type mismatch
		return -1
	}

	switch l := left.(type) {
	case string:
		if r, ok := right.(string); ok {
			return strings.Compare(l, r)
		}
		// String vs non-string: type mismatch
		return -1
	case bool:
		if r, ok := right.(bool); ok {
			if !l && r {
				return -1
			} else if l && !r {
				return 1
			}
			return 0
		}
		return -1
	case time.Time:
		if r, ok := right.(time.Time); ok {
			if l.Before(r) {
				return -1
			} else if l.After(r) {
				return 1
			}
			return 0
		}
		return -1
	case []byte:
		if r, ok := right.([]byte); ok {
			return bytes.Compare(l, r)
		}
		return -1
	}

	// Fall back to string comparison for unknown types
	return strings.Compare(stringValue(left), stringValue(right))
}

// ValuesEqual checks if two values are equal.
// It uses CompareValues for consistent equality checking, so 1 and 1.0 are
// equal. Two nils are equal here; SQL key matching treats null separately.
func ValuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	// []byte is not comparable with ==, handle it before the fast path
	if ab, ok := a.([]byte); ok {
		bb, ok := b.([]byte)
		return ok && bytes.Equal(ab, bb)
	}
	if _, ok := b.([]byte); ok {
		return false
	}

	switch a.(type) {
	case string, bool, int, int32, int64, uint64, float64:
		if a == b {
			return true
		}
	}

	if !sameFamily(a, b) {
		return false
	}
	return CompareValues(a, b) == 0
}

// CompareKeys orders two key tuples field by field.
// Shorter tuples sort first when one is a prefix of the other.
func CompareKeys(a, b Row) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := CompareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareInt64s(int64(len(a)), int64(len(b)))
}

// number is a numeric value in its exact form. Integers never pass
// through float64, so values above 2^53 keep every bit.
type number struct {
	kind numberKind
	i    int64   // numInt
	u    uint64  // numBigUint, always > math.MaxInt64
	f    float64 // numFloat
}

type numberKind uint8

const (
	numInt numberKind = iota
	numBigUint
	numFloat
)

// two63 is 2^63, the first float64 outside the int64 range
const two63 = float64(1 << 63)

// asNumber classifies any numeric value
func asNumber(v interface{}) (number, bool) {
	switch n := v.(type) {
	case int:
		return number{kind: numInt, i: int64(n)}, true
	case int32:
		return number{kind: numInt, i: int64(n)}, true
	case int64:
		return number{kind: numInt, i: n}, true
	case uint64:
		if n <= math.MaxInt64 {
			return number{kind: numInt, i: int64(n)}, true
		}
		return number{kind: numBigUint, u: n}, true
	case float64:
		return number{kind: numFloat, f: n}, true
	}
	return number{}, false
}

// compareNumbers orders two numbers exactly, including mixed integer and
// float operands.
func compareNumbers(a, b number) int {
	switch {
	case a.kind == numFloat && b.kind == numFloat:
		return compareFloats(a.f, b.f)
	case a.kind == numFloat:
		return compareFloatToInteger(a.f, b)
	case b.kind == numFloat:
		return -compareFloatToInteger(b.f, a)
	case a.kind == numInt && b.kind == numInt:
		return compareInt64s(a.i, b.i)
	case a.kind == numBigUint && b.kind == numBigUint:
		return compareUint64s(a.u, b.u)
	case a.kind == numBigUint:
		return 1
	default:
		return -1
	}
}

// compareFloatToInteger compares f against an integral number without
// rounding the integer to float64.
func compareFloatToInteger(f float64, n number) int {
	if math.IsNaN(f) {
		return 0
	}
	t := math.Trunc(f)
	var c int
	if n.kind == numInt {
		switch {
		case t >= two63:
			return 1
		case t < -two63:
			return -1
		}
		c = compareInt64s(int64(t), n.i)
	} else {
		switch {
		case t < two63:
			return -1
		case t >= 2*two63:
			return 1
		}
		c = compareUint64s(uint64(t), n.u)
	}
	if c != 0 {
		return c
	}
	return compareFloats(f, t)
}

func sameFamily(a, b interface{}) bool {
	if _, ok := asNumber(a); ok {
		_, ok := asNumber(b)
		return ok
	}
	switch a.(type) {
	case string:
		_, ok := b.(string)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	case time.Time:
		_, ok := b.(time.Time)
		return ok
	}
	return true
}

// compareInt64s compares two int64 values
func compareInt64s(a, b int64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// compareUint64s compares two uint64 values
func compareUint64s(a, b uint64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// compareFloats compares two float64 values
func compareFloats(a, b float64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// stringValue converts any value to a string for comparison
func stringValue(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
