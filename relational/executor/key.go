package executor

import (
	"fmt"
	"math"
	"time"

	"github.com/wbrown/janus-relational/relational"
)

// keyTuple is a hashable join key: the values at a row's key positions.
// It avoids string allocations by hashing the underlying values directly.
type keyTuple struct {
	hash   uint64
	values Row
	// nullBearing keys never equal any key, including themselves
	nullBearing bool
}

// extractKey builds the key tuple of row at the given positions.
func extractKey(row Row, indices []int) (keyTuple, error) {
	values := make(Row, len(indices))
	nullBearing := false
	for i, idx := range indices {
		if idx >= len(row) {
			return keyTuple{}, relational.KeyExtractionf(
				"row has %d fields, key %d needs position %d", len(row), i, idx)
		}
		v := row[idx]
		if relational.IsNull(v) {
			nullBearing = true
		}
		values[i] = v
	}

	k := keyTuple{values: values, nullBearing: nullBearing}
	if !nullBearing {
		k.hash = hashValues(values)
	}
	return k, nil
}

// keyEqualFunc decides key-tuple equality after the hashes agree
type keyEqualFunc func(a, b Row) bool

// keyEquality returns the equality used for spec's keys: the spec's
// comparator when set, field-wise ValuesEqual otherwise.
func keyEquality(spec relational.JoinSpec) keyEqualFunc {
	if spec.Comparator != nil {
		cmp := spec.Comparator
		return func(a, b Row) bool {
			return cmp(a, b) == 0
		}
	}
	return func(a, b Row) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !relational.ValuesEqual(a[i], b[i]) {
				return false
			}
		}
		return true
	}
}

// hashValues computes an FNV-1a style hash over a key's values
func hashValues(values Row) uint64 {
	const prime = 1099511628211
	hash := uint64(14695981039346656037)

	for _, v := range values {
		hash ^= hashValue(v)
		hash *= prime
	}

	return hash
}

// hashValue hashes a single value without string conversion where
// possible. Values that ValuesEqual considers equal hash equally, so
// int64(1) and float64(1) land in the same bucket.
func hashValue(v interface{}) uint64 {
	switch val := v.(type) {
	case nil:
		return 0
	case string:
		return hashString(val)
	case int:
		return uint64(val)
	case int32:
		return uint64(int64(val))
	case int64:
		return uint64(val)
	case uint64:
		return val
	case float64:
		// Integral floats hash like the integer they equal exactly
		if val == math.Trunc(val) {
			switch {
			case val >= math.MinInt64 && val < float64(1<<63):
				return uint64(int64(val))
			case val >= float64(1<<63) && val < math.MaxUint64:
				return uint64(val)
			}
		}
		return math.Float64bits(val)
	case bool:
		if val {
			return 1
		}
		return 2
	case time.Time:
		return uint64(val.UnixNano())
	case []byte:
		return hashBytes(val)
	default:
		// Unknown types compare by their string form
		return hashString(fmt.Sprintf("%v", val))
	}
}

// hashBytes hashes a byte slice
func hashBytes(b []byte) uint64 {
	const prime = 1099511628211
	hash := uint64(14695981039346656037)

	for _, c := range b {
		hash ^= uint64(c)
		hash *= prime
	}

	return hash
}

// hashString hashes a string without allocation
func hashString(s string) uint64 {
	const prime = 1099511628211
	hash := uint64(14695981039346656037)

	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime
	}

	return hash
}
