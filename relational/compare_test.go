package relational

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompareValues(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	tests := []struct {
		name     string
		left     interface{}
		right    interface{}
		expected int
	}{
		{"nil nil", nil, nil, 0},
		{"nil first", nil, 1, -1},
		{"nil last", "a", nil, 1},
		{"int vs int64", 1, int64(2), -1},
		{"int64 vs float64 equal", int64(3), 3.0, 0},
		{"float fraction", 3.5, int64(3), 1},
		{"uint64", uint64(10), 9, 1},
		{"int32", int32(-1), int64(-1), 0},
		{"strings", "apple", "banana", -1},
		{"bools", true, false, 1},
		{"times", t1, t2, -1},
		{"bytes", []byte("b"), []byte("a"), 1},
		{"mismatch", "1", 1, -1},
		{"int64 above 2^53 vs float64", int64(1<<53 + 1), float64(1 << 53), 1},
		{"float64 vs int64 above 2^53", float64(1 << 53), int64(1<<53 + 1), -1},
		{"big uint64 vs float64 equal", uint64(1 << 63), float64(1 << 63), 0},
		{"big uint64 vs int64", uint64(1<<63 + 1), int64(math.MaxInt64), 1},
		{"float64 beyond int64", 1e19, int64(math.MaxInt64), 1},
		{"negative fraction", -2.5, int64(-2), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompareValues(tt.left, tt.right))
		})
	}
}

func TestValuesEqual(t *testing.T) {
	now := time.Now()

	assert.True(t, ValuesEqual(nil, nil))
	assert.False(t, ValuesEqual(nil, 0))
	assert.True(t, ValuesEqual(1, int64(1)))
	assert.True(t, ValuesEqual(2, 2.0))
	assert.False(t, ValuesEqual(2, 2.5))
	assert.True(t, ValuesEqual("x", "x"))
	assert.False(t, ValuesEqual("1", 1))
	assert.True(t, ValuesEqual(now, now.In(time.UTC)))
	assert.True(t, ValuesEqual([]byte{1, 2}, []byte{1, 2}))
	assert.False(t, ValuesEqual([]byte{1}, "\x01"))
	assert.False(t, ValuesEqual(true, 1))
	assert.False(t, ValuesEqual(int64(1<<53+1), float64(1<<53)))
	assert.True(t, ValuesEqual(uint64(1<<63), float64(1<<63)))
}

func TestCompareKeys(t *testing.T) {
	assert.Equal(t, 0, CompareKeys(Row{1, "a"}, Row{int64(1), "a"}))
	assert.Equal(t, -1, CompareKeys(Row{1, "a"}, Row{1, "b"}))
	assert.Equal(t, 1, CompareKeys(Row{2}, Row{1, "z"}))
	assert.Equal(t, -1, CompareKeys(Row{1}, Row{1, "z"}))
}
