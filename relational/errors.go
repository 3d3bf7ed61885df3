package relational

import (
	"github.com/cockroachdb/errors"
)

// Join failures are reported by wrapping one of these sentinels, so callers
// classify them with errors.Is.
var (
	// ErrInvalidSpecification is returned before any row is read when the
	// key lists are empty, differ in length, or hold negative positions.
	ErrInvalidSpecification = errors.New("invalid join specification")

	// ErrKeyExtraction is returned when a row lacks a declared key field.
	ErrKeyExtraction = errors.New("key extraction failed")

	// ErrResourceExhausted is returned when the build side cannot be
	// materialized. The planner may recover by choosing a non-hash strategy.
	ErrResourceExhausted = errors.New("hash table resources exhausted")
)

// InvalidSpecificationf wraps ErrInvalidSpecification with detail.
func InvalidSpecificationf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidSpecification, format, args...)
}

// KeyExtractionf wraps ErrKeyExtraction with detail.
func KeyExtractionf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrKeyExtraction, format, args...)
}

// ResourceExhaustedf wraps ErrResourceExhausted with detail.
func ResourceExhaustedf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrResourceExhausted, format, args...)
}

// IsRecoverableByReplanning reports whether err signals a condition the
// planner can route around by picking a different join algorithm.
func IsRecoverableByReplanning(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}
