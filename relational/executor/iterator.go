package executor

import (
	"math"

	"github.com/wbrown/janus-relational/relational"
)

// Row is an alias for relational.Row
type Row = relational.Row

// Iterator provides streaming access to rows
type Iterator interface {
	// Next advances to the next row. It returns false when the sequence is
	// exhausted or failed; check Err to tell the two apart.
	Next() bool

	// Row returns the current row
	Row() Row

	// Err returns the error that stopped iteration, if any
	Err() error

	// Close releases any resources. Safe to call more than once.
	Close() error
}

// RowSource is an input to a join: rows of a fixed arity, read in a stable
// order.
type RowSource interface {
	// Arity returns the number of fields in each row. It sizes the null
	// padding for outer joins.
	Arity() int

	// Iterator returns a fresh iterator over the rows
	Iterator() Iterator
}

// SizedSource is a RowSource that can report its expected size without
// being read. +Inf means unbounded.
type SizedSource interface {
	RowSource
	EstimatedRows() float64
}

// SliceSource is an in-memory RowSource
type SliceSource struct {
	arity int
	rows  []Row
}

// NewSliceSource creates a source over rows. An arity of 0 or less is
// taken from the first row.
func NewSliceSource(arity int, rows []Row) *SliceSource {
	if arity <= 0 && len(rows) > 0 {
		arity = len(rows[0])
	}
	return &SliceSource{arity: arity, rows: rows}
}

func (s *SliceSource) Arity() int {
	return s.arity
}

func (s *SliceSource) Iterator() Iterator {
	return &sliceIterator{rows: s.rows, pos: -1}
}

func (s *SliceSource) EstimatedRows() float64 {
	return float64(len(s.rows))
}

// Rows returns the underlying rows
func (s *SliceSource) Rows() []Row {
	return s.rows
}

// unboundedSource wraps a source whose size is unknown and unbounded
type unboundedSource struct {
	RowSource
}

// Unbounded marks src as having no size bound. The hash join refuses to use
// such a source as its build side.
func Unbounded(src RowSource) SizedSource {
	return unboundedSource{src}
}

func (u unboundedSource) EstimatedRows() float64 {
	return math.Inf(1)
}

type sliceIterator struct {
	rows []Row
	pos  int
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.rows)
}

func (it *sliceIterator) Row() Row {
	if it.pos >= 0 && it.pos < len(it.rows) {
		return it.rows[it.pos]
	}
	return nil
}

func (it *sliceIterator) Err() error {
	return nil
}

func (it *sliceIterator) Close() error {
	return nil
}

// CountingIterator wraps an iterator and tracks row count without buffering
type CountingIterator struct {
	inner Iterator
	count int
	done  bool
}

// NewCountingIterator creates a counting iterator wrapper
func NewCountingIterator(inner Iterator) *CountingIterator {
	return &CountingIterator{inner: inner}
}

func (i *CountingIterator) Next() bool {
	hasNext := i.inner.Next()
	if hasNext {
		i.count++
	} else {
		i.done = true
	}
	return hasNext
}

func (i *CountingIterator) Row() Row {
	return i.inner.Row()
}

func (i *CountingIterator) Err() error {
	return i.inner.Err()
}

func (i *CountingIterator) Close() error {
	return i.inner.Close()
}

// Count returns the number of rows seen so far
func (i *CountingIterator) Count() int {
	return i.count
}

// IsDone returns true if iteration has completed
func (i *CountingIterator) IsDone() bool {
	return i.done
}

// Collect drains it into a slice and closes it.
func Collect(it Iterator) ([]Row, error) {
	defer it.Close()

	var rows []Row
	for it.Next() {
		rows = append(rows, it.Row())
	}
	if err := it.Err(); err != nil {
		return rows, err
	}
	return rows, nil
}
