package executor

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/wbrown/janus-relational/relational"
)

func mustSpec(leftKeys, rightKeys []int, kind relational.JoinKind) relational.JoinSpec {
	spec, err := relational.NewJoinSpec(leftKeys, rightKeys, kind)
	if err != nil {
		panic(err)
	}
	return spec
}

func rows(rs ...Row) []Row {
	return rs
}

// trackingSource records how often it was opened, read and closed.
type trackingSource struct {
	inner  RowSource
	opened int32
	read   int32
	closed int32

	// failAfter makes the iterator fail once it has returned this many
	// rows. Negative disables the failure.
	failAfter int
}

func newTrackingSource(arity int, rs []Row) *trackingSource {
	return &trackingSource{inner: NewSliceSource(arity, rs), failAfter: -1}
}

func (s *trackingSource) Arity() int {
	return s.inner.Arity()
}

func (s *trackingSource) Iterator() Iterator {
	atomic.AddInt32(&s.opened, 1)
	return &trackingIterator{src: s, inner: s.inner.Iterator()}
}

type trackingIterator struct {
	src   *trackingSource
	inner Iterator
	count int
	err   error
}

var errSourceBroken = errors.New("source broken")

func (it *trackingIterator) Next() bool {
	if it.src.failAfter >= 0 && it.count >= it.src.failAfter {
		it.err = errSourceBroken
		return false
	}
	if !it.inner.Next() {
		return false
	}
	it.count++
	atomic.AddInt32(&it.src.read, 1)
	return true
}

func (it *trackingIterator) Row() Row {
	return it.inner.Row()
}

func (it *trackingIterator) Err() error {
	return it.err
}

func (it *trackingIterator) Close() error {
	atomic.AddInt32(&it.src.closed, 1)
	return it.inner.Close()
}

// reusingSource hands out the same row buffer for every row, the way a
// storage scan might.
type reusingSource struct {
	rows []Row
}

func (s *reusingSource) Arity() int {
	return len(s.rows[0])
}

func (s *reusingSource) Iterator() Iterator {
	return &reusingIterator{rows: s.rows, buf: make(Row, len(s.rows[0])), pos: -1}
}

type reusingIterator struct {
	rows []Row
	buf  Row
	pos  int
}

func (it *reusingIterator) Next() bool {
	it.pos++
	if it.pos >= len(it.rows) {
		return false
	}
	copy(it.buf, it.rows[it.pos])
	return true
}

func (it *reusingIterator) Row() Row     { return it.buf }
func (it *reusingIterator) Err() error   { return nil }
func (it *reusingIterator) Close() error { return nil }
