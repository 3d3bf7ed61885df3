package executor

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/wbrown/janus-relational/relational"
)

// maxPresize caps how much of a size estimate is trusted when pre-sizing
const maxPresize = 1 << 20

// bucket holds the build rows that share one non-null key, in build order.
type bucket struct {
	key  Row
	rows []int

	// emitted is set by the probe once a SEMI join has output this bucket.
	// Only the goroutine driving the iterator touches it.
	emitted bool
}

// hashTable is the build side of a hash join. It is populated once and is
// read-only afterwards, except for match flags which only the iterator's
// own goroutine writes.
type hashTable struct {
	buckets map[uint64][]*bucket
	rows    []Row

	// matched records, per build row, whether any probe row joined it.
	// Only allocated when unmatched build rows must be flushed.
	matched []bool

	bucketCount int
	nullKeys    int
	equal       keyEqualFunc
}

func newHashTable(capacity int, equal keyEqualFunc, trackMatches bool) *hashTable {
	ht := &hashTable{
		buckets: make(map[uint64][]*bucket, capacity),
		rows:    make([]Row, 0, capacity),
		equal:   equal,
	}
	if trackMatches {
		ht.matched = make([]bool, 0, capacity)
	}
	return ht
}

// insert adds a build row. Rows with null-bearing keys are kept for the
// unmatched flush but are never placed in a bucket, so nothing can match them.
func (ht *hashTable) insert(row Row, key keyTuple) (err error) {
	defer recoverComparator(&err)

	pos := len(ht.rows)
	ht.rows = append(ht.rows, row)
	if ht.matched != nil {
		ht.matched = append(ht.matched, false)
	}

	if key.nullBearing {
		ht.nullKeys++
		return nil
	}

	entries := ht.buckets[key.hash]
	for _, b := range entries {
		if ht.equal(b.key, key.values) {
			b.rows = append(b.rows, pos)
			return nil
		}
	}
	ht.buckets[key.hash] = append(entries, &bucket{key: key.values, rows: []int{pos}})
	ht.bucketCount++
	return nil
}

// lookup returns the bucket matching key, or nil. Safe for concurrent use
// once the build has finished.
func (ht *hashTable) lookup(key keyTuple) (b *bucket, err error) {
	if key.nullBearing {
		return nil, nil
	}
	defer recoverComparator(&err)

	for _, candidate := range ht.buckets[key.hash] {
		if ht.equal(candidate.key, key.values) {
			return candidate, nil
		}
	}
	return nil, nil
}

func (ht *hashTable) size() int {
	return len(ht.rows)
}

// release drops every reference to build rows
func (ht *hashTable) release() {
	ht.buckets = nil
	ht.rows = nil
	ht.matched = nil
}

// recoverComparator turns a panicking key comparator into an error that
// aborts the join.
func recoverComparator(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = errors.Wrap(e, "key comparator panicked")
			return
		}
		*err = errors.Newf("key comparator panicked: %v", r)
	}
}

// buildHashTable consumes src completely. It is the barrier before any
// probing starts.
func buildHashTable(ctx context.Context, src RowSource, spec relational.JoinSpec, opts ExecutorOptions) (*hashTable, error) {
	capacity := opts.DefaultHashTableSize
	if capacity <= 0 {
		capacity = 256
	}
	if sized, ok := src.(SizedSource); ok {
		estimate := sized.EstimatedRows()
		if math.IsInf(estimate, 1) || math.IsNaN(estimate) {
			return nil, relational.ResourceExhaustedf("build side is unbounded")
		}
		if opts.MaxBuildRows > 0 && estimate > float64(opts.MaxBuildRows) {
			return nil, relational.ResourceExhaustedf("build side estimated at %.0f rows, limit is %d",
				estimate, opts.MaxBuildRows)
		}
		if estimate > 0 {
			capacity = int(math.Min(estimate, maxPresize))
		}
	}

	ht := newHashTable(capacity, keyEquality(spec), spec.Kind.GeneratesNullsOnRight())

	it := src.Iterator()
	defer it.Close()

	for it.Next() {
		if ht.size()%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if opts.MaxBuildRows > 0 && ht.size() >= opts.MaxBuildRows {
			return nil, relational.ResourceExhaustedf("build side exceeds %d rows", opts.MaxBuildRows)
		}

		// Copy: the source may reuse its row buffer between calls
		row := it.Row().Copy()
		key, err := extractKey(row, spec.LeftKeys)
		if err != nil {
			return nil, errors.Wrapf(err, "build row %d", ht.size())
		}
		if err := ht.insert(row, key); err != nil {
			return nil, err
		}
	}
	if err := it.Err(); err != nil {
		return nil, errors.Wrap(err, "reading build side")
	}

	return ht, nil
}
