package executor

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/wbrown/janus-relational/relational"
)

// Run joins left and right with a background context and default options.
func Run(left, right RowSource, spec relational.JoinSpec) (Iterator, error) {
	return HashJoin(context.Background(), left, right, spec)
}

// HashJoin joins left and right on spec using default options and no
// annotations. See HashJoinWithOptions.
func HashJoin(ctx context.Context, left, right RowSource, spec relational.JoinSpec) (Iterator, error) {
	return HashJoinWithOptions(ctx, left, right, spec, DefaultExecutorOptions(), BaseContext{})
}

// HashJoinWithOptions validates spec, builds a hash table from all of left
// and returns an iterator that probes it with right lazily.
//
// Left is always the build side. The returned rows are left columns followed
// by right columns, padded with nulls on the side that did not match. SEMI
// joins return left rows unchanged. Output follows probe order, then build
// order within a key, then build order for the rows flushed by LEFT and
// FULL joins.
//
// The build is finished before this returns. Nothing runs in the
// background afterwards; all probing happens inside Next.
func HashJoinWithOptions(
	ctx context.Context,
	left, right RowSource,
	spec relational.JoinSpec,
	opts ExecutorOptions,
	jctx Context,
) (Iterator, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := checkKeysFit(left.Arity(), spec.LeftKeys, "left"); err != nil {
		return nil, err
	}
	if err := checkKeysFit(right.Arity(), spec.RightKeys, "right"); err != nil {
		return nil, err
	}
	if jctx == nil {
		jctx = BaseContext{}
	}

	id := uuid.NewString()
	start := time.Now()
	jctx.JoinBegin(id, spec)
	opts.debugf("[HashJoin] %s begin %s", shortID(id), spec)

	var table *hashTable
	err := jctx.BuildPhase(id, func() (BuildStats, error) {
		var err error
		table, err = buildHashTable(ctx, left, spec, opts)
		if err != nil {
			return BuildStats{}, err
		}
		return BuildStats{
			Rows:     table.size(),
			Buckets:  table.bucketCount,
			NullKeys: table.nullKeys,
		}, nil
	})
	if err != nil {
		opts.debugf("[HashJoin] %s build failed: %v", shortID(id), err)
		jctx.JoinComplete(id, start, 0, err)
		return nil, err
	}
	opts.debugf("[HashJoin] %s built %d rows into %d buckets (%d null keys) in %v",
		shortID(id), table.size(), table.bucketCount, table.nullKeys, time.Since(start))

	it := &hashJoinIterator{
		ctx:        ctx,
		id:         id,
		spec:       spec,
		opts:       opts,
		jctx:       jctx,
		start:      start,
		table:      table,
		right:      right,
		leftArity:  left.Arity(),
		rightArity: right.Arity(),
		semiLeft:   table.bucketCount,
	}
	if opts.ProbeWorkers > 1 {
		it.pool = NewWorkerPool(opts.ProbeWorkers)
	}
	return it, nil
}

// checkKeysFit rejects key positions beyond a source's declared arity
// before any row is read. Sources reporting arity 0 are checked per row.
func checkKeysFit(arity int, keys []int, side string) error {
	if arity <= 0 {
		return nil
	}
	for _, k := range keys {
		if k >= arity {
			return relational.KeyExtractionf("%s key position %d out of range for arity %d", side, k, arity)
		}
	}
	return nil
}

type joinPhase int

const (
	phaseProbe joinPhase = iota
	phaseFlush
	phaseDone
)

// hashJoinIterator streams the probe and flush phases of a hash join.
type hashJoinIterator struct {
	ctx   context.Context
	id    string
	spec  relational.JoinSpec
	opts  ExecutorOptions
	jctx  Context
	start time.Time

	table      *hashTable
	right      RowSource
	probe      Iterator
	pool       *WorkerPool
	leftArity  int
	rightArity int

	phase      joinPhase
	pending    []Row
	pendingIdx int
	current    Row
	flushPos   int
	probeStart time.Time
	flushStart time.Time

	// semiLeft counts buckets a SEMI join has not emitted yet
	semiLeft int

	probed   int
	matched  int
	emitted  int
	flushed  int
	err      error
	finished bool
}

func (it *hashJoinIterator) Next() bool {
	if it.finished {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.fail(err)
		return false
	}

	for {
		if it.pendingIdx < len(it.pending) {
			it.current = it.pending[it.pendingIdx]
			it.pending[it.pendingIdx] = nil
			it.pendingIdx++
			it.emitted++
			return true
		}
		it.pending = it.pending[:0]
		it.pendingIdx = 0

		if err := it.ctx.Err(); err != nil {
			it.fail(err)
			return false
		}

		switch it.phase {
		case phaseProbe:
			more, err := it.probeNext()
			if err != nil {
				it.fail(err)
				return false
			}
			if !more {
				if err := it.endProbe(); err != nil {
					it.fail(err)
					return false
				}
			}
		case phaseFlush:
			it.flushNext()
		case phaseDone:
			it.finish(nil)
			return false
		}
	}
}

func (it *hashJoinIterator) Row() Row {
	return it.current
}

func (it *hashJoinIterator) Err() error {
	return it.err
}

// Close stops the join early and releases the build table. It is safe to
// call more than once.
func (it *hashJoinIterator) Close() error {
	return it.finish(nil)
}

// probeDone reports whether the remaining probe rows cannot produce output.
func (it *hashJoinIterator) probeDone() bool {
	if it.spec.Kind.GeneratesNullsOnLeft() {
		return false
	}
	if it.spec.Kind == relational.SemiJoin {
		return it.semiLeft == 0
	}
	return it.table.bucketCount == 0
}

// probeNext consumes probe input until at least one row is pending or the
// input is exhausted. It returns false once there is nothing left to probe.
func (it *hashJoinIterator) probeNext() (bool, error) {
	if it.probeDone() {
		return false, nil
	}
	if it.probe == nil {
		it.probe = it.right.Iterator()
		it.probeStart = time.Now()
	}
	if it.pool != nil {
		return it.probeWindow()
	}

	for len(it.pending) == 0 {
		if !it.probe.Next() {
			if err := it.probe.Err(); err != nil {
				return false, errors.Wrap(err, "reading probe side")
			}
			return false, nil
		}
		row := it.probe.Row()
		b, err := it.lookup(row, it.probed)
		if err != nil {
			return false, err
		}
		it.emit(row, b)
		if it.probeDone() {
			break
		}
		if it.probed%1024 == 0 {
			if err := it.ctx.Err(); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// probeWindow reads up to ProbeWorkers×ProbeBatchSize probe rows, looks them
// up concurrently in batches and merges the results in probe order.
func (it *hashJoinIterator) probeWindow() (bool, error) {
	batchSize := it.opts.probeBatchSize()
	window := make([]Row, 0, batchSize*it.pool.GetWorkerCount())
	for len(window) < cap(window) && it.probe.Next() {
		// Copy: the row outlives the source's next call
		window = append(window, it.probe.Row().Copy())
	}
	if err := it.probe.Err(); err != nil {
		return false, errors.Wrap(err, "reading probe side")
	}
	if len(window) == 0 {
		return false, nil
	}

	base := it.probed
	found := make([]*bucket, len(window))
	batches := (len(window) + batchSize - 1) / batchSize
	err := it.pool.ExecuteParallel(it.ctx, batches, func(ctx context.Context, batch int) error {
		lo := batch * batchSize
		hi := lo + batchSize
		if hi > len(window) {
			hi = len(window)
		}
		for i := lo; i < hi; i++ {
			b, err := it.lookup(window[i], base+i)
			if err != nil {
				return err
			}
			found[i] = b
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	// Match flags and SEMI dedup are only touched here, in probe order
	for i, row := range window {
		it.emit(row, found[i])
		if it.probeDone() {
			break
		}
	}
	it.opts.debugf("[HashJoin] %s probed window of %d rows in %d batches",
		shortID(it.id), len(window), batches)
	return true, nil
}

func (it *hashJoinIterator) lookup(row Row, idx int) (*bucket, error) {
	key, err := extractKey(row, it.spec.RightKeys)
	if err != nil {
		return nil, errors.Wrapf(err, "probe row %d", idx)
	}
	return it.table.lookup(key)
}

// emit queues the output for one probe row and the bucket it matched.
func (it *hashJoinIterator) emit(right Row, b *bucket) {
	it.probed++
	if b != nil {
		it.matched++
	}

	if it.spec.Kind == relational.SemiJoin {
		if b == nil || b.emitted {
			return
		}
		b.emitted = true
		it.semiLeft--
		for _, pos := range b.rows {
			it.pending = append(it.pending, it.table.rows[pos])
		}
		return
	}

	if b == nil {
		if it.spec.Kind.GeneratesNullsOnLeft() {
			it.pending = append(it.pending, relational.Concat(relational.NullRow(it.leftArity), right))
		}
		return
	}
	for _, pos := range b.rows {
		it.pending = append(it.pending, relational.Concat(it.table.rows[pos], right))
		if it.table.matched != nil {
			it.table.matched[pos] = true
		}
	}
}

// endProbe closes the probe input and moves on to the flush phase when
// unmatched build rows have to be emitted.
func (it *hashJoinIterator) endProbe() error {
	var err error
	if it.probe != nil {
		err = it.probe.Close()
		it.probe = nil
	}
	if it.probeStart.IsZero() {
		it.probeStart = time.Now()
	}
	it.jctx.ProbeComplete(it.id, it.probeStart, it.probed, it.matched, it.emitted)
	it.opts.debugf("[HashJoin] %s probed %d rows, %d matched, %d emitted",
		shortID(it.id), it.probed, it.matched, it.emitted)
	if err != nil {
		return errors.Wrap(err, "closing probe side")
	}

	if it.spec.Kind.GeneratesNullsOnRight() {
		it.phase = phaseFlush
		it.flushStart = time.Now()
	} else {
		it.phase = phaseDone
	}
	return nil
}

// flushNext queues the next batch of unmatched build rows, in build order.
func (it *hashJoinIterator) flushNext() {
	rows := it.table.rows
	limit := it.opts.probeBatchSize()
	for it.flushPos < len(rows) && len(it.pending) < limit {
		pos := it.flushPos
		it.flushPos++
		if !it.table.matched[pos] {
			it.pending = append(it.pending, relational.Concat(rows[pos], relational.NullRow(it.rightArity)))
			it.flushed++
		}
	}
	if it.flushPos >= len(rows) {
		it.jctx.FlushComplete(it.id, it.flushStart, it.flushed)
		it.opts.debugf("[HashJoin] %s flushed %d unmatched build rows", shortID(it.id), it.flushed)
		it.phase = phaseDone
	}
}

func (it *hashJoinIterator) fail(err error) {
	it.err = err
	it.finish(err)
}

// finish releases every resource held by the join and reports completion
// exactly once.
func (it *hashJoinIterator) finish(cause error) error {
	if it.finished {
		return nil
	}
	it.finished = true

	var closeErr error
	if it.probe != nil {
		closeErr = it.probe.Close()
		it.probe = nil
	}
	if it.table != nil {
		it.table.release()
		it.table = nil
	}
	it.pending = nil
	it.current = nil
	it.phase = phaseDone

	it.jctx.JoinComplete(it.id, it.start, it.emitted, cause)
	if cause != nil {
		it.opts.debugf("[HashJoin] %s failed after %d rows: %v", shortID(it.id), it.emitted, cause)
	} else {
		it.opts.debugf("[HashJoin] %s complete: %d rows in %v", shortID(it.id), it.emitted, time.Since(it.start))
	}
	return closeErr
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
