package executor

import (
	"context"
	"runtime"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// WorkerPool runs independent units of work on a bounded number of
// goroutines. The parallel probe uses it to look up batches of probe rows
// against a finished, read-only hash table.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a new worker pool
// workerCount: number of worker goroutines (0 = use NumCPU)
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}

// ExecuteParallel calls operation for every index in [0, n).
//
// Each operation writes its own result slot, so callers get results in
// index order. The first failure cancels the context handed to the
// remaining operations and is returned once all workers have stopped.
func (p *WorkerPool) ExecuteParallel(
	ctx context.Context,
	n int,
	operation func(ctx context.Context, idx int) error,
) error {
	if n == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workerCount)

	for i := 0; i < n; i++ {
		idx := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := operation(gctx, idx); err != nil {
				return errors.Wrapf(err, "parallel execution failed at index %d", idx)
			}
			return nil
		})
	}

	return g.Wait()
}

// GetWorkerCount returns the number of worker goroutines
func (p *WorkerPool) GetWorkerCount() int {
	return p.workerCount
}
