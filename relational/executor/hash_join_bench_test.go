package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/wbrown/janus-relational/relational"
)

// =============================================================================
// Build Size Benchmarks
// =============================================================================
// Sources that cannot report their size are built with DefaultHashTableSize
// as the initial capacity. These benchmarks show the cost of that guess.

// sizelessSource hides EstimatedRows so the build cannot presize
type sizelessSource struct {
	src *SliceSource
}

func (s sizelessSource) Arity() int         { return s.src.Arity() }
func (s sizelessSource) Iterator() Iterator { return s.src.Iterator() }

func benchRows(n int, prefix string) []Row {
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		rows[i] = Row{int64(i), fmt.Sprintf("%s%d", prefix, i)}
	}
	return rows
}

func BenchmarkHashJoinBuildSize(b *testing.B) {
	buildSizes := []int{64, 256, 1024}
	dataSizes := []int{100, 1000, 10000}

	spec := mustSpec([]int{0}, []int{0}, relational.InnerJoin)
	for _, buildSize := range buildSizes {
		for _, dataSize := range dataSizes {
			b.Run(fmt.Sprintf("build_%d/data_%d", buildSize, dataSize), func(b *testing.B) {
				left := sizelessSource{NewSliceSource(2, benchRows(dataSize, "name"))}
				right := NewSliceSource(2, benchRows(dataSize, "value"))
				opts := DefaultExecutorOptions()
				opts.DefaultHashTableSize = buildSize

				b.ResetTimer()
				b.ReportAllocs()

				for i := 0; i < b.N; i++ {
					it, err := HashJoinWithOptions(context.Background(), left, right, spec, opts, nil)
					if err != nil {
						b.Fatal(err)
					}
					for it.Next() {
						_ = it.Row()
					}
					it.Close()
				}
			})
		}
	}
}

// BenchmarkHashJoinParallelProbe compares serial and windowed parallel
// probing against a fixed build side
func BenchmarkHashJoinParallelProbe(b *testing.B) {
	left := NewSliceSource(2, benchRows(1000, "name"))
	probeRows := make([]Row, 100000)
	for i := range probeRows {
		probeRows[i] = Row{int64(i % 2000), i}
	}
	right := NewSliceSource(2, probeRows)

	for _, kind := range []relational.JoinKind{relational.InnerJoin, relational.FullJoin} {
		spec := mustSpec([]int{0}, []int{0}, kind)
		for _, workers := range []int{1, 2, 4, 8} {
			b.Run(fmt.Sprintf("%s/workers_%d", kind, workers), func(b *testing.B) {
				opts := DefaultExecutorOptions()
				opts.ProbeWorkers = workers
				b.ReportAllocs()

				for i := 0; i < b.N; i++ {
					it, err := HashJoinWithOptions(context.Background(), left, right, spec, opts, nil)
					if err != nil {
						b.Fatal(err)
					}
					for it.Next() {
						_ = it.Row()
					}
					if err := it.Err(); err != nil {
						b.Fatal(err)
					}
					it.Close()
				}
			})
		}
	}
}
