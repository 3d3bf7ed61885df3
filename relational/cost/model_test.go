package cost

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-relational/relational"
)

func mustSpec(t *testing.T, kind relational.JoinKind) relational.JoinSpec {
	t.Helper()
	spec, err := relational.NewJoinSpec([]int{0}, []int{0}, kind)
	require.NoError(t, err)
	return spec
}

func TestEstimateComponents(t *testing.T) {
	spec := mustSpec(t, relational.InnerJoin)
	stats := Statistics{OutputRows: 100, LeftRows: 10, RightRows: 50}

	got := DefaultModel().Estimate(spec, stats, false)
	want := 100 + 10*math.Log(10) + 50
	assert.InDelta(t, want, got.Rows, 1e-9)
	assert.Zero(t, got.CPU)
	assert.Zero(t, got.IO)
}

func TestEstimateStabilityEpsilon(t *testing.T) {
	model := DefaultModel()
	stats := Statistics{OutputRows: 40, LeftRows: 10, RightRows: 5}

	t.Run("StructuralFlagAddsExactlyEpsilon", func(t *testing.T) {
		spec := mustSpec(t, relational.InnerJoin)
		greater := model.Estimate(spec, stats, true)
		smaller := model.Estimate(spec, stats, false)
		assert.InDelta(t, DefaultEpsilon, greater.Rows-smaller.Rows, 1e-9)
		assert.True(t, smaller.Less(greater))
	})

	t.Run("RightJoinAlwaysPaysEpsilon", func(t *testing.T) {
		inner := model.Estimate(mustSpec(t, relational.InnerJoin), stats, false)
		right := model.Estimate(mustSpec(t, relational.RightJoin), stats, false)
		rightGreater := model.Estimate(mustSpec(t, relational.RightJoin), stats, true)
		assert.InDelta(t, DefaultEpsilon, right.Rows-inner.Rows, 1e-9)
		// The epsilon is added once, not twice
		assert.Equal(t, right.Rows, rightGreater.Rows)
	})

	t.Run("MirroredShapesDifferOnlyByEpsilon", func(t *testing.T) {
		spec := mustSpec(t, relational.InnerJoin)
		symmetric := Statistics{OutputRows: 40, LeftRows: 10, RightRows: 10}
		ab := model.Estimate(spec, symmetric, true)
		ba := model.Estimate(spec.Swap(), symmetric, false)
		assert.InDelta(t, DefaultEpsilon, ab.Rows-ba.Rows, 1e-9)
	})

	t.Run("SurvivesLargeTotals", func(t *testing.T) {
		spec := mustSpec(t, relational.InnerJoin)
		for _, out := range []float64{1e14, 1e18, 1e300} {
			huge := Statistics{OutputRows: out, LeftRows: 1e6, RightRows: 1e6}
			greater := model.Estimate(spec, huge, true)
			smaller := model.Estimate(spec, huge, false)
			assert.True(t, smaller.Less(greater), "out=%g: %v vs %v", out, smaller, greater)
			assert.False(t, greater.Equal(smaller))
		}

		right := model.Estimate(mustSpec(t, relational.RightJoin), Statistics{OutputRows: 1e14, LeftRows: 1e6, RightRows: 1e6}, false)
		inner := model.Estimate(spec, Statistics{OutputRows: 1e14, LeftRows: 1e6, RightRows: 1e6}, false)
		assert.True(t, inner.Less(right))
	})

	t.Run("SemiJoinEpsilonAfterDiscount", func(t *testing.T) {
		spec := mustSpec(t, relational.SemiJoin)
		greater := model.Estimate(spec, stats, true)
		smaller := model.Estimate(spec, stats, false)
		assert.InDelta(t, DefaultEpsilon, greater.Rows-smaller.Rows, 1e-9)
	})

	t.Run("CustomEpsilon", func(t *testing.T) {
		custom := Model{Epsilon: 0.5}
		spec := mustSpec(t, relational.LeftJoin)
		diff := custom.Estimate(spec, stats, true).Rows - custom.Estimate(spec, stats, false).Rows
		assert.InDelta(t, 0.5, diff, 1e-9)
	})
}

func TestEstimateBuildSidePreference(t *testing.T) {
	spec := mustSpec(t, relational.InnerJoin)
	model := DefaultModel()

	smallBuild := model.Estimate(spec, Statistics{OutputRows: 100, LeftRows: 10, RightRows: 1000}, false)
	largeBuild := model.Estimate(spec, Statistics{OutputRows: 100, LeftRows: 1000, RightRows: 10}, false)
	assert.True(t, smallBuild.Less(largeBuild), "small build side should be cheaper: %v vs %v", smallBuild, largeBuild)
}

func TestEstimateInfinity(t *testing.T) {
	model := DefaultModel()
	inf := math.Inf(1)

	tests := []struct {
		name  string
		stats Statistics
	}{
		{"LeftInfinite", Statistics{OutputRows: 10, LeftRows: inf, RightRows: 5}},
		{"RightInfinite", Statistics{OutputRows: 10, LeftRows: 5, RightRows: inf}},
		{"BothInfinite", Statistics{OutputRows: 10, LeftRows: inf, RightRows: inf}},
	}

	for _, kind := range []relational.JoinKind{relational.InnerJoin, relational.RightJoin, relational.SemiJoin} {
		for _, tt := range tests {
			t.Run(kind.String()+"/"+tt.name, func(t *testing.T) {
				got := model.Estimate(mustSpec(t, kind), tt.stats, true)
				assert.True(t, got.IsInfinite(), "expected infinite cost, got %v", got)
				assert.False(t, math.IsNaN(got.Rows))
			})
		}
	}
}

func TestEstimateEmptyBuildSide(t *testing.T) {
	got := DefaultModel().Estimate(mustSpec(t, relational.InnerJoin), Statistics{OutputRows: 0, LeftRows: 0, RightRows: 7}, false)
	assert.False(t, math.IsNaN(got.Rows))
	assert.False(t, math.IsInf(got.Rows, -1))
	assert.Equal(t, 7.0, got.Rows)
}

func TestEstimateSemiJoinDiscount(t *testing.T) {
	model := DefaultModel()
	stats := Statistics{OutputRows: 100, LeftRows: 20, RightRows: 200}

	inner := model.Estimate(mustSpec(t, relational.InnerJoin), stats, false)
	semi := model.Estimate(mustSpec(t, relational.SemiJoin), stats, false)
	assert.InDelta(t, inner.Rows*DefaultSemiJoinFactor, semi.Rows, 1e-9)
	assert.True(t, semi.Less(inner))
}

func TestEstimateMonotonicInRightRows(t *testing.T) {
	model := DefaultModel()
	for _, kind := range []relational.JoinKind{
		relational.InnerJoin, relational.LeftJoin, relational.RightJoin, relational.FullJoin, relational.SemiJoin,
	} {
		spec := mustSpec(t, kind)
		prev := math.Inf(-1)
		for _, right := range []float64{0, 0.5, 1, 2, 10, 1e3, 1e6, math.Inf(1)} {
			got := model.Estimate(spec, Statistics{OutputRows: 50, LeftRows: 25, RightRows: right}, false)
			assert.GreaterOrEqual(t, got.Rows, prev, "%s: cost decreased at rightRows=%v", kind, right)
			prev = got.Rows
		}
	}
}

func TestCustomFactory(t *testing.T) {
	var gotRows float64
	model := Model{Factory: func(rows, cpu, io float64) Cost {
		gotRows = rows
		return Cost{Rows: rows, CPU: rows / 2}
	}}
	c := model.Estimate(mustSpec(t, relational.SemiJoin), Statistics{OutputRows: 1, LeftRows: 0, RightRows: 99}, false)
	assert.InDelta(t, 1.0, gotRows, 1e-9)
	assert.InDelta(t, 1.0, c.Rows, 1e-9)
	assert.InDelta(t, 0.5, c.CPU, 1e-9)
}

func TestNLogN(t *testing.T) {
	assert.Equal(t, 0.0, NLogN(0))
	assert.Equal(t, 0.5, NLogN(0.5))
	assert.Equal(t, 1.0, NLogN(1))
	assert.Equal(t, 2.0, NLogN(2))
	assert.InDelta(t, math.E, NLogN(math.E), 1e-12)
	assert.InDelta(t, 100*math.Log(100), NLogN(100), 1e-9)
}

func TestEstimateMonotonicInLeftRows(t *testing.T) {
	model := DefaultModel()
	spec := mustSpec(t, relational.InnerJoin)

	prev := math.Inf(-1)
	for left := 0.0; left <= 3.0; left += 0.01 {
		got := model.Estimate(spec, Statistics{OutputRows: 1, LeftRows: left, RightRows: 10}, false)
		assert.GreaterOrEqual(t, got.Rows, prev, "cost decreased at leftRows=%v", left)
		prev = got.Rows
	}

	small := model.Estimate(spec, Statistics{OutputRows: 1, LeftRows: 0.99, RightRows: 10}, false)
	one := model.Estimate(spec, Statistics{OutputRows: 1, LeftRows: 1, RightRows: 10}, false)
	assert.True(t, small.Less(one), "%v vs %v", small, one)
}

func TestCostOrdering(t *testing.T) {
	a := Cost{Rows: 1}
	b := Cost{Rows: 2, CPU: -100}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, Infinite.Equal(Cost{Rows: math.Inf(1)}))
	assert.False(t, Infinite.Less(Infinite))
	assert.Equal(t, Cost{Rows: 3, CPU: -100}, a.Plus(b))
	assert.Equal(t, "{inf}", Infinite.String())
	assert.Equal(t, Cost{Rows: 0.5, CPU: -25}, b.MultiplyBy(0.25))
}
