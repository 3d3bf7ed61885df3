package cost

import (
	"math"

	"github.com/wbrown/janus-relational/relational"
)

const (
	// DefaultEpsilon is added to the final cost of one of two mirror-image
	// join shapes so the planner never sees an exact tie between them. When
	// the total is too large for it to register, the next representable
	// float64 is used instead.
	DefaultEpsilon = 1e-3

	// DefaultSemiJoinFactor scales semi-join costs. A semi-join emits at
	// most one copy of each build row and never materializes joined rows.
	DefaultSemiJoinFactor = 0.01
)

// Statistics are the externally supplied row estimates for one join.
// Any value may be +Inf, meaning unknown or unbounded.
type Statistics struct {
	// OutputRows is the planner's estimate of the join's output cardinality.
	OutputRows float64
	// LeftRows is the estimated size of the build input.
	LeftRows float64
	// RightRows is the estimated size of the probe input.
	RightRows float64
}

// Model is the hash-join cost model. The zero value behaves like
// DefaultModel().
type Model struct {
	Epsilon        float64
	SemiJoinFactor float64
	Factory        CostFactory
}

// DefaultModel returns the model with its documented constants.
func DefaultModel() Model {
	return Model{
		Epsilon:        DefaultEpsilon,
		SemiJoinFactor: DefaultSemiJoinFactor,
		Factory:        DefaultFactory,
	}
}

func (m Model) epsilon() float64 {
	if m.Epsilon <= 0 {
		return DefaultEpsilon
	}
	return m.Epsilon
}

func (m Model) semiJoinFactor() float64 {
	if m.SemiJoinFactor <= 0 {
		return DefaultSemiJoinFactor
	}
	return m.SemiJoinFactor
}

func (m Model) factory() CostFactory {
	if m.Factory == nil {
		return DefaultFactory
	}
	return m.Factory
}

// Estimate returns the cost of a hash join with the left input as build side.
//
// leftStructurallyGreater is the planner's structural ordering of the two
// child plans; it is only used to make one of two mirror-image joins
// slightly more expensive. Estimate never fails: unbounded inputs produce
// an infinite cost.
func (m Model) Estimate(spec relational.JoinSpec, stats Statistics, leftStructurallyGreater bool) Cost {
	// Cheaper if the smaller input is the build side: L log L for the
	// hash table, linear for the probe.
	rows := stats.OutputRows + NLogN(stats.LeftRows) + stats.RightRows
	if math.IsInf(stats.LeftRows, 1) || math.IsInf(stats.RightRows, 1) {
		rows = math.Inf(1)
	}
	if spec.Kind == relational.SemiJoin {
		rows *= m.semiJoinFactor()
	}

	// Joins can be flipped and both versions usually cost the same. Make
	// exactly one of them more expensive so the choice is stable.
	if spec.Kind == relational.RightJoin || leftStructurallyGreater {
		rows = addEpsilon(rows, m.epsilon())
	}

	return m.factory()(rows, 0, 0)
}

// addEpsilon returns d+eps, or the next float64 above d when eps is lost
// to rounding, so the result is always strictly greater for finite d.
func addEpsilon(d, eps float64) float64 {
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return d
	}
	bumped := d + eps
	if bumped <= d {
		bumped = math.Nextafter(d, math.Inf(1))
	}
	return bumped
}

// EstimateHashJoin is Estimate on DefaultModel().
func EstimateHashJoin(spec relational.JoinSpec, stats Statistics, leftStructurallyGreater bool) Cost {
	return DefaultModel().Estimate(spec, stats, leftStructurallyGreater)
}

// NLogN returns d·ln(d), or d itself when d < e. The two branches meet at
// e, so the term is continuous, monotone and never negative.
func NLogN(d float64) float64 {
	if d < math.E {
		return d
	}
	return d * math.Log(d)
}
