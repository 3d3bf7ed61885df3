package planner

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-relational/relational"
	"github.com/wbrown/janus-relational/relational/annotations"
	"github.com/wbrown/janus-relational/relational/cost"
)

func spec(t *testing.T, l, r []int, kind relational.JoinKind) relational.JoinSpec {
	t.Helper()
	s, err := relational.NewJoinSpec(l, r, kind)
	require.NoError(t, err)
	return s
}

func TestEnumerateHashJoins(t *testing.T) {
	a := &Scan{Table: "a", Rows: 10}
	b := &Scan{Table: "b", Rows: 5}

	joins := EnumerateHashJoins(a, b, spec(t, []int{0}, []int{2}, relational.LeftJoin), 7)
	require.Len(t, joins, 2)

	assert.Equal(t, "a⋈b", joins[0].String())
	assert.Equal(t, cost.Statistics{OutputRows: 7, LeftRows: 10, RightRows: 5}, joins[0].Stats)

	mirrored := joins[1]
	assert.Equal(t, "b⋈a", mirrored.String())
	assert.Equal(t, relational.RightJoin, mirrored.Spec.Kind)
	assert.Equal(t, []int{2}, mirrored.Spec.LeftKeys)
	assert.Equal(t, []int{0}, mirrored.Spec.RightKeys)
	assert.Equal(t, cost.Statistics{OutputRows: 7, LeftRows: 5, RightRows: 10}, mirrored.Stats)

	semi := EnumerateHashJoins(a, b, spec(t, []int{0}, []int{0}, relational.SemiJoin), 7)
	assert.Len(t, semi, 1)
}

func TestPlanJoinPrefersSmallerBuildSide(t *testing.T) {
	big := &Scan{Table: "orders", Rows: 1000}
	small := &Scan{Table: "customers", Rows: 10}
	p := NewPlanner(PlannerOptions{})

	plan, err := p.PlanJoin(big, small, spec(t, []int{1}, []int{0}, relational.InnerJoin), 1000)
	require.NoError(t, err)

	assert.True(t, plan.Swapped)
	assert.Equal(t, small, plan.Chosen.Node.Left)
	assert.Equal(t, []int{0}, plan.Chosen.Node.Spec.LeftKeys)
	require.Len(t, plan.Candidates, 2)
	assert.True(t, plan.Chosen.Cost.Less(plan.Candidates[0].Cost))
}

func TestPlanJoinMirrorCostsDifferByEpsilon(t *testing.T) {
	a := &Scan{Table: "a", Rows: 100}
	b := &Scan{Table: "b", Rows: 100}
	p := NewPlanner(PlannerOptions{})

	plan, err := p.PlanJoin(a, b, spec(t, []int{0}, []int{0}, relational.InnerJoin), 50)
	require.NoError(t, err)

	diff := math.Abs(plan.Candidates[0].Cost.Rows - plan.Candidates[1].Cost.Rows)
	assert.InDelta(t, cost.DefaultEpsilon, diff, 1e-9)

	// "a" sorts before "b", so building from a is not penalized
	assert.False(t, plan.Swapped)
}

func TestChooseIsOrderIndependent(t *testing.T) {
	a := &Scan{Table: "a", Rows: 10}
	b := &Scan{Table: "b", Rows: 10}
	joins := EnumerateHashJoins(a, b, spec(t, []int{0}, []int{0}, relational.FullJoin), 10)

	// Force an exact tie so only the structural order can decide
	cands := []Candidate{
		{Node: joins[0], Cost: cost.DefaultFactory(42, 0, 0)},
		{Node: joins[1], Cost: cost.DefaultFactory(42, 0, 0)},
	}
	p := NewPlanner(PlannerOptions{})

	first, err := p.Choose(cands)
	require.NoError(t, err)
	second, err := p.Choose([]Candidate{cands[1], cands[0]})
	require.NoError(t, err)
	assert.Same(t, first.Node, second.Node)

	_, err = p.Choose(nil)
	assert.Error(t, err)
}

func TestPlanJoinCustomComparator(t *testing.T) {
	a := &Scan{Table: "a", Rows: 100}
	b := &Scan{Table: "b", Rows: 100}

	// Reverse the default order: now "a" is the structurally greater input
	p := NewPlanner(PlannerOptions{Comparator: func(x, y Node) int {
		return -DefaultComparator(x, y)
	}})
	plan, err := p.PlanJoin(a, b, spec(t, []int{0}, []int{0}, relational.InnerJoin), 50)
	require.NoError(t, err)
	assert.True(t, plan.Swapped)
}

func TestPlanJoinInfiniteInput(t *testing.T) {
	stream := &Scan{Table: "stream", Rows: math.Inf(1)}
	dim := &Scan{Table: "dim", Rows: 20}
	p := NewPlanner(PlannerOptions{})

	plan, err := p.PlanJoin(stream, dim, spec(t, []int{0}, []int{0}, relational.InnerJoin), 100)
	require.NoError(t, err)
	assert.True(t, plan.Candidates[0].Cost.IsInfinite())
	assert.True(t, plan.Candidates[1].Cost.IsInfinite())
}

func TestPlanJoinInvalidSpec(t *testing.T) {
	p := NewPlanner(PlannerOptions{})
	_, err := p.PlanJoin(&Scan{Table: "a"}, &Scan{Table: "b"},
		relational.JoinSpec{LeftKeys: []int{0}, Kind: relational.InnerJoin}, 1)
	assert.True(t, errors.Is(err, relational.ErrInvalidSpecification))
}

func TestPlanJoinAnnotationsAndCache(t *testing.T) {
	var events []annotations.Event
	cache := NewEstimateCache(10, 0)
	p := NewPlanner(PlannerOptions{
		Cache: cache,
		Handler: func(e annotations.Event) {
			events = append(events, e)
		},
	})

	a := &Scan{Table: "a", Rows: 3}
	b := &Scan{Table: "b", Rows: 30}
	s := spec(t, []int{0}, []int{0}, relational.LeftJoin)

	first, err := p.PlanJoin(a, b, s, 30)
	require.NoError(t, err)
	second, err := p.PlanJoin(a, b, s, 30)
	require.NoError(t, err)
	assert.Equal(t, first.Chosen.Cost, second.Chosen.Cost)

	hits, misses, size := cache.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, 2, size)

	require.Len(t, events, 6)
	assert.Equal(t, annotations.CostEstimated, events[0].Name)
	assert.Equal(t, annotations.CostEstimated, events[1].Name)
	assert.Equal(t, annotations.PlanChosen, events[2].Name)
	assert.Equal(t, 2, events[2].Data["candidates"])
	assert.Equal(t, true, events[3].Data["cached"])
	assert.Equal(t, len(events), len(p.Collector().Events()))
}

func TestDefaultComparator(t *testing.T) {
	a := &Scan{Table: "a"}
	b := &Scan{Table: "b"}
	assert.Equal(t, -1, DefaultComparator(a, b))
	assert.Equal(t, 1, DefaultComparator(b, a))
	assert.Equal(t, 0, DefaultComparator(a, &Scan{Table: "a", Rows: 9}))

	join := &HashJoinNode{Left: a, Right: b, Spec: spec(t, []int{0}, []int{0}, relational.InnerJoin)}
	assert.Equal(t, "HashJoin(INNER[0=0],Scan(a),Scan(b))", join.Digest())
	assert.Len(t, join.Children(), 2)
	assert.Equal(t, "(a⋈b)⋈a", (&HashJoinNode{Left: join, Right: a}).String())
}
