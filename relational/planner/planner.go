package planner

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/wbrown/janus-relational/relational"
	"github.com/wbrown/janus-relational/relational/annotations"
	"github.com/wbrown/janus-relational/relational/cost"
)

// PlannerOptions configures the join planner
type PlannerOptions struct {
	Model              cost.Model           // Cost model (zero value = cost.DefaultModel())
	Comparator         StructuralComparator // Tie-breaking order between plans (nil = DefaultComparator)
	Cache              *EstimateCache       // Shared estimate cache (optional)
	Handler            annotations.Handler  // Receives cost/estimated and plan/chosen events (optional)
	EnableDebugLogging bool                 // Print planning decisions to stdout
}

// Planner chooses the cheapest physical hash join for a pair of inputs
type Planner struct {
	options   PlannerOptions
	collector *annotations.Collector
}

// NewPlanner creates a planner
func NewPlanner(opts PlannerOptions) *Planner {
	if opts.Comparator == nil {
		opts.Comparator = DefaultComparator
	}
	return &Planner{
		options:   opts,
		collector: annotations.NewCollector(opts.Handler),
	}
}

// EnumerateHashJoins returns the hash joins that compute spec over left and
// right: left as build side, and when the kind allows it the mirrored join
// building from right.
func EnumerateHashJoins(left, right Node, spec relational.JoinSpec, outputRows float64) []*HashJoinNode {
	joins := []*HashJoinNode{{
		Left:  left,
		Right: right,
		Spec:  spec,
		Stats: cost.Statistics{
			OutputRows: outputRows,
			LeftRows:   left.RowCount(),
			RightRows:  right.RowCount(),
		},
	}}
	if spec.Kind.IsCommutable() {
		joins = append(joins, &HashJoinNode{
			Left:  right,
			Right: left,
			Spec:  spec.Swap(),
			Stats: cost.Statistics{
				OutputRows: outputRows,
				LeftRows:   right.RowCount(),
				RightRows:  left.RowCount(),
			},
		})
	}
	return joins
}

// Estimate costs a single hash join, consulting the cache when configured.
func (p *Planner) Estimate(node *HashJoinNode) cost.Cost {
	start := time.Now()
	greater := p.options.Comparator(node.Left, node.Right) > 0

	c, ok := p.options.Cache.Get(node, greater, p.options.Model)
	if !ok {
		c = p.options.Model.Estimate(node.Spec, node.Stats, greater)
		p.options.Cache.Set(node, greater, p.options.Model, c)
	}

	if p.collector.Enabled() {
		p.collector.AddTiming(annotations.CostEstimated, start, map[string]interface{}{
			"plan":   node.String(),
			"cost":   c.String(),
			"cached": ok,
		})
	}
	return c
}

// Choose returns the cheapest candidate. Candidates of exactly equal cost
// are ordered by the structural comparator, so the result does not depend
// on the order of cands.
func (p *Planner) Choose(cands []Candidate) (Candidate, error) {
	if len(cands) == 0 {
		return Candidate{}, errors.New("no join candidates to choose from")
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if p.better(c, best) {
			best = c
		}
	}
	return best, nil
}

func (p *Planner) better(a, b Candidate) bool {
	if a.Cost.Less(b.Cost) {
		return true
	}
	if !a.Cost.Equal(b.Cost) {
		return false
	}
	return p.options.Comparator(a.Node, b.Node) < 0
}

// PlanJoin enumerates, costs and chooses a hash join for left ⋈ right.
func (p *Planner) PlanJoin(left, right Node, spec relational.JoinSpec, outputRows float64) (*JoinPlan, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	joins := EnumerateHashJoins(left, right, spec, outputRows)
	cands := make([]Candidate, len(joins))
	for i, j := range joins {
		cands[i] = Candidate{Node: j, Cost: p.Estimate(j)}
		if p.options.EnableDebugLogging {
			fmt.Printf("[PlanJoin] candidate %s %s cost=%s\n", j, j.Spec, cands[i].Cost)
		}
	}

	chosen, err := p.Choose(cands)
	if err != nil {
		return nil, err
	}
	plan := &JoinPlan{
		Chosen:     chosen,
		Candidates: cands,
		Swapped:    chosen.Node.Left != left,
	}

	if p.options.EnableDebugLogging {
		fmt.Printf("[PlanJoin] chose %s (swapped=%v)\n", chosen.Node, plan.Swapped)
	}
	if p.collector.Enabled() {
		p.collector.AddTiming(annotations.PlanChosen, start, map[string]interface{}{
			"plan":       chosen.Node.String(),
			"cost":       chosen.Cost.String(),
			"candidates": len(cands),
		})
	}
	return plan, nil
}

// Collector returns the planner's annotation collector
func (p *Planner) Collector() *annotations.Collector {
	return p.collector
}
