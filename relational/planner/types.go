package planner

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-relational/relational"
	"github.com/wbrown/janus-relational/relational/cost"
)

// Node is a physical plan node the planner can compare and cost.
type Node interface {
	// Digest is a deterministic description of the subtree
	Digest() string
	// RowCount is the estimated number of rows the node produces
	RowCount() float64
	// Children returns the node's inputs, left to right
	Children() []Node
}

// Scan is a leaf reading a stored table
type Scan struct {
	Table string
	Rows  float64
}

func (s *Scan) Digest() string {
	return fmt.Sprintf("Scan(%s)", s.Table)
}

func (s *Scan) RowCount() float64 {
	return s.Rows
}

func (s *Scan) Children() []Node {
	return nil
}

// HashJoinNode joins Left (build) with Right (probe)
type HashJoinNode struct {
	Left  Node
	Right Node
	Spec  relational.JoinSpec
	Stats cost.Statistics
}

func (j *HashJoinNode) Digest() string {
	return fmt.Sprintf("HashJoin(%s,%s,%s)", j.Spec, j.Left.Digest(), j.Right.Digest())
}

func (j *HashJoinNode) RowCount() float64 {
	return j.Stats.OutputRows
}

func (j *HashJoinNode) Children() []Node {
	return []Node{j.Left, j.Right}
}

// String renders the join as "left⋈right" using the children's names
func (j *HashJoinNode) String() string {
	return fmt.Sprintf("%s⋈%s", nodeName(j.Left), nodeName(j.Right))
}

func nodeName(n Node) string {
	switch v := n.(type) {
	case *Scan:
		return v.Table
	case *HashJoinNode:
		return "(" + v.String() + ")"
	default:
		return n.Digest()
	}
}

// StructuralComparator is a total order over plan nodes. It only decides
// which of two otherwise equal plans is preferred.
type StructuralComparator func(a, b Node) int

// DefaultComparator orders nodes by digest, then by number of children.
func DefaultComparator(a, b Node) int {
	if c := strings.Compare(a.Digest(), b.Digest()); c != 0 {
		return c
	}
	la, lb := len(a.Children()), len(b.Children())
	switch {
	case la < lb:
		return -1
	case la > lb:
		return 1
	}
	return 0
}

// Candidate is a costed hash join
type Candidate struct {
	Node *HashJoinNode
	Cost cost.Cost
}

// JoinPlan is the outcome of planning a single join
type JoinPlan struct {
	Chosen     Candidate
	Candidates []Candidate

	// Swapped is true when the chosen plan builds from the original right input
	Swapped bool
}
