package relational

import (
	"fmt"
	"strings"
)

// JoinKind selects the output semantics of an equi-join.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
	SemiJoin
)

var joinKindNames = [...]string{
	InnerJoin: "INNER",
	LeftJoin:  "LEFT",
	RightJoin: "RIGHT",
	FullJoin:  "FULL",
	SemiJoin:  "SEMI",
}

func (k JoinKind) String() string {
	if k < 0 || int(k) >= len(joinKindNames) {
		return fmt.Sprintf("JoinKind(%d)", int(k))
	}
	return joinKindNames[k]
}

// ParseJoinKind accepts the kind names case-insensitively, with or without
// an OUTER suffix ("left outer").
func ParseJoinKind(s string) (JoinKind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimSuffix(name, " OUTER")
	for k, n := range joinKindNames {
		if n == name {
			return JoinKind(k), nil
		}
	}
	return InnerJoin, InvalidSpecificationf("unknown join kind %q", s)
}

// Valid reports whether k is one of the declared kinds.
func (k JoinKind) Valid() bool {
	return k >= InnerJoin && k <= SemiJoin
}

// GeneratesNullsOnLeft reports whether unmatched right rows are emitted
// with a null-padded left side.
func (k JoinKind) GeneratesNullsOnLeft() bool {
	return k == RightJoin || k == FullJoin
}

// GeneratesNullsOnRight reports whether unmatched left rows are emitted
// with a null-padded right side.
func (k JoinKind) GeneratesNullsOnRight() bool {
	return k == LeftJoin || k == FullJoin
}

// IsCommutable reports whether swapping the inputs (and mirroring the kind)
// yields the same rows up to column order.
func (k JoinKind) IsCommutable() bool {
	return k != SemiJoin
}

// Mirror returns the kind to use when the inputs are swapped.
func (k JoinKind) Mirror() JoinKind {
	switch k {
	case LeftJoin:
		return RightJoin
	case RightJoin:
		return LeftJoin
	}
	return k
}

// RowComparator is a total order over key tuples.
// It returns a negative number, zero, or a positive number.
type RowComparator func(a, b Row) int

// JoinSpec describes an equi-join: LeftKeys[i] = RightKeys[i] for every i.
// A JoinSpec is an immutable value.
type JoinSpec struct {
	LeftKeys  []int
	RightKeys []int
	Kind      JoinKind

	// Comparator optionally decides key-tuple equality between rows whose
	// keys hash alike: keys are equal when it returns 0. It may be stricter
	// than ValuesEqual but never looser. Nil means field-wise ValuesEqual.
	Comparator RowComparator
}

// NewJoinSpec builds and validates a JoinSpec.
func NewJoinSpec(leftKeys, rightKeys []int, kind JoinKind) (JoinSpec, error) {
	spec := JoinSpec{
		LeftKeys:  append([]int(nil), leftKeys...),
		RightKeys: append([]int(nil), rightKeys...),
		Kind:      kind,
	}
	if err := spec.Validate(); err != nil {
		return JoinSpec{}, err
	}
	return spec, nil
}

// WithComparator returns a copy of the spec using cmp for key equality.
func (s JoinSpec) WithComparator(cmp RowComparator) JoinSpec {
	s.Comparator = cmp
	return s
}

// Validate checks leftKeys.length == rightKeys.length >= 1.
func (s JoinSpec) Validate() error {
	if len(s.LeftKeys) == 0 || len(s.RightKeys) == 0 {
		return InvalidSpecificationf("join needs at least one key pair (left=%d, right=%d)",
			len(s.LeftKeys), len(s.RightKeys))
	}
	if len(s.LeftKeys) != len(s.RightKeys) {
		return InvalidSpecificationf("key count mismatch: %d left keys, %d right keys",
			len(s.LeftKeys), len(s.RightKeys))
	}
	for i := range s.LeftKeys {
		if s.LeftKeys[i] < 0 || s.RightKeys[i] < 0 {
			return InvalidSpecificationf("negative key position in pair %d (%d = %d)",
				i, s.LeftKeys[i], s.RightKeys[i])
		}
	}
	if !s.Kind.Valid() {
		return InvalidSpecificationf("unknown join kind %d", int(s.Kind))
	}
	return nil
}

// Swap returns the spec for the same join with its inputs exchanged.
// Only meaningful when Kind.IsCommutable().
func (s JoinSpec) Swap() JoinSpec {
	return JoinSpec{
		LeftKeys:   append([]int(nil), s.RightKeys...),
		RightKeys:  append([]int(nil), s.LeftKeys...),
		Kind:       s.Kind.Mirror(),
		Comparator: s.Comparator,
	}
}

// String returns a compact form such as "LEFT[0=1 2=3]".
func (s JoinSpec) String() string {
	var sb strings.Builder
	sb.WriteString(s.Kind.String())
	sb.WriteString("[")
	for i := range s.LeftKeys {
		if i > 0 {
			sb.WriteString(" ")
		}
		right := -1
		if i < len(s.RightKeys) {
			right = s.RightKeys[i]
		}
		fmt.Fprintf(&sb, "%d=%d", s.LeftKeys[i], right)
	}
	sb.WriteString("]")
	return sb.String()
}
