// Package cost estimates the cost of physical join operators so a planner
// can rank competing strategies deterministically.
package cost

import (
	"fmt"
	"math"
)

// Cost is the comparable value produced by the cost model.
//
// Rows is the sole ordering scalar: CPU and IO proxies are folded into it by
// the model. The CPU and IO fields exist so a CostFactory can carry them for
// reporting, but they never affect ordering.
type Cost struct {
	Rows float64
	CPU  float64
	IO   float64
}

// CostFactory builds a Cost from its components. Planners that account
// costs differently pass their own factory into the Model.
type CostFactory func(rows, cpu, io float64) Cost

// DefaultFactory returns the components unchanged.
func DefaultFactory(rows, cpu, io float64) Cost {
	return Cost{Rows: rows, CPU: cpu, IO: io}
}

// Infinite is the cost of a plan shape that must never be chosen while a
// finite alternative exists.
var Infinite = Cost{Rows: math.Inf(1)}

// Less reports whether c is strictly cheaper than other.
func (c Cost) Less(other Cost) bool {
	return c.Rows < other.Rows
}

// Equal reports whether c and other are exactly tied. Two infinite costs
// are tied.
func (c Cost) Equal(other Cost) bool {
	return c.Rows == other.Rows
}

// IsInfinite reports whether the cost is unbounded.
func (c Cost) IsInfinite() bool {
	return math.IsInf(c.Rows, 1)
}

// Plus adds two costs component-wise.
func (c Cost) Plus(other Cost) Cost {
	return Cost{Rows: c.Rows + other.Rows, CPU: c.CPU + other.CPU, IO: c.IO + other.IO}
}

// MultiplyBy scales every component by factor.
func (c Cost) MultiplyBy(factor float64) Cost {
	return Cost{Rows: c.Rows * factor, CPU: c.CPU * factor, IO: c.IO * factor}
}

func (c Cost) String() string {
	if c.IsInfinite() {
		return "{inf}"
	}
	return fmt.Sprintf("{%.6g rows, %.6g cpu, %.6g io}", c.Rows, c.CPU, c.IO)
}
