package variable

import (
	"github.com/autoppl/autoppl-go/ad"
	"github.com/autoppl/autoppl-go/arena"
)

// Constant is a scalar literal, used for distribution parameters that
// are not themselves modeled (e.g. Normal(0, 1)'s mean and stddev).
type Constant struct {
	value float64
}

// NewConstant wraps a literal float64 as a variable-expression.
func NewConstant(v float64) *Constant {
	return &Constant{value: v}
}

// Size implements Expr; a Constant is always scalar.
func (c *Constant) Size() int { return 1 }

// ValueAt implements Expr.
func (c *Constant) ValueAt(_ *arena.Arena, _ int) float64 { return c.value }

// ADNode implements Expr.
func (c *Constant) ADNode(t *ad.Tape, _ int) ad.Node { return t.Const(c.value) }
