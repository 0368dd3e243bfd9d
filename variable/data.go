package variable

import (
	"github.com/autoppl/autoppl-go/ad"
	"github.com/autoppl/autoppl-go/arena"
)

// Data is an observed scalar or vector variable backed by a caller-owned
// values buffer. Data never owns storage and never has a transform: it
// appears either as the LHS of an EqNode, contributing a fixed
// (non-differentiable) term to the log joint density, or inside a
// distribution's parameter expressions (e.g. the regressor x in w*x + b,
// or a Discrete weights vector).
type Data struct {
	values   []float64
	discrete bool
}

// NewData wraps an existing values buffer as an observed variable. The
// buffer is borrowed, not copied.
func NewData(values []float64) *Data {
	if len(values) == 0 {
		panic("variable: Data requires a non-empty values buffer")
	}
	return &Data{values: values}
}

// NewDiscreteData wraps an existing values buffer as observed discrete
// (category-index) data.
func NewDiscreteData(values []float64) *Data {
	d := NewData(values)
	d.discrete = true
	return d
}

// Size implements Expr.
func (d *Data) Size() int { return len(d.values) }

// IsDiscrete implements Variate.
func (d *Data) IsDiscrete() bool { return d.discrete }

// ValueAt implements Expr.
func (d *Data) ValueAt(_ *arena.Arena, i int) float64 { return d.values[i] }

// ADNode implements Expr: a Data value is a non-differentiable leaf.
func (d *Data) ADNode(t *ad.Tape, i int) ad.Node {
	return t.Data(d.values, i)
}
