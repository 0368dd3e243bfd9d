package variable

import (
	"github.com/autoppl/autoppl-go/ad"
	"github.com/autoppl/autoppl-go/arena"
)

// sumViewer is the variable-expression built by Add(x, y): an
// element-wise sum of two equally-sized sub-expressions. It delegates
// both ValueAt and ADNode to its children, which is how a distribution
// parameter like a regression mean (w*x + b) is expressed without any
// special-casing in dist.
type sumViewer struct {
	lhs, rhs Expr
}

// Add builds the viewer expression x + y. x and y must have equal Size(),
// or Size() 1 broadcast against anything (scalar + vector).
func Add(x, y Expr) Expr {
	return &sumViewer{lhs: x, rhs: y}
}

func (s *sumViewer) Size() int { return broadcastSize(s.lhs, s.rhs) }

func (s *sumViewer) ValueAt(a *arena.Arena, i int) float64 {
	return s.lhs.ValueAt(a, broadcastIndex(s.lhs, i)) + s.rhs.ValueAt(a, broadcastIndex(s.rhs, i))
}

func (s *sumViewer) ADNode(t *ad.Tape, i int) ad.Node {
	return t.Add(s.lhs.ADNode(t, broadcastIndex(s.lhs, i)), s.rhs.ADNode(t, broadcastIndex(s.rhs, i)))
}

// prodViewer is the viewer expression built by Mul(x, y).
type prodViewer struct {
	lhs, rhs Expr
}

// Mul builds the viewer expression x * y, with the same broadcasting
// rule as Add.
func Mul(x, y Expr) Expr {
	return &prodViewer{lhs: x, rhs: y}
}

func (p *prodViewer) Size() int { return broadcastSize(p.lhs, p.rhs) }

func (p *prodViewer) ValueAt(a *arena.Arena, i int) float64 {
	return p.lhs.ValueAt(a, broadcastIndex(p.lhs, i)) * p.rhs.ValueAt(a, broadcastIndex(p.rhs, i))
}

func (p *prodViewer) ADNode(t *ad.Tape, i int) ad.Node {
	return t.Mul(p.lhs.ADNode(t, broadcastIndex(p.lhs, i)), p.rhs.ADNode(t, broadcastIndex(p.rhs, i)))
}

// scaleViewer is the viewer expression built by Scale(x, c): a
// compile-time-constant scalar multiplication.
type scaleViewer struct {
	x Expr
	c float64
}

// Scale builds the viewer expression c*x for a constant c.
func Scale(x Expr, c float64) Expr {
	return &scaleViewer{x: x, c: c}
}

func (s *scaleViewer) Size() int { return s.x.Size() }

func (s *scaleViewer) ValueAt(a *arena.Arena, i int) float64 {
	return s.c * s.x.ValueAt(a, i)
}

func (s *scaleViewer) ADNode(t *ad.Tape, i int) ad.Node {
	return t.Scale(s.x.ADNode(t, i), s.c)
}

// ParamRefs appends every *Param transitively reachable from e (through
// the Add/Mul/Scale viewer nodes, or e itself) to out. Data and Constant
// leaves contribute nothing. Used by model.Compile to validate that a
// distribution's own parameter expressions (e.g. a regression mean
// w*x + b) only reference Params already bound by an earlier EqNode.
func ParamRefs(e Expr, out *[]*Param) {
	switch v := e.(type) {
	case *Param:
		*out = append(*out, v)
	case *sumViewer:
		ParamRefs(v.lhs, out)
		ParamRefs(v.rhs, out)
	case *prodViewer:
		ParamRefs(v.lhs, out)
		ParamRefs(v.rhs, out)
	case *scaleViewer:
		ParamRefs(v.x, out)
	}
}

func broadcastSize(x, y Expr) int {
	if x.Size() >= y.Size() {
		return x.Size()
	}
	return y.Size()
}

func broadcastIndex(x Expr, i int) int {
	if x.Size() == 1 {
		return 0
	}
	return i
}
