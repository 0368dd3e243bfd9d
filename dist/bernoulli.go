package dist

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/autoppl/autoppl-go/ad"
	"github.com/autoppl/autoppl-go/arena"
	"github.com/autoppl/autoppl-go/errs"
	"github.com/autoppl/autoppl-go/variable"
)

// Bernoulli is the distribution expression Bernoulli(p) over {0, 1}.
type Bernoulli struct {
	p variable.Expr
}

// NewBernoulli builds Bernoulli(p). If p is a compile-time constant, its
// range is checked immediately (errs.InvalidDistribution on failure).
func NewBernoulli(p variable.Expr) (*Bernoulli, error) {
	if c, ok := p.(*variable.Constant); ok {
		v := c.ValueAt(nil, 0)
		if v < 0 || v > 1 {
			return nil, errs.New(errs.InvalidDistribution, "Bernoulli: p must be in [0,1], got %v", v)
		}
	}
	return &Bernoulli{p: p}, nil
}

// IsDiscrete implements Expr.
func (b *Bernoulli) IsDiscrete() bool { return true }

// Operands implements dist.Operands.
func (b *Bernoulli) Operands() []variable.Expr { return []variable.Expr{b.p} }

// ParamSize implements Sized.
func (b *Bernoulli) ParamSize() int { return b.p.Size() }

// Cardinality implements Cardinal: Bernoulli's support is {0,1}.
func (b *Bernoulli) Cardinality() int { return 2 }

func (b *Bernoulli) param(a *arena.Arena, i int) float64 {
	return b.p.ValueAt(a, broadcastIdx(b.p, i))
}

// LogPDF implements Expr.
func (b *Bernoulli) LogPDF(a *arena.Arena, x variable.Expr, i int) float64 {
	p := b.param(a, i)
	v := x.ValueAt(a, i)
	if v != 0 && v != 1 {
		return math.Inf(-1)
	}
	return v*math.Log(p) + (1-v)*math.Log(1-p)
}

// PDF implements Expr.
func (b *Bernoulli) PDF(a *arena.Arena, x variable.Expr, i int) float64 {
	v := x.ValueAt(a, i)
	if v != 0 && v != 1 {
		return 0
	}
	return math.Exp(b.LogPDF(a, x, i))
}

// Sample implements Expr.
func (b *Bernoulli) Sample(rng *rand.Rand, a *arena.Arena) float64 {
	p := b.param(a, 0)
	if rng.Float64() < p {
		return 1
	}
	return 0
}

// ADLogPDF implements Expr. x is typically a Data leaf (an observed
// binary outcome), so the only differentiable path runs through p.
func (b *Bernoulli) ADLogPDF(t *ad.Tape, a *arena.Arena, x variable.Expr, i int) ad.Node {
	pNode := b.p.ADNode(t, broadcastIdx(b.p, i))
	xNode := x.ADNode(t, i)
	term1 := t.Mul(xNode, t.Log(pNode))
	oneMinusX := t.Sub(t.Const(1), xNode)
	oneMinusP := t.Sub(t.Const(1), pNode)
	term2 := t.Mul(oneMinusX, t.Log(oneMinusP))
	return t.Add(term1, term2)
}
