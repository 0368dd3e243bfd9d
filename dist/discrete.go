package dist

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/autoppl/autoppl-go/ad"
	"github.com/autoppl/autoppl-go/arena"
	"github.com/autoppl/autoppl-go/errs"
	"github.com/autoppl/autoppl-go/variable"
)

// Discrete is the distribution expression over {0, ..., K-1} with
// unnormalized category weights: p(k) = weights[k] / sum(weights).
type Discrete struct {
	weights variable.Expr
}

// NewDiscrete builds Discrete(weights). weights must have at least one
// element; that is the only check. Weight positivity is not validated,
// here or at evaluation time (weights may be computed expressions): a
// zero or negative weight yields a -Inf or NaN log-density.
func NewDiscrete(weights variable.Expr) (*Discrete, error) {
	if weights.Size() < 1 {
		return nil, errs.New(errs.InvalidDistribution, "Discrete: weights must be non-empty")
	}
	return &Discrete{weights: weights}, nil
}

// IsDiscrete implements Expr.
func (d *Discrete) IsDiscrete() bool { return true }

// Operands implements dist.Operands.
func (d *Discrete) Operands() []variable.Expr { return []variable.Expr{d.weights} }

// ParamSize implements Sized. Discrete's weights vector parameterizes a
// single categorical draw (the weights are the distribution's shape, not
// a per-element broadcast), so its implied variate size is always 1.
func (d *Discrete) ParamSize() int { return 1 }

// NumCategories returns K, the number of category weights.
func (d *Discrete) NumCategories() int { return d.weights.Size() }

// Cardinality implements Cardinal.
func (d *Discrete) Cardinality() int { return d.weights.Size() }

func (d *Discrete) sumWeights(a *arena.Arena) float64 {
	var sum float64
	for k := 0; k < d.weights.Size(); k++ {
		sum += d.weights.ValueAt(a, k)
	}
	return sum
}

// LogPDF implements Expr.
func (d *Discrete) LogPDF(a *arena.Arena, x variable.Expr, i int) float64 {
	v := x.ValueAt(a, i)
	k := int(math.Round(v))
	if k < 0 || k >= d.weights.Size() || float64(k) != v {
		return math.Inf(-1)
	}
	return math.Log(d.weights.ValueAt(a, k)) - math.Log(d.sumWeights(a))
}

// PDF implements Expr.
func (d *Discrete) PDF(a *arena.Arena, x variable.Expr, i int) float64 {
	v := x.ValueAt(a, i)
	k := int(math.Round(v))
	if k < 0 || k >= d.weights.Size() || float64(k) != v {
		return 0
	}
	return d.weights.ValueAt(a, k) / d.sumWeights(a)
}

// Sample implements Expr.
func (d *Discrete) Sample(rng *rand.Rand, a *arena.Arena) float64 {
	sum := d.sumWeights(a)
	u := rng.Float64() * sum
	cumulative := 0.0
	for k := 0; k < d.weights.Size(); k++ {
		cumulative += d.weights.ValueAt(a, k)
		if u < cumulative {
			return float64(k)
		}
	}
	return float64(d.weights.Size() - 1)
}

// ADLogPDF implements Expr. x's concrete category index must be known at
// tape-build time (a discrete outcome can't be addressed by a
// differentiable index); the weights themselves remain fully
// differentiable, so a weights vector computed from continuous
// parameters (e.g. a softmax) still yields a correct gradient.
func (d *Discrete) ADLogPDF(t *ad.Tape, a *arena.Arena, x variable.Expr, i int) ad.Node {
	v := x.ValueAt(a, i)
	k := int(math.Round(v))

	weightNodes := make([]ad.Node, d.weights.Size())
	for j := range weightNodes {
		weightNodes[j] = d.weights.ADNode(t, j)
	}
	sumNode := t.Sum(weightNodes)
	return t.Sub(t.Log(weightNodes[k]), t.Log(sumNode))
}
