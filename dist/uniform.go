package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/autoppl/autoppl-go/ad"
	"github.com/autoppl/autoppl-go/arena"
	"github.com/autoppl/autoppl-go/errs"
	"github.com/autoppl/autoppl-go/variable"
)

// Uniform is the distribution expression Uniform(min, max), with
// exclusive boundaries: pdf(min) = pdf(max) = 0.
type Uniform struct {
	min, max variable.Expr
}

// NewUniform builds Uniform(min, max). If both bounds are compile-time
// constants, min < max is checked immediately (errs.InvalidDistribution
// on failure); an unbounded (infinite) constant bound is always rejected,
// since this module does not support improper priors.
func NewUniform(min, max variable.Expr) (*Uniform, error) {
	if lo, hi, ok := staticBounds(min, max); ok {
		if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			return nil, errs.New(errs.InvalidDistribution, "Uniform: unbounded range is not supported, got (%v, %v)", lo, hi)
		}
		if !(lo < hi) {
			return nil, errs.New(errs.InvalidDistribution, "Uniform: min must be < max, got (%v, %v)", lo, hi)
		}
	}
	return &Uniform{min: min, max: max}, nil
}

func staticBounds(min, max variable.Expr) (lo, hi float64, ok bool) {
	loC, okLo := min.(*variable.Constant)
	hiC, okHi := max.(*variable.Constant)
	if !okLo || !okHi {
		return 0, 0, false
	}
	return loC.ValueAt(nil, 0), hiC.ValueAt(nil, 0), true
}

// StaticBounds implements the Bounded interface used by model.Compile to
// assign the logit transform to a Uniform-bounded parameter.
func (u *Uniform) StaticBounds() (min, max float64, ok bool) {
	return staticBounds(u.min, u.max)
}

// IsDiscrete implements Expr.
func (u *Uniform) IsDiscrete() bool { return false }

// Operands implements dist.Operands.
func (u *Uniform) Operands() []variable.Expr { return []variable.Expr{u.min, u.max} }

// ParamSize implements Sized.
func (u *Uniform) ParamSize() int { return maxSize(u.min.Size(), u.max.Size()) }

func (u *Uniform) params(a *arena.Arena, i int) (min, max float64) {
	min = u.min.ValueAt(a, broadcastIdx(u.min, i))
	max = u.max.ValueAt(a, broadcastIdx(u.max, i))
	return
}

// LogPDF implements Expr.
func (u *Uniform) LogPDF(a *arena.Arena, x variable.Expr, i int) float64 {
	min, max := u.params(a, i)
	v := x.ValueAt(a, i)
	if !(min < v && v < max) {
		return math.Inf(-1)
	}
	return -math.Log(max - min)
}

// PDF implements Expr.
func (u *Uniform) PDF(a *arena.Arena, x variable.Expr, i int) float64 {
	min, max := u.params(a, i)
	v := x.ValueAt(a, i)
	if !(min < v && v < max) {
		return 0
	}
	return 1 / (max - min)
}

// Sample implements Expr, via distuv.Uniform (rlouf-gmc's own
// distuv.Uniform{...}.Rand() pattern).
func (u *Uniform) Sample(rng *rand.Rand, a *arena.Arena) float64 {
	min, max := u.params(a, 0)
	d := distuv.Uniform{Min: min, Max: max, Src: rng}
	return d.Rand()
}

// ADLogPDF implements Expr. x's own value never appears algebraically in
// a Uniform log-density (it is constant within the support); x is still
// threaded through so a continuous Param's Jacobian term is attached by
// the caller (model.EqNode), and so distribution parameters that
// themselves depend on x's siblings remain differentiable.
func (u *Uniform) ADLogPDF(t *ad.Tape, a *arena.Arena, x variable.Expr, i int) ad.Node {
	minNode := u.min.ADNode(t, broadcastIdx(u.min, i))
	maxNode := u.max.ADNode(t, broadcastIdx(u.max, i))
	return t.Neg(t.Log(t.Sub(maxNode, minNode)))
}
