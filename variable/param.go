package variable

import (
	"math"

	"github.com/google/uuid"

	"github.com/autoppl/autoppl-go/ad"
	"github.com/autoppl/autoppl-go/arena"
)

// Param is an unknown scalar or vector-valued variable solved for by
// sampling. Its identity is a UUID assigned once at construction time and
// stable for the lifetime of the Go value; its OffsetPack is assigned (and
// may be reassigned) by every call to model.Compile.
type Param struct {
	id      uuid.UUID
	size    int
	pack    arena.OffsetPack
	bounds  [2]float64 // (min, max), meaningful only for arena.TransformLogit
	discrete bool
	storage []float64 // optional write-through destination for accepted samples
}

// NewParam creates a scalar Param (size 1).
func NewParam() *Param {
	return NewVectorParam(1)
}

// NewVectorParam creates a fixed-length vector Param.
func NewVectorParam(n int) *Param {
	if n <= 0 {
		panic("variable: Param size must be positive")
	}
	return &Param{id: uuid.New(), size: n, pack: arena.NoOffsetPack}
}

// ID returns this parameter's stable identity.
func (p *Param) ID() uuid.UUID { return p.id }

// Size implements Expr.
func (p *Param) Size() int { return p.size }

// IsDiscrete implements Variate.
func (p *Param) IsDiscrete() bool { return p.discrete }

// OffsetPack returns the pack assigned by the most recent Compile.
func (p *Param) OffsetPack() arena.OffsetPack { return p.pack }

// Bounds returns the (min, max) recorded for a TransformLogit parameter.
// Only meaningful when OffsetPack().Transform == arena.TransformLogit.
func (p *Param) Bounds() (float64, float64) { return p.bounds[0], p.bounds[1] }

// SetCompiled is called by model.Compile to assign this parameter's
// arena address, transform, and discreteness.
func (p *Param) SetCompiled(pack arena.OffsetPack, discrete bool, bounds [2]float64) {
	p.pack = pack
	p.discrete = discrete
	p.bounds = bounds
}

// SetStorage registers a caller-owned buffer that accepted samples are
// written into, in addition to the arena. The buffer is borrowed, not
// copied or owned.
func (p *Param) SetStorage(buf []float64) {
	if len(buf) != p.size {
		panic("variable: storage size must match parameter size")
	}
	p.storage = buf
}

// WriteThrough copies value into the borrowed storage buffer at index i,
// if one was registered. It is a no-op otherwise.
func (p *Param) WriteThrough(i int, value float64) {
	if p.storage != nil {
		p.storage[i] = value
	}
}

// SetInitialConstrained seeds the arena so that the *constrained* value
// at element i equals x: the unconstrained slot is set to the inverse
// transform of x, and (for non-identity transforms) the transformed-scale
// cache is refreshed to x directly.
func (p *Param) SetInitialConstrained(a *arena.Arena, i int, x float64) {
	if p.discrete {
		a.SetDiscreteValue(p.pack.Unconstrained+i, x)
		return
	}
	u := p.toUnconstrained(x)
	a.SetValue(p.pack.Unconstrained+i, u)
	if p.pack.Transform != arena.TransformIdentity {
		a.SetTransformedValue(p.pack.Transformed+i, x)
	}
}

// RefreshTransformed recomputes the constrained-scale cache for element i
// from the current unconstrained arena value. A no-op for
// TransformIdentity parameters, which read straight off the unconstrained
// slice.
func (p *Param) RefreshTransformed(a *arena.Arena, i int) {
	if p.pack.Transform == arena.TransformIdentity {
		return
	}
	u := a.Value(p.pack.Unconstrained + i)
	a.SetTransformedValue(p.pack.Transformed+i, p.toConstrained(u))
}

// ValueAt implements Expr: it returns the current CONSTRAINED value,
// i.e. the value a distribution over this parameter should see.
func (p *Param) ValueAt(a *arena.Arena, i int) float64 {
	if p.discrete {
		return a.DiscreteValue(p.pack.Unconstrained + i)
	}
	if p.pack.Transform == arena.TransformIdentity {
		return a.Value(p.pack.Unconstrained + i)
	}
	return a.TransformedValue(p.pack.Transformed + i)
}

// ADNode implements Expr: it builds the constrained-scale expression as a
// function of the unconstrained tape leaf, so gradients flow correctly
// back through the transform's Jacobian.
func (p *Param) ADNode(t *ad.Tape, i int) ad.Node {
	u := t.Param(p.pack.Unconstrained + i)
	switch p.pack.Transform {
	case arena.TransformIdentity:
		return u
	case arena.TransformLog:
		return t.Exp(u)
	case arena.TransformLogit:
		a, b := p.bounds[0], p.bounds[1]
		sig := t.Sigmoid(u)
		return t.Add(t.Const(a), t.Scale(sig, b-a))
	default:
		panic("variable: unknown transform")
	}
}

// JacobianLogPDFAt returns the log-Jacobian correction that must be added
// to the log joint density when element i is evaluated on the
// unconstrained scale, using the DIRECT (non-AD) float64 path.
func (p *Param) JacobianLogPDFAt(a *arena.Arena) func(i int) float64 {
	switch p.pack.Transform {
	case arena.TransformIdentity:
		return func(i int) float64 { return 0 }
	case arena.TransformLog:
		return func(i int) float64 { return a.Value(p.pack.Unconstrained + i) }
	case arena.TransformLogit:
		lo, hi := p.bounds[0], p.bounds[1]
		return func(i int) float64 {
			u := a.Value(p.pack.Unconstrained + i)
			return math.Log(hi-lo) + logSigmoid(u) + logSigmoid(-u)
		}
	default:
		panic("variable: unknown transform")
	}
}

// JacobianADNode builds the AD-tape expression for the same Jacobian
// correction, in terms of element i's unconstrained tape leaf.
func (p *Param) JacobianADNode(t *ad.Tape, i int) ad.Node {
	u := t.Param(p.pack.Unconstrained + i)
	switch p.pack.Transform {
	case arena.TransformIdentity:
		return t.Const(0)
	case arena.TransformLog:
		return u
	case arena.TransformLogit:
		lo, hi := p.bounds[0], p.bounds[1]
		logSig := func(x ad.Node) ad.Node { return t.Log(t.Sigmoid(x)) }
		return t.Add(t.Const(math.Log(hi-lo)), t.Add(logSig(u), logSig(t.Neg(u))))
	default:
		panic("variable: unknown transform")
	}
}

func (p *Param) toUnconstrained(x float64) float64 {
	switch p.pack.Transform {
	case arena.TransformIdentity:
		return x
	case arena.TransformLog:
		return math.Log(x)
	case arena.TransformLogit:
		lo, hi := p.bounds[0], p.bounds[1]
		return logit((x - lo) / (hi - lo))
	default:
		panic("variable: unknown transform")
	}
}

func (p *Param) toConstrained(u float64) float64 {
	switch p.pack.Transform {
	case arena.TransformIdentity:
		return u
	case arena.TransformLog:
		return math.Exp(u)
	case arena.TransformLogit:
		lo, hi := p.bounds[0], p.bounds[1]
		return lo + (hi-lo)*sigmoid(u)
	default:
		panic("variable: unknown transform")
	}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
func logit(p float64) float64   { return math.Log(p / (1 - p)) }
func logSigmoid(x float64) float64 {
	// log(sigmoid(x)) computed in a form that stays finite for large |x|.
	if x < 0 {
		return x - math.Log1p(math.Exp(x))
	}
	return -math.Log1p(math.Exp(-x))
}
