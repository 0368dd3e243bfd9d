// Package dist implements the four supported distribution expressions —
// Normal, Uniform, Bernoulli, Discrete — each exposing a sampler, a
// closed-form density/log-density, and a reverse-mode AD builder for its
// log-density.
package dist

import (
	"golang.org/x/exp/rand"

	"github.com/autoppl/autoppl-go/ad"
	"github.com/autoppl/autoppl-go/arena"
	"github.com/autoppl/autoppl-go/variable"
)

// Expr is the contract every distribution expression satisfies.
// x is the variable-expression being distributed (a Param or Data,
// broadcast element-wise against this distribution's own parameters);
// i selects which element of a vector-shaped x is being evaluated.
type Expr interface {
	// PDF returns p(x_i | params) >= 0.
	PDF(a *arena.Arena, x variable.Expr, i int) float64
	// LogPDF returns log p(x_i | params), or -Inf outside the support.
	LogPDF(a *arena.Arena, x variable.Expr, i int) float64
	// Sample draws one value from this distribution using rng and this
	// distribution's current parameter values (element 0, the common
	// case of scalar-parameterized priors).
	Sample(rng *rand.Rand, a *arena.Arena) float64
	// ADLogPDF builds the tape node computing log p(x_i | params) as a
	// function of whatever continuous parameters (this distribution's
	// own, or x itself if x is a continuous Param) feed into it.
	ADLogPDF(t *ad.Tape, a *arena.Arena, x variable.Expr, i int) ad.Node
	// IsDiscrete reports whether this distribution's support is a
	// discrete set (Bernoulli, Discrete) as opposed to continuous
	// (Normal, Uniform).
	IsDiscrete() bool
}

// Bounded is implemented by distributions (currently only Uniform) whose
// support is a bounded interval with compile-time-resolvable endpoints, used by
// model.Compile to assign the logit transform and its bounds to a
// bounded-prior parameter.
type Bounded interface {
	// StaticBounds returns (min, max) if both are resolvable without a
	// live arena (i.e. built from Constant sub-expressions), and false
	// otherwise.
	StaticBounds() (min, max float64, ok bool)
}

func broadcastIdx(e variable.Expr, i int) int {
	if e.Size() == 1 {
		return 0
	}
	return i
}

// Sized is implemented by every distribution in this package: it reports
// the broadcast size implied by its own parameter expressions (the
// largest Size() among them; Discrete, whose weights vector is its shape
// rather than a broadcast operand, always reports 1), used by
// model.NewEqNode to reject a variate/distribution pairing whose sizes
// cannot broadcast (errs.DimensionMismatch).
type Sized interface {
	ParamSize() int
}

// Cardinal is implemented by the two discrete distributions, reporting
// the number of categories a parameter drawn from them ranges over
// (used by mh's discrete flip proposal).
type Cardinal interface {
	Cardinality() int
}

// Operands is implemented by every distribution in this package,
// returning the variable-expressions that parameterize it (e.g. Normal's
// mean and stddev). model.Compile walks these to find any embedded
// *variable.Param and check it was already bound by an earlier EqNode.
type Operands interface {
	Operands() []variable.Expr
}

func maxSize(sizes ...int) int {
	m := 1
	for _, s := range sizes {
		if s > m {
			m = s
		}
	}
	return m
}
