// Package variable implements the variable-expression layer: parameter,
// data, and constant nodes, plus the arithmetic viewer expressions used to
// compose them (e.g. a regression mean w*x + b).
package variable

import (
	"github.com/autoppl/autoppl-go/ad"
	"github.com/autoppl/autoppl-go/arena"
)

// Expr is the contract every variable-expression satisfies: a fixed size,
// a way to read its current numeric value element-wise, and a way to
// build the reverse-mode tape node that computes the same value.
type Expr interface {
	// Size returns the number of scalar elements (1 for a scalar
	// expression).
	Size() int
	// ValueAt returns the i'th element's current value, read directly
	// from the arena/data/constant backing this expression.
	ValueAt(a *arena.Arena, i int) float64
	// ADNode builds the i'th element's tape node.
	ADNode(t *ad.Tape, i int) ad.Node
}

// Variate is the richer contract satisfied by expressions that may stand
// on the left-hand side of an EqNode ("X ~ D"): a Param (unknown, solved
// for by sampling) or a Data node (observed, fixed), the only two kinds
// that can be "the variable being distributed". Of the two, only Param
// carries an identity and a transform tag.
type Variate interface {
	Expr
	// IsDiscrete reports whether this variate's support is the discrete
	// set {0,...,K-1} (Bernoulli/Discrete priors) as opposed to
	// continuous (Normal/Uniform priors).
	IsDiscrete() bool
}
