// Package ppl is the module's public facade: the small surface a model
// author actually writes against, wrapping variable/dist/model/mcmc/mh/
// mcmc/nuts behind the builder API from spec.md §7 (Param/Data/Bind/Seq)
// plus the two sampler entry points (MH/NUTS) and the re-exported typed
// error hierarchy.
package ppl

import (
	"github.com/autoppl/autoppl-go/config"
	"github.com/autoppl/autoppl-go/dist"
	"github.com/autoppl/autoppl-go/errs"
	"github.com/autoppl/autoppl-go/mcmc"
	"github.com/autoppl/autoppl-go/mcmc/mh"
	"github.com/autoppl/autoppl-go/mcmc/nuts"
	"github.com/autoppl/autoppl-go/model"
	"github.com/autoppl/autoppl-go/variable"
)

// Shape is a parameter's arity: Scalar, or Vector(n) for a fixed-length
// vector parameter (spec.md §3: "a shape (scalar or fixed-length
// vector)").
type Shape int

// Scalar is the shape of a single unknown.
const Scalar Shape = 1

// Vector returns the shape of a fixed-length vector of n unknowns.
func Vector(n int) Shape { return Shape(n) }

// Param declares an unknown parameter of the given shape. If initial is
// supplied, its length must equal the shape's size; it is registered as
// the parameter's write-through storage buffer (spec.md §3), so that
// after a sampler run it holds the last accepted sample.
func Param(shape Shape, initial ...float64) *variable.Param {
	p := variable.NewVectorParam(int(shape))
	if len(initial) > 0 {
		p.SetStorage(initial)
	}
	return p
}

// Data wraps an observed values buffer as a Data variate.
func Data(values []float64) *variable.Data {
	return variable.NewData(values)
}

// Bind asserts v ~ d, returning the EqNode added to a model tree via Seq.
// It panics on a dimension mismatch between v and d, since a builder-API
// call site is definition-time code, not a place a caller is expected to
// handle a recoverable error — spec.md's EqNode construction is how a
// model author finds out their model is malformed.
func Bind(v variable.Variate, d dist.Expr) *model.EqNode {
	n, err := model.NewEqNode(v, d)
	if err != nil {
		panic(err)
	}
	return n
}

// Seq composes nodes into a model tree and compiles it (spec.md §7:
// Seq's builder-API surface folds in Compile so a model author never
// calls the model package directly). It panics on a compile-time model
// definition error (e.g. a double-bound parameter), for the same reason
// Bind does.
func Seq(nodes ...model.Node) *model.Model {
	m, err := model.Compile(model.Seq(nodes...))
	if err != nil {
		panic(err)
	}
	return m
}

// MH draws samples from m's posterior using Metropolis-Hastings
// (spec.md §4.4).
func MH(m *model.Model, cfg config.MHConfig) (*mcmc.Result, error) {
	return mh.Run(m, cfg)
}

// NUTS draws samples from m's posterior using the No-U-Turn Sampler
// (spec.md §4.5).
func NUTS(m *model.Model, cfg config.NUTSConfig) (*mcmc.Result, error) {
	return nuts.Run(m, cfg)
}

// ErrKind re-exports errs.Kind under the facade's own name (spec.md §8).
type ErrKind = errs.Kind

// Error re-exports errs.Error under the facade's own name.
type Error = errs.Error

// The four fatal, definition-time error kinds a caller may match on via
// errors.As(err, *ppl.Error) and a switch on Kind.
const (
	ErrInvalidDistribution  = errs.InvalidDistribution
	ErrModelDefinition      = errs.ModelDefinition
	ErrInitializationFailed = errs.InitializationFailed
	ErrDimensionMismatch    = errs.DimensionMismatch
)
