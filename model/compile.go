package model

import (
	"golang.org/x/exp/rand"

	"github.com/autoppl/autoppl-go/ad"
	"github.com/autoppl/autoppl-go/arena"
	"github.com/autoppl/autoppl-go/dist"
	"github.com/autoppl/autoppl-go/errs"
	"github.com/autoppl/autoppl-go/variable"
)

// Model is a compiled model tree: a root Node plus the arena layout and
// parameter bookkeeping produced by Compile. A Model is reusable across
// sampler invocations; Compile only needs to run once per model tree.
type Model struct {
	root Node

	contParams []*variable.Param // continuous, in left-to-right bind order
	discParams []*variable.Param // discrete, in left-to-right bind order

	nUnconstrained int
	nTransformed   int
	nDiscrete      int

	priors map[*variable.Param]dist.Expr // each param's binding EqNode's distribution, for init sampling

	tape     *ad.Tape
	tapeRoot ad.Node
	tapeBuilt bool
}

// Compile assigns arena offsets and transform tags to every parameter in
// root, in left-to-right definition order, and validates the binding
// invariants from spec.md §3: each parameter bound by exactly one
// EqNode.
func Compile(root Node) (*Model, error) {
	seen := make(map[*variable.Param]bool)
	var allParams []*variable.Param
	if err := root.collectParams(seen, &allParams); err != nil {
		return nil, err
	}

	if err := validateParamRefs(root, make(map[*variable.Param]bool)); err != nil {
		return nil, err
	}

	priors := collectPriors(root)

	m := &Model{root: root, priors: priors}

	ucOffset := 0
	transformedOffset := 0
	discOffset := 0

	for _, p := range allParams {
		if priors[p].IsDiscrete() {
			pack := arena.OffsetPack{
				Unconstrained: discOffset,
				Constrained:   discOffset,
				Visit:         -1,
				Transformed:   -1,
				Transform:     arena.TransformIdentity,
			}
			p.SetCompiled(pack, true, [2]float64{})
			discOffset += p.Size()
			m.discParams = append(m.discParams, p)
			continue
		}

		transform := arena.TransformIdentity
		var bounds [2]float64
		if b, ok := priors[p].(dist.Bounded); ok {
			if lo, hi, ok := b.StaticBounds(); ok {
				transform = arena.TransformLogit
				bounds = [2]float64{lo, hi}
			}
		}

		pack := arena.OffsetPack{
			Unconstrained: ucOffset,
			Constrained:   ucOffset,
			Visit:         ucOffset,
			Transformed:   -1,
			Transform:     transform,
		}
		if transform != arena.TransformIdentity {
			pack.Transformed = transformedOffset
			transformedOffset += p.Size()
		}
		p.SetCompiled(pack, false, bounds)
		ucOffset += p.Size()
		m.contParams = append(m.contParams, p)
	}

	m.nUnconstrained = ucOffset
	m.nTransformed = transformedOffset
	m.nDiscrete = discOffset
	return m, nil
}

// validateParamRefs walks root in left-to-right definition order, the
// same order collectParams assigns offsets in, tracking which Params have
// been bound by an EqNode so far. At each EqNode it checks every Param
// embedded in the distribution's own parameter expressions (e.g. Normal's
// mean, if that mean is itself a Param, or a sub-expression like w*x+b)
// against that set: a Param referenced before its own EqNode binds it, or
// never bound by any EqNode at all, is a model definition error (spec.md
// §3 invariant (b); §7 "parameter has no prior").
func validateParamRefs(n Node, seen map[*variable.Param]bool) error {
	switch v := n.(type) {
	case *EqNode:
		var refs []*variable.Param
		if ops, ok := v.d.(dist.Operands); ok {
			for _, op := range ops.Operands() {
				variable.ParamRefs(op, &refs)
			}
		}
		for _, p := range refs {
			if !seen[p] {
				return errs.New(errs.ModelDefinition, "parameter %s is used as a distribution parameter before it has its own EqNode binding", p.ID())
			}
		}
		if p, ok := v.v.(*variable.Param); ok {
			seen[p] = true
		}
		return nil
	case *GlueNode:
		if err := validateParamRefs(v.lhs, seen); err != nil {
			return err
		}
		return validateParamRefs(v.rhs, seen)
	default:
		return nil
	}
}

// collectPriors walks the tree a second time to build a param -> dist
// lookup; a second pass keeps buildTape/logJoint's recursive Node
// interface free of a map argument it would otherwise always thread
// through.
func collectPriors(root Node) map[*variable.Param]dist.Expr {
	out := make(map[*variable.Param]dist.Expr)
	var walk func(n Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *EqNode:
			if p, ok := v.v.(*variable.Param); ok {
				out[p] = v.d
			}
		case *GlueNode:
			walk(v.lhs)
			walk(v.rhs)
		}
	}
	walk(root)
	return out
}

// NewArena allocates a fresh arena sized for this compiled model.
func (m *Model) NewArena() *arena.Arena {
	return arena.NewWithDiscrete(m.nUnconstrained, m.nTransformed, m.nDiscrete)
}

// ContParams returns the continuous parameters in left-to-right bind
// order.
func (m *Model) ContParams() []*variable.Param { return m.contParams }

// DiscParams returns the discrete parameters in left-to-right bind
// order.
func (m *Model) DiscParams() []*variable.Param { return m.discParams }

// NUnconstrained returns the total unconstrained-scale arena width.
func (m *Model) NUnconstrained() int { return m.nUnconstrained }

// PriorOf returns the distribution p was bound to at its defining
// EqNode, used by samplers that need to re-sample or reason about a
// parameter's own prior (initialization retry, discrete flip proposals).
func (m *Model) PriorOf(p *variable.Param) dist.Expr { return m.priors[p] }

// LogJoint evaluates the model's log density directly (no AD), summing
// each EqNode's log_pdf plus any Jacobian correction in force.
func (m *Model) LogJoint(a *arena.Arena) float64 {
	return m.root.logJoint(a)
}

// GradLogJoint evaluates the log density and its gradient with respect
// to every unconstrained continuous parameter, writing adjoints into a
// and returning the log-density value. The AD tape is built once, on
// the first call, and reused afterward (spec.md §4.3).
func (m *Model) GradLogJoint(a *arena.Arena) float64 {
	if !m.tapeBuilt {
		m.tape = ad.NewTape()
		root, has := m.root.buildTape(m.tape, a, ad.Node{}, false)
		if !has {
			panic("model: GradLogJoint called on a model with no continuous bindings")
		}
		m.tapeRoot = root
		m.tapeBuilt = true
	}
	a.ZeroAdjoints()
	return m.tape.Backward(a, m.tapeRoot)
}

// RejectsDiscreteGradient reports whether this model contains any
// discrete-prior parameter — NUTS must refuse such a model outright
// (spec.md §9 Open Question: no discrete HMC).
func (m *Model) RejectsDiscreteGradient() bool {
	return len(m.discParams) > 0
}

// SampleInitialPoint draws each parameter's value from its own prior
// distribution and writes it into a, on the constrained scale. Used for
// both the first initial point and initialization retries (spec.md
// §4.4).
func (m *Model) SampleInitialPoint(rng *rand.Rand, a *arena.Arena) {
	for _, p := range m.contParams {
		d := m.priors[p]
		for i := 0; i < p.Size(); i++ {
			v := d.Sample(rng, a)
			p.SetInitialConstrained(a, i, v)
		}
	}
	for _, p := range m.discParams {
		d := m.priors[p]
		for i := 0; i < p.Size(); i++ {
			v := d.Sample(rng, a)
			p.SetInitialConstrained(a, i, v)
		}
	}
}

// InitRetries is the minimum number of initial-point redraw attempts
// before InitializationFailed is raised (spec.md §4.4: "up to a fixed
// retry count (>= 25)").
const InitRetries = 25

// ErrNoFiniteInit is returned by a sampler's init routine when no
// finite-log-density starting point was found within InitRetries draws.
func ErrNoFiniteInit() error {
	return errs.New(errs.InitializationFailed, "no finite-log-density initial point found within %d retries", InitRetries)
}
