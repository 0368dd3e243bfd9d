// Package model implements the model expression tree — EqNode and
// GlueNode — and the compile pass that turns a tree of bindings into
// arena offsets, transform tags, and a cached AD tape.
package model

import (
	"math"

	"github.com/autoppl/autoppl-go/ad"
	"github.com/autoppl/autoppl-go/arena"
	"github.com/autoppl/autoppl-go/dist"
	"github.com/autoppl/autoppl-go/errs"
	"github.com/autoppl/autoppl-go/variable"
)

var negInf = math.Inf(-1)

// Node is any node of the model tree: an EqNode leaf or a GlueNode
// interior node. Node's only contract is the traversal the compiler and
// log_joint evaluator need.
type Node interface {
	// logJoint adds this node's contribution to the running log density.
	// a is the live arena; a -Inf contribution short-circuits the caller.
	logJoint(a *arena.Arena) float64
	// collectParams appends every Param this node's EqNode(s) bind on
	// their LHS, in left-to-right order, with duplicates rejected by the
	// caller via the seen-set it threads through.
	collectParams(seen map[*variable.Param]bool, out *[]*variable.Param) error
	// buildTape appends this node's ad_log_pdf contribution (plus any
	// Jacobian correction) onto the shared tape, returning the running
	// sum node (or the tape's first term if acc is the zero Node).
	buildTape(t *ad.Tape, a *arena.Arena, acc ad.Node, hasAcc bool) (ad.Node, bool)
}

// EqNode asserts var ~ dist: var is distributed according to dist.
type EqNode struct {
	v variable.Variate
	d dist.Expr
}

// NewEqNode builds an EqNode asserting var ~ dist. If dist reports its
// own implied parameter size (dist.Sized) and it neither broadcasts
// (size 1) nor matches var's size, construction fails with
// errs.DimensionMismatch.
func NewEqNode(v variable.Variate, d dist.Expr) (*EqNode, error) {
	if s, ok := d.(dist.Sized); ok {
		ps := s.ParamSize()
		if ps != 1 && ps != v.Size() {
			return nil, errs.New(errs.DimensionMismatch, "variate of size %d is incompatible with distribution parameter size %d", v.Size(), ps)
		}
	}
	return &EqNode{v: v, d: d}, nil
}

func (n *EqNode) logJoint(a *arena.Arena) float64 {
	var sum float64
	for i := 0; i < n.v.Size(); i++ {
		lp := n.d.LogPDF(a, n.v, i)
		if lp == negInf {
			return negInf
		}
		sum += lp
	}
	if p, ok := n.v.(*variable.Param); ok && p.OffsetPack().Transform != arena.TransformIdentity {
		jac := p.JacobianLogPDFAt(a)
		for i := 0; i < p.Size(); i++ {
			sum += jac(i)
		}
	}
	return sum
}

func (n *EqNode) collectParams(seen map[*variable.Param]bool, out *[]*variable.Param) error {
	p, ok := n.v.(*variable.Param)
	if !ok {
		return nil
	}
	if seen[p] {
		return errs.New(errs.ModelDefinition, "parameter %s is bound by more than one EqNode", p.ID())
	}
	seen[p] = true
	*out = append(*out, p)
	return nil
}

func (n *EqNode) buildTape(t *ad.Tape, a *arena.Arena, acc ad.Node, hasAcc bool) (ad.Node, bool) {
	for i := 0; i < n.v.Size(); i++ {
		term := n.d.ADLogPDF(t, a, n.v, i)
		acc, hasAcc = addTerm(t, acc, hasAcc, term)
	}
	if p, ok := n.v.(*variable.Param); ok && p.OffsetPack().Transform != arena.TransformIdentity {
		for i := 0; i < p.Size(); i++ {
			jac := p.JacobianADNode(t, i)
			acc, hasAcc = addTerm(t, acc, hasAcc, jac)
		}
	}
	return acc, hasAcc
}

// GlueNode sequentially composes two sub-models: its log density is the
// sum of both children's, and its parameter list is the concatenation
// in left-to-right (definition) order.
type GlueNode struct {
	lhs, rhs Node
}

// NewGlueNode builds GlueNode(lhs, rhs).
func NewGlueNode(lhs, rhs Node) *GlueNode {
	return &GlueNode{lhs: lhs, rhs: rhs}
}

func (n *GlueNode) logJoint(a *arena.Arena) float64 {
	l := n.lhs.logJoint(a)
	if l == negInf {
		return negInf
	}
	r := n.rhs.logJoint(a)
	if r == negInf {
		return negInf
	}
	return l + r
}

func (n *GlueNode) collectParams(seen map[*variable.Param]bool, out *[]*variable.Param) error {
	if err := n.lhs.collectParams(seen, out); err != nil {
		return err
	}
	return n.rhs.collectParams(seen, out)
}

func (n *GlueNode) buildTape(t *ad.Tape, a *arena.Arena, acc ad.Node, hasAcc bool) (ad.Node, bool) {
	acc, hasAcc = n.lhs.buildTape(t, a, acc, hasAcc)
	return n.rhs.buildTape(t, a, acc, hasAcc)
}

func addTerm(t *ad.Tape, acc ad.Node, hasAcc bool, term ad.Node) (ad.Node, bool) {
	if !hasAcc {
		return term, true
	}
	return t.Add(acc, term), true
}

// Seq composes nodes into a single left-to-right GlueNode chain, the
// builder-API equivalent of the original's sequential-composition
// operator. Seq panics if given zero nodes — a model with no bindings
// is a caller error, not a runtime one.
func Seq(nodes ...Node) Node {
	if len(nodes) == 0 {
		panic("model: Seq requires at least one node")
	}
	acc := nodes[0]
	for _, n := range nodes[1:] {
		acc = NewGlueNode(acc, n)
	}
	return acc
}
