package variable

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoppl/autoppl-go/ad"
	"github.com/autoppl/autoppl-go/arena"
)

func TestConstantAndData(t *testing.T) {
	a := arena.New(0, 0)
	c := NewConstant(3.5)
	require.Equal(t, 1, c.Size())
	assert.Equal(t, 3.5, c.ValueAt(a, 0))

	d := NewData([]float64{1, 2, 3})
	require.Equal(t, 3, d.Size())
	assert.Equal(t, 2.0, d.ValueAt(a, 1))
	assert.False(t, d.IsDiscrete())
}

func TestParamIdentityTransform(t *testing.T) {
	a := arena.New(1, 0)
	p := NewParam()
	p.SetCompiled(arena.OffsetPack{Unconstrained: 0, Constrained: -1, Visit: -1, Transformed: -1, Transform: arena.TransformIdentity}, false, [2]float64{})

	p.SetInitialConstrained(a, 0, 2.0)
	assert.InDelta(t, 2.0, a.Value(0), 1e-12)
	assert.InDelta(t, 2.0, p.ValueAt(a, 0), 1e-12)

	tape := ad.NewTape()
	root := p.ADNode(tape, 0)
	assert.InDelta(t, 2.0, tape.Eval(a, root), 1e-12)
}

func TestParamLogTransformRoundTrip(t *testing.T) {
	a := arena.New(1, 1)
	p := NewParam()
	p.SetCompiled(arena.OffsetPack{Unconstrained: 0, Transformed: 0, Transform: arena.TransformLog}, false, [2]float64{})

	p.SetInitialConstrained(a, 0, 4.0)
	p.RefreshTransformed(a, 0)
	assert.InDelta(t, 4.0, p.ValueAt(a, 0), 1e-9)
	assert.InDelta(t, math.Log(4.0), a.Value(0), 1e-9)

	tape := ad.NewTape()
	root := p.ADNode(tape, 0)
	assert.InDelta(t, 4.0, tape.Eval(a, root), 1e-9)
}

func TestParamLogitTransformRoundTrip(t *testing.T) {
	a := arena.New(1, 1)
	p := NewParam()
	p.SetCompiled(arena.OffsetPack{Unconstrained: 0, Transformed: 0, Transform: arena.TransformLogit}, false, [2]float64{0, 2})

	p.SetInitialConstrained(a, 0, 0.7)
	p.RefreshTransformed(a, 0)
	assert.InDelta(t, 0.7, p.ValueAt(a, 0), 1e-12)

	tape := ad.NewTape()
	root := p.ADNode(tape, 0)
	assert.InDelta(t, 0.7, tape.Eval(a, root), 1e-9)

	jac := p.JacobianLogPDFAt(a)
	jtape := ad.NewTape()
	jroot := p.JacobianADNode(jtape, 0)
	assert.InDelta(t, jac(0), jtape.Eval(a, jroot), 1e-9)
}

func TestViewerArithmeticDelegatesToChildren(t *testing.T) {
	a := arena.New(0, 0)
	w := NewConstant(2.0)
	x := NewData([]float64{1, 2, 3})
	b := NewConstant(0.5)

	mean := Add(Mul(w, x), b)
	require.Equal(t, 3, mean.Size())
	assert.InDelta(t, 2.5, mean.ValueAt(a, 0), 1e-12)
	assert.InDelta(t, 4.5, mean.ValueAt(a, 1), 1e-12)
	assert.InDelta(t, 6.5, mean.ValueAt(a, 2), 1e-12)

	tape := ad.NewTape()
	root := mean.ADNode(tape, 1)
	assert.InDelta(t, 4.5, tape.Eval(a, root), 1e-12)
}
