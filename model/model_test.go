package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/autoppl/autoppl-go/dist"
	"github.com/autoppl/autoppl-go/variable"
)

func TestCompileAssignsOffsetsInOrder(t *testing.T) {
	theta1 := variable.NewParam()
	theta2 := variable.NewParam()

	u, err := dist.NewUniform(variable.NewConstant(-1), variable.NewConstant(1))
	require.NoError(t, err)
	n1, err := NewEqNode(theta1, u)
	require.NoError(t, err)

	nrm, err := NewNormalAround(theta1)
	require.NoError(t, err)
	n2, err := NewEqNode(theta2, nrm)
	require.NoError(t, err)

	root := Seq(n1, n2)
	m, err := Compile(root)
	require.NoError(t, err)

	require.Len(t, m.ContParams(), 2)
	assert.Equal(t, 0, theta1.OffsetPack().Unconstrained)
	assert.Equal(t, 1, theta2.OffsetPack().Unconstrained)
	assert.Equal(t, 2, m.NUnconstrained())
}

func TestCompileRejectsUnboundParamUsedAsDistributionParameter(t *testing.T) {
	mean := variable.NewParam()
	obs := variable.NewData([]float64{0.1, 0.2, 0.3})
	n, err := dist.NewNormal(mean, variable.NewConstant(1))
	require.NoError(t, err)
	e, err := NewEqNode(obs, n)
	require.NoError(t, err)

	_, err = Compile(e)
	require.Error(t, err)
}

func TestCompileRejectsForwardReferencedParam(t *testing.T) {
	theta1 := variable.NewParam()
	theta2 := variable.NewParam()

	// theta2's prior references theta1 before theta1 has its own binding.
	n2, err := dist.NewNormal(theta1, variable.NewConstant(1))
	require.NoError(t, err)
	e2, err := NewEqNode(theta2, n2)
	require.NoError(t, err)

	u, err := dist.NewUniform(variable.NewConstant(-1), variable.NewConstant(1))
	require.NoError(t, err)
	e1, err := NewEqNode(theta1, u)
	require.NoError(t, err)

	_, err = Compile(Seq(e2, e1))
	require.Error(t, err)
}

func TestCompileAcceptsParamUsedAsDistributionParameterAfterBinding(t *testing.T) {
	theta1 := variable.NewParam()
	theta2 := variable.NewParam()

	u, err := dist.NewUniform(variable.NewConstant(-1), variable.NewConstant(1))
	require.NoError(t, err)
	e1, err := NewEqNode(theta1, u)
	require.NoError(t, err)

	n2, err := dist.NewNormal(theta1, variable.NewConstant(1))
	require.NoError(t, err)
	e2, err := NewEqNode(theta2, n2)
	require.NoError(t, err)

	_, err = Compile(Seq(e1, e2))
	require.NoError(t, err)
}

func TestCompileRejectsDoubleBinding(t *testing.T) {
	theta := variable.NewParam()
	n, err := dist.NewNormal(variable.NewConstant(0), variable.NewConstant(1))
	require.NoError(t, err)

	e1, err := NewEqNode(theta, n)
	require.NoError(t, err)
	e2, err := NewEqNode(theta, n)
	require.NoError(t, err)

	_, err = Compile(Seq(e1, e2))
	require.Error(t, err)
}

func TestNewEqNodeRejectsDimensionMismatch(t *testing.T) {
	data := variable.NewData([]float64{1, 2, 3})
	p := variable.NewData([]float64{0.3, 0.6})
	b, err := dist.NewBernoulli(p)
	require.NoError(t, err)
	_, err = NewEqNode(data, b)
	require.Error(t, err)
}

func TestLogJointMatchesDirectSum(t *testing.T) {
	theta := variable.NewParam()
	n, err := dist.NewNormal(variable.NewConstant(0), variable.NewConstant(1))
	require.NoError(t, err)
	e, err := NewEqNode(theta, n)
	require.NoError(t, err)

	obs := variable.NewData([]float64{0.1, 0.2, 0.3, 0.4, 0.5})
	obsDist, err := dist.NewNormal(theta, variable.NewConstant(1))
	require.NoError(t, err)
	eObs, err := NewEqNode(obs, obsDist)
	require.NoError(t, err)

	m, err := Compile(Seq(e, eObs))
	require.NoError(t, err)

	a := m.NewArena()
	theta.SetInitialConstrained(a, 0, 0.0)

	var direct float64
	for i := 0; i < obs.Size(); i++ {
		direct += obsDist.LogPDF(a, obs, i)
	}
	direct += n.LogPDF(a, theta, 0)

	assert.InDelta(t, direct, m.LogJoint(a), 1e-12)
}

func TestGradLogJointMatchesFiniteDifference(t *testing.T) {
	theta := variable.NewParam()
	n, err := dist.NewNormal(variable.NewConstant(0.3), variable.NewConstant(1.1))
	require.NoError(t, err)
	e, err := NewEqNode(theta, n)
	require.NoError(t, err)

	m, err := Compile(e)
	require.NoError(t, err)

	a := m.NewArena()
	theta.SetInitialConstrained(a, 0, 0.9)

	lp := m.GradLogJoint(a)
	assert.InDelta(t, n.LogPDF(a, theta, 0), lp, 1e-12)
	grad := a.Adjoint(0)

	h := 1e-6
	f := func(x float64) float64 {
		a.SetValue(0, x)
		return n.LogPDF(a, theta, 0)
	}
	fd := (f(0.9+h) - f(0.9-h)) / (2 * h)
	assert.InDelta(t, fd, grad, 1e-5)
}

func TestUniformBoundedParamGetsLogitTransform(t *testing.T) {
	theta := variable.NewParam()
	u, err := dist.NewUniform(variable.NewConstant(-1), variable.NewConstant(1))
	require.NoError(t, err)
	e, err := NewEqNode(theta, u)
	require.NoError(t, err)

	m, err := Compile(e)
	require.NoError(t, err)
	assert.Equal(t, 1, m.nTransformed)

	a := m.NewArena()
	theta.SetInitialConstrained(a, 0, 0.25)
	assert.InDelta(t, 0.25, theta.ValueAt(a, 0), 1e-12)
}

func TestSampleInitialPointStaysWithinSupport(t *testing.T) {
	theta := variable.NewParam()
	u, err := dist.NewUniform(variable.NewConstant(-2), variable.NewConstant(2))
	require.NoError(t, err)
	e, err := NewEqNode(theta, u)
	require.NoError(t, err)
	m, err := Compile(e)
	require.NoError(t, err)

	a := m.NewArena()
	rng := rand.New(rand.NewSource(7))
	m.SampleInitialPoint(rng, a)
	v := theta.ValueAt(a, 0)
	assert.True(t, v > -2 && v < 2)
	assert.False(t, math.IsInf(m.LogJoint(a), -1))
}

// NewNormalAround is a small test helper building Normal(theta1, 1).
func NewNormalAround(mean variable.Expr) (dist.Expr, error) {
	return dist.NewNormal(mean, variable.NewConstant(1))
}
