package ad

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeSource is a minimal ad.Source for tests that doesn't depend on the
// arena package, keeping this test package-local.
type fakeSource struct {
	values              []float64
	adjoints            []float64
	transformedValues   []float64
	transformedAdjoints []float64
}

func newFakeSource(values []float64) *fakeSource {
	return &fakeSource{
		values:              values,
		adjoints:            make([]float64, len(values)),
		transformedValues:   append([]float64(nil), values...),
		transformedAdjoints: make([]float64, len(values)),
	}
}

func (f *fakeSource) Value(off int) float64              { return f.values[off] }
func (f *fakeSource) AddAdjoint(off int, d float64)       { f.adjoints[off] += d }
func (f *fakeSource) TransformedValue(off int) float64    { return f.transformedValues[off] }
func (f *fakeSource) AddTransformedAdjoint(off int, d float64) { f.transformedAdjoints[off] += d }

func TestTapeAddMulGradient(t *testing.T) {
	// f(x, y) = (x + y) * x ; df/dx = 2x + y ; df/dy = x
	tape := NewTape()
	src := newFakeSource([]float64{3, 5})

	x := tape.Param(0)
	y := tape.Param(1)
	sum := tape.Add(x, y)
	f := tape.Mul(sum, x)

	val := tape.Backward(src, f)
	assert.InDelta(t, 24.0, val, 1e-12)
	assert.InDelta(t, 2*3+5, src.adjoints[0], 1e-12)
	assert.InDelta(t, 3.0, src.adjoints[1], 1e-12)
}

func TestTapeLogExpPowGradient(t *testing.T) {
	// f(x) = log(x^2) + exp(x) ; df/dx = 2/x + exp(x)
	tape := NewTape()
	src := newFakeSource([]float64{2.0})

	x := tape.Param(0)
	f := tape.Add(tape.Log(tape.Pow(x, 2)), tape.Exp(x))

	val := tape.Backward(src, f)
	want := math.Log(4) + math.Exp(2)
	assert.InDelta(t, want, val, 1e-12)
	assert.InDelta(t, 2.0/2.0+math.Exp(2), src.adjoints[0], 1e-9)
}

func TestTapeFiniteDifferenceAgreement(t *testing.T) {
	h := 1e-6
	f := func(x, y float64) float64 {
		return math.Log(x*x+1) + math.Exp(0.5*y) - x*y
	}
	x0, y0 := 1.3, -0.7

	tape := NewTape()
	src := newFakeSource([]float64{x0, y0})
	xN := tape.Param(0)
	yN := tape.Param(1)
	expr := tape.Sub(
		tape.Add(tape.Log(tape.Add(tape.Mul(xN, xN), tape.Const(1))), tape.Exp(tape.Scale(yN, 0.5))),
		tape.Mul(xN, yN),
	)
	tape.Backward(src, expr)

	dfdx := (f(x0+h, y0) - f(x0-h, y0)) / (2 * h)
	dfdy := (f(x0, y0+h) - f(x0, y0-h)) / (2 * h)

	assert.InDelta(t, dfdx, src.adjoints[0], 1e-5)
	assert.InDelta(t, dfdy, src.adjoints[1], 1e-5)
}

func TestTapeEvalOnlyNoAdjoints(t *testing.T) {
	tape := NewTape()
	src := newFakeSource([]float64{4})
	x := tape.Param(0)
	root := tape.Pow(x, 0.5)
	got := tape.Eval(src, root)
	assert.InDelta(t, 2.0, got, 1e-12)
	assert.Equal(t, 0.0, src.adjoints[0])
}

func TestSigmoidMatchesClosedForm(t *testing.T) {
	tape := NewTape()
	src := newFakeSource([]float64{0.37})
	x := tape.Param(0)
	got := tape.Eval(src, tape.Sigmoid(x))
	want := 1.0 / (1.0 + math.Exp(-0.37))
	assert.InDelta(t, want, got, 1e-12)
}
