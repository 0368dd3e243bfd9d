package mcmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRNGReproducibility(t *testing.T) {
	a := NewRNG(42)
	b := NewRNG(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestWarmupScheduleTilesExactly(t *testing.T) {
	windows := WarmupSchedule(1000, 75, 50, 25)
	assert.Equal(t, 0, windows[0].Start)
	assert.Equal(t, 75, windows[0].End)
	assert.False(t, windows[0].Slow)

	last := windows[len(windows)-1]
	assert.Equal(t, 1000, last.End)
	assert.False(t, last.Slow)

	assert.Equal(t, 75, windows[1].Start)
	assert.True(t, windows[1].Slow)

	for i := 1; i < len(windows)-1; i++ {
		assert.True(t, windows[i].Slow)
		if i > 1 {
			assert.Equal(t, windows[i-1].End, windows[i].Start)
		}
	}
}

func TestWarmupScheduleShortWarmupCollapses(t *testing.T) {
	windows := WarmupSchedule(50, 75, 50, 25)
	assert.Len(t, windows, 1)
	assert.Equal(t, 0, windows[0].Start)
	assert.Equal(t, 50, windows[0].End)
}

func TestWelfordMatchesKnownVariance(t *testing.T) {
	w := NewWelford(1)
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		w.Add([]float64{x})
	}
	v := w.RegularizedVariance()
	n := float64(w.N())
	// sample variance (n-1 denominator): squared deviations sum to 32 over 7
	assert.InDelta(t, (32.0/7.0)*n/(n+5)+1e-3*5/(n+5), v[0], 1e-9)
}

func TestStepAdapterConvergesTowardDelta(t *testing.T) {
	s := NewStepAdapter(1.0, 0.8, 0.05, 0.75, 10)
	var eps float64
	for i := 0; i < 200; i++ {
		eps = s.Update(0.8)
	}
	assert.Greater(t, eps, 0.0)
	final := s.Finalize()
	assert.Greater(t, final, 0.0)
	// With every acceptance statistic equal to delta, Hbar stays 0, so the
	// step size settles at exp(mu) = 10*eps0.
	assert.InDelta(t, 10.0, eps, 1e-9)
	assert.InDelta(t, 10.0, final, 1e-9)
}

func TestNewResultAllocatesExpectedShape(t *testing.T) {
	r := NewResult("mh", 100, 2, 1)
	rows, cols := r.ContSamples.Dims()
	assert.Equal(t, 100, rows)
	assert.Equal(t, 2, cols)
	rows, cols = r.DiscSamples.Dims()
	assert.Equal(t, 100, rows)
	assert.Equal(t, 1, cols)
}
