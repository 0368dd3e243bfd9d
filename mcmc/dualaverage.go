package mcmc

import "math"

// StepAdapter implements NUTS's dual-averaging step-size adaptation
// (spec.md §4.5):
//
//	log eps_{m+1} = mu - (sqrt(m)/gamma) * Hbar_m
//	Hbar_m = (1 - 1/(m+t0)) * Hbar_{m-1} + (delta - alpha_m)/(m+t0)
//	log epsbar_m = m^-kappa * log eps_m + (1 - m^-kappa) * log epsbar_{m-1}
type StepAdapter struct {
	delta, gamma, kappa, t0 float64

	mu        float64
	hbar      float64
	logEps    float64
	logEpsBar float64
	m         int
}

// NewStepAdapter starts dual averaging from an initial step size eps0
// found by FindReasonableStepSize.
func NewStepAdapter(eps0, delta, gamma, kappa, t0 float64) *StepAdapter {
	return &StepAdapter{
		delta: delta, gamma: gamma, kappa: kappa, t0: t0,
		mu:        math.Log(10 * eps0),
		logEps:    math.Log(eps0),
		logEpsBar: 0,
	}
}

// Update folds in one iteration's acceptance statistic alpha (the mean
// Metropolis acceptance probability over the leapfrog trajectory,
// clamped to [0,1]) and returns the next step size to use.
func (s *StepAdapter) Update(alpha float64) float64 {
	s.m++
	m := float64(s.m)
	if alpha > 1 {
		alpha = 1
	}
	if alpha < 0 {
		alpha = 0
	}

	s.hbar = (1-1/(m+s.t0))*s.hbar + (s.delta-alpha)/(m+s.t0)
	s.logEps = s.mu - (math.Sqrt(m)/s.gamma)*s.hbar

	w := math.Pow(m, -s.kappa)
	s.logEpsBar = w*s.logEps + (1-w)*s.logEpsBar

	return math.Exp(s.logEps)
}

// Finalize returns eps-bar, the step size frozen in for the sampling
// phase once warmup ends.
func (s *StepAdapter) Finalize() float64 {
	return math.Exp(s.logEpsBar)
}

// Reset restarts dual averaging from a fresh initial step size, used at
// the start of each mass-matrix adaptation window (spec.md §4.5:
// "re-initialize step-size search").
func (s *StepAdapter) Reset(eps0 float64) {
	s.mu = math.Log(10 * eps0)
	s.hbar = 0
	s.logEps = math.Log(eps0)
	s.logEpsBar = 0
	s.m = 0
}

