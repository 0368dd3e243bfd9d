// Package nuts implements the No-U-Turn Sampler from spec.md §4.5:
// leapfrog integration, recursive tree-doubling with no-U-turn and
// divergence termination, multinomial trajectory sampling, dual
// averaging step-size adaptation, and Welford diagonal mass-matrix
// adaptation over a windowed warmup schedule.
package nuts

import (
	"log"
	"math"
	"os"
	"time"

	"golang.org/x/exp/rand"

	"github.com/autoppl/autoppl-go/arena"
	"github.com/autoppl/autoppl-go/config"
	"github.com/autoppl/autoppl-go/errs"
	"github.com/autoppl/autoppl-go/mcmc"
	"github.com/autoppl/autoppl-go/model"
)

// diagnosticLog is the package-level logger used to record non-fatal
// per-iteration runtime issues (divergences, max-tree-depth hits) per
// spec.md §7's "logged and the iteration is marked divergent" policy.
var diagnosticLog = log.New(os.Stderr, "nuts: ", log.LstdFlags)

// divergenceThreshold is the Hamiltonian-error cutoff past which a
// trajectory is declared divergent (spec.md §4.5).
const divergenceThreshold = 1000.0

// state is one point of a NUTS trajectory: position, momentum, and the
// cached gradient at that position.
type state struct {
	theta []float64
	r     []float64
	grad  []float64
}

func cloneState(s state) state {
	return state{theta: append([]float64(nil), s.theta...), r: append([]float64(nil), s.r...), grad: append([]float64(nil), s.grad...)}
}

// sampler bundles the live per-run context a tree-building recursion
// needs: the compiled model, its arena, the RNG, the current mass-matrix
// diagonal, and H0 (the Hamiltonian at the trajectory's starting point).
type sampler struct {
	m       *model.Model
	a       *arena.Arena
	rng     *rand.Rand
	invMass []float64
	h0      float64

	maxDepth int

	// lastAccept/lastLP/lastGrad cache the most recent draw's acceptance
	// statistic and log-density/gradient at the selected proposal, reused
	// by the warmup loop's step-size/mass-matrix adaptation without a
	// redundant re-evaluation.
	lastAccept float64
	lastLP     float64
	lastGrad   []float64
}

// logDensityAndGrad writes theta into the arena's unconstrained values
// and returns the log density and gradient at that point.
func (s *sampler) logDensityAndGrad(theta []float64) (float64, []float64) {
	for i, v := range theta {
		s.a.SetValue(i, v)
	}
	for _, p := range s.m.ContParams() {
		for i := 0; i < p.Size(); i++ {
			p.RefreshTransformed(s.a, i)
		}
	}
	lp := s.m.GradLogJoint(s.a)
	grad := make([]float64, len(theta))
	for i := range grad {
		grad[i] = s.a.Adjoint(i)
	}
	return lp, grad
}

func (s *sampler) hamiltonian(lp float64, r []float64) float64 {
	var kinetic float64
	for i, ri := range r {
		kinetic += ri * ri * s.invMass[i]
	}
	return -lp + 0.5*kinetic
}

// leapfrog performs one leapfrog step from st with step size eps
// (spec.md §4.5).
func (s *sampler) leapfrog(st state, eps float64) (state, float64) {
	dim := len(st.theta)
	r := make([]float64, dim)
	for i := range r {
		r[i] = st.r[i] + 0.5*eps*st.grad[i]
	}
	theta := make([]float64, dim)
	for i := range theta {
		theta[i] = st.theta[i] + eps*s.invMass[i]*r[i]
	}
	lp, grad := s.logDensityAndGrad(theta)
	for i := range r {
		r[i] += 0.5 * eps * grad[i]
	}
	return state{theta: theta, r: r, grad: grad}, lp
}

// noUTurn reports whether the trajectory spanning [left, right] has
// turned back on itself (spec.md §4.5).
func noUTurn(left, right state) bool {
	var dotLeft, dotRight float64
	for i := range left.theta {
		diff := right.theta[i] - left.theta[i]
		dotLeft += diff * left.r[i]
		dotRight += diff * right.r[i]
	}
	return dotLeft < 0 || dotRight < 0
}

// treeResult is what buildTree returns for one doubling step.
type treeResult struct {
	left, right state
	proposal    state
	logWeight   float64 // log sum exp(-H) across the subtree's valid states
	valid       bool
	divergent   bool
	nValid      int
	acceptSum   float64 // sum of per-step acceptance probabilities, for dual averaging
	nSteps      int
}

// buildTree recursively grows a subtree of 2^depth leapfrog steps from
// st in the given direction (spec.md §4.5).
func (s *sampler) buildTree(st state, direction int, depth int, eps float64) treeResult {
	if depth == 0 {
		var next state
		var lp float64
		if direction > 0 {
			next, lp = s.leapfrog(st, eps)
		} else {
			back := state{theta: st.theta, r: negate(st.r), grad: st.grad}
			fwd, fwdLP := s.leapfrog(back, eps)
			next, lp = state{theta: fwd.theta, r: negate(fwd.r), grad: fwd.grad}, fwdLP
		}
		h := s.hamiltonian(lp, next.r)
		divergent := math.IsNaN(h) || h-s.h0 > divergenceThreshold
		logWeight := -h
		accept := math.Exp(math.Min(0, s.h0-h))
		if divergent {
			accept = 0
			diagnosticLog.Printf("divergent transition: H=%v H0=%v", h, s.h0)
		}
		return treeResult{
			left: next, right: next, proposal: next,
			logWeight: logWeight, valid: !divergent, divergent: divergent,
			nValid: boolToInt(!divergent), acceptSum: accept, nSteps: 1,
		}
	}

	sub := s.buildTree(st, direction, depth-1, eps)
	if !sub.valid {
		return sub
	}

	var other treeResult
	if direction > 0 {
		other = s.buildTree(sub.right, direction, depth-1, eps)
	} else {
		other = s.buildTree(sub.left, direction, depth-1, eps)
	}

	combined := treeResult{
		logWeight: logSumExp(sub.logWeight, other.logWeight),
		nValid:    sub.nValid + other.nValid,
		acceptSum: sub.acceptSum + other.acceptSum,
		nSteps:    sub.nSteps + other.nSteps,
		divergent: other.divergent,
	}
	if direction > 0 {
		combined.left, combined.right = sub.left, other.right
	} else {
		combined.left, combined.right = other.left, sub.right
	}

	// Biased progressive subtree sampling: the newer subtree replaces the
	// proposal with probability w_new / (w_old + w_new).
	if other.valid && other.nValid > 0 {
		pNew := math.Exp(other.logWeight - combined.logWeight)
		if s.rng.Float64() < pNew {
			combined.proposal = other.proposal
		} else {
			combined.proposal = sub.proposal
		}
	} else {
		combined.proposal = sub.proposal
	}

	turnedAcrossWhole := noUTurn(combined.left, combined.right)
	turnedWithinSub := noUTurn(sub.left, sub.right) || (other.valid && noUTurn(other.left, other.right))
	combined.valid = other.valid && !turnedAcrossWhole && !turnedWithinSub
	combined.divergent = other.divergent
	return combined
}

func negate(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func logSumExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	hi := math.Max(a, b)
	return hi + math.Log(math.Exp(a-hi)+math.Exp(b-hi))
}

// Run draws samples from m's posterior using NUTS (spec.md §4.5). It
// refuses any model containing a discrete-prior parameter outright,
// since this module implements no discrete HMC (spec.md §9 Open
// Question).
func Run(m *model.Model, cfg config.NUTSConfig) (*mcmc.Result, error) {
	cfg = cfg.WithDefaults()
	if m.RejectsDiscreteGradient() {
		return nil, errs.New(errs.ModelDefinition, "nuts: model contains a discrete-prior parameter; NUTS requires an entirely continuous, differentiable model")
	}

	rng := mcmc.NewRNG(cfg.Seed)
	a := m.NewArena()
	dim := m.NUnconstrained()

	if err := initializePoint(m, a, rng); err != nil {
		return nil, err
	}

	s := &sampler{m: m, a: a, rng: rng, invMass: onesVec(dim), maxDepth: cfg.MaxDepth}

	theta := append([]float64(nil), a.Values()...)
	lp, grad := s.logDensityAndGrad(theta)

	eps := findReasonableStepSize(s, theta, lp, grad)
	stepAdapter := mcmc.NewStepAdapter(eps, cfg.Step.Delta, cfg.Step.Gamma, cfg.Step.Kappa, cfg.Step.T0)
	welford := mcmc.NewWelford(dim)
	windows := mcmc.WarmupSchedule(cfg.Warmup, cfg.Var.InitBuffer, cfg.Var.TermBuffer, cfg.Var.Window)
	windowIdx := 0

	warmupStart := time.Now()
	for iter := 0; iter < cfg.Warmup; iter++ {
		var divergent bool
		theta, divergent = s.oneDraw(theta, eps)
		eps = stepAdapter.Update(s.lastAccept)
		_ = divergent

		if windowIdx < len(windows) && windows[windowIdx].Slow {
			welford.Add(theta)
			if iter+1 == windows[windowIdx].End {
				variance := welford.RegularizedVariance()
				s.invMass = variance
				welford.Reset()
				eps = findReasonableStepSize(s, theta, s.lastLP, s.lastGrad)
				stepAdapter.Reset(eps)
			}
		}
		if windowIdx < len(windows) && iter+1 >= windows[windowIdx].End {
			windowIdx++
		}
	}
	eps = stepAdapter.Finalize()
	warmupTime := time.Since(warmupStart)

	res := mcmc.NewResult("nuts", cfg.NSamples, m.NUnconstrained(), 0)

	samplingStart := time.Now()
	for iter := 0; iter < cfg.NSamples; iter++ {
		var divergent bool
		theta, divergent = s.oneDraw(theta, eps)
		writeRow(res, iter, m, a)
		res.Divergences = append(res.Divergences, divergent)
	}
	res.WarmupTime = warmupTime
	res.SamplingTime = time.Since(samplingStart)
	return res, nil
}

func onesVec(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

// oneDraw grows a NUTS trajectory from theta via tree doubling until a
// no-U-turn/divergence/max-depth stop, and returns the multinomially
// selected next position.
func (s *sampler) oneDraw(theta []float64, eps float64) (next []float64, divergent bool) {
	lp, grad := s.logDensityAndGrad(theta)
	r := make([]float64, len(theta))
	for i := range r {
		r[i] = s.rng.NormFloat64() / math.Sqrt(s.invMass[i])
	}
	s.h0 = s.hamiltonian(lp, r)

	st := state{theta: theta, r: r, grad: grad}
	left, right := st, st
	proposal := cloneState(st)
	logWeight := -s.h0
	nValid := 1
	acceptSum, nSteps := 0.0, 0

	depth := 0
	for ; depth < s.maxDepth; depth++ {
		direction := 1
		if s.rng.Float64() < 0.5 {
			direction = -1
		}

		var sub treeResult
		if direction > 0 {
			sub = s.buildTree(right, direction, depth, eps)
			right = sub.right
		} else {
			sub = s.buildTree(left, direction, depth, eps)
			left = sub.left
		}

		acceptSum += sub.acceptSum
		nSteps += sub.nSteps
		if sub.divergent {
			divergent = true
		}

		if !sub.valid {
			break
		}

		combinedWeight := logSumExp(logWeight, sub.logWeight)
		if sub.nValid > 0 {
			pNew := math.Exp(sub.logWeight - combinedWeight)
			if s.rng.Float64() < pNew {
				proposal = sub.proposal
			}
		}
		logWeight = combinedWeight
		nValid += sub.nValid

		if noUTurn(left, right) {
			break
		}
	}
	if depth == s.maxDepth {
		diagnosticLog.Printf("maximum tree depth %d reached", s.maxDepth)
	}

	if nSteps == 0 {
		nSteps = 1
	}
	s.lastAccept = acceptSum / float64(nSteps)
	s.lastLP, s.lastGrad = s.logDensityAndGrad(proposal.theta)
	_ = nValid
	return proposal.theta, divergent
}

func writeRow(res *mcmc.Result, iter int, m *model.Model, a *arena.Arena) {
	col := 0
	for _, p := range m.ContParams() {
		for i := 0; i < p.Size(); i++ {
			v := p.ValueAt(a, i)
			res.ContSamples.Set(iter, col, v)
			p.WriteThrough(i, v)
			col++
		}
	}
}

// initializePoint mirrors mh's retry loop (spec.md §4.4, reused by
// NUTS per §4.5 "Initialization failures mirror MH").
func initializePoint(m *model.Model, a *arena.Arena, rng *rand.Rand) error {
	for attempt := 0; attempt < model.InitRetries; attempt++ {
		m.SampleInitialPoint(rng, a)
		if !math.IsInf(m.LogJoint(a), -1) {
			return nil
		}
	}
	return model.ErrNoFiniteInit()
}

// findReasonableStepSize implements the doubling/halving heuristic from
// spec.md §4.5.
func findReasonableStepSize(s *sampler, theta []float64, lp float64, grad []float64) float64 {
	eps := 1.0
	r := make([]float64, len(theta))
	for i := range r {
		r[i] = s.rng.NormFloat64() / math.Sqrt(s.invMass[i])
	}
	h0 := s.hamiltonian(lp, r)

	st := state{theta: theta, r: r, grad: grad}
	next, nextLP := s.leapfrog(st, eps)
	h1 := s.hamiltonian(nextLP, next.r)
	logAccept := h0 - h1

	direction := 1.0
	if logAccept <= -math.Ln2 {
		direction = -1
	}

	for i := 0; i < 100; i++ {
		if direction > 0 {
			eps *= 2
		} else {
			eps /= 2
		}
		next, nextLP = s.leapfrog(st, eps)
		h1 = s.hamiltonian(nextLP, next.r)
		logAccept = h0 - h1
		if direction > 0 && logAccept <= -math.Ln2 {
			break
		}
		if direction < 0 && logAccept >= -math.Ln2 {
			break
		}
	}
	return eps
}
