// Package mh implements the Metropolis-Hastings sampler from spec.md
// §4.4: symmetric normal proposals on the unconstrained scale for
// continuous parameters, uniform category-flip proposals for discrete
// parameters, accept/reject on the log-density ratio.
package mh

import (
	"math"
	"time"

	"golang.org/x/exp/rand"

	"github.com/autoppl/autoppl-go/arena"
	"github.com/autoppl/autoppl-go/config"
	"github.com/autoppl/autoppl-go/dist"
	"github.com/autoppl/autoppl-go/mcmc"
	"github.com/autoppl/autoppl-go/model"
	"github.com/autoppl/autoppl-go/variable"
)

// Run draws samples from m's posterior using Metropolis-Hastings
// (spec.md §4.4). The returned Result's ContSamples/DiscSamples hold one
// row per post-warmup iteration, in bind order.
func Run(m *model.Model, cfg config.MHConfig) (*mcmc.Result, error) {
	cfg = cfg.WithDefaults()
	rng := mcmc.NewRNG(cfg.Seed)
	a := m.NewArena()

	if err := initializePoint(m, a, rng); err != nil {
		return nil, err
	}

	contParams := m.ContParams()
	discParams := m.DiscParams()

	warmupStart := time.Now()
	current := m.LogJoint(a)
	for iter := 0; iter < cfg.Warmup; iter++ {
		current = sweep(m, a, rng, cfg, contParams, discParams, current)
	}
	warmupTime := time.Since(warmupStart)

	nCont, nDisc := 0, 0
	for _, p := range contParams {
		nCont += p.Size()
	}
	for _, p := range discParams {
		nDisc += p.Size()
	}
	res := mcmc.NewResult("mh", cfg.Samples, nCont, nDisc)

	samplingStart := time.Now()
	for iter := 0; iter < cfg.Samples; iter++ {
		current = sweep(m, a, rng, cfg, contParams, discParams, current)
		recordRow(res, iter, contParams, discParams, a)
		res.Divergences = append(res.Divergences, false)
	}
	res.WarmupTime = warmupTime
	res.SamplingTime = time.Since(samplingStart)
	return res, nil
}

// sweep runs one Metropolis-Hastings sweep: an independent propose/
// accept-reject pass over every continuous parameter element, followed
// by a flip proposal for every discrete parameter element. It returns
// the resulting log-joint value.
func sweep(m *model.Model, a *arena.Arena, rng *rand.Rand, cfg config.MHConfig, contParams, discParams []*variable.Param, current float64) float64 {
	for _, p := range contParams {
		for i := 0; i < p.Size(); i++ {
			off := p.OffsetPack().Unconstrained + i
			old := a.Value(off)
			proposal := old + cfg.Sigma*rng.NormFloat64()
			a.SetValue(off, proposal)
			p.RefreshTransformed(a, i)

			candidate := m.LogJoint(a)
			logAlpha := candidate - current
			if logAlpha >= 0 || math.Log(rng.Float64()) < logAlpha {
				current = candidate
				p.WriteThrough(i, p.ValueAt(a, i))
			} else {
				a.SetValue(off, old)
				p.RefreshTransformed(a, i)
			}
		}
	}

	for _, p := range discParams {
		k := cardinality(m.PriorOf(p))
		for i := 0; i < p.Size(); i++ {
			if rng.Float64() >= cfg.Alpha {
				continue
			}
			off := p.OffsetPack().Unconstrained + i
			old := a.DiscreteValue(off)
			proposal := flipCategory(rng, old, k)
			a.SetDiscreteValue(off, proposal)

			candidate := m.LogJoint(a)
			logAlpha := candidate - current
			if logAlpha >= 0 || math.Log(rng.Float64()) < logAlpha {
				current = candidate
				p.WriteThrough(i, proposal)
			} else {
				a.SetDiscreteValue(off, old)
			}
		}
	}

	return current
}

// cardinality returns the number of categories d's support ranges over,
// via the dist.Cardinal interface implemented by Bernoulli and Discrete
// (the only two discrete distributions in scope).
func cardinality(d dist.Expr) int {
	c, ok := d.(dist.Cardinal)
	if !ok {
		panic("mh: discrete parameter's prior does not implement dist.Cardinal")
	}
	return c.Cardinality()
}

// flipCategory draws a uniformly chosen category other than current
// from {0, ..., k-1}.
func flipCategory(rng *rand.Rand, current float64, k int) float64 {
	if k <= 1 {
		return current
	}
	draw := rng.Intn(k - 1)
	if float64(draw) >= current {
		draw++
	}
	return float64(draw)
}

// recordRow copies this iteration's accepted parameter values into row
// iter of res's sample matrices.
func recordRow(res *mcmc.Result, iter int, contParams, discParams []*variable.Param, a *arena.Arena) {
	if res.ContSamples != nil {
		col := 0
		for _, p := range contParams {
			for i := 0; i < p.Size(); i++ {
				res.ContSamples.Set(iter, col, p.ValueAt(a, i))
				col++
			}
		}
	}
	if res.DiscSamples != nil {
		col := 0
		for _, p := range discParams {
			for i := 0; i < p.Size(); i++ {
				res.DiscSamples.Set(iter, col, a.DiscreteValue(p.OffsetPack().Unconstrained+i))
				col++
			}
		}
	}
}

// initializePoint draws an initial point from the model's priors,
// retrying up to model.InitRetries times until a finite-log-density
// point is found (spec.md §4.4).
func initializePoint(m *model.Model, a *arena.Arena, rng *rand.Rand) error {
	for attempt := 0; attempt < model.InitRetries; attempt++ {
		m.SampleInitialPoint(rng, a)
		if !math.IsInf(m.LogJoint(a), -1) {
			return nil
		}
	}
	return model.ErrNoFiniteInit()
}
