// Package mcmc holds the plumbing shared by the MH and NUTS samplers:
// the RNG source, the sample result container, and the warmup window
// schedule used by NUTS's mass-matrix adaptation.
package mcmc

import (
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// NewRNG builds the deterministic, seedable 64-bit source every sampler
// draws from. Given an identical seed, two samplers over the same model
// and config produce bit-identical sample sequences (spec.md §5).
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Result is the sampler output container: a continuous-sample matrix and
// a discrete-sample matrix (n_samples rows x n_params columns, addressed
// through mat.Dense's At/Set so the logical row/column layout spec.md §6
// requires holds regardless of gonum's own row-major backing store),
// plus timing and the producing algorithm's name.
type Result struct {
	Name string

	ContSamples *mat.Dense // n_samples x n_cont_params
	DiscSamples *mat.Dense // n_samples x n_disc_params

	Divergences []bool // one entry per sampling-phase iteration

	WarmupTime   time.Duration
	SamplingTime time.Duration
}

// NewResult allocates a Result sized for nSamples draws of nCont
// continuous and nDisc discrete parameter elements (a vector parameter
// takes one column per element).
func NewResult(name string, nSamples, nCont, nDisc int) *Result {
	r := &Result{Name: name, Divergences: make([]bool, 0, nSamples)}
	if nCont > 0 {
		r.ContSamples = mat.NewDense(nSamples, nCont, nil)
	}
	if nDisc > 0 {
		r.DiscSamples = mat.NewDense(nSamples, nDisc, nil)
	}
	return r
}
