package mcmc

// Welford is an online per-dimension mean/variance accumulator, used by
// NUTS's diagonal mass-matrix adaptation (spec.md §4.5).
type Welford struct {
	n    int
	mean []float64
	m2   []float64
}

// NewWelford allocates an accumulator for a dim-dimensional vector.
func NewWelford(dim int) *Welford {
	return &Welford{mean: make([]float64, dim), m2: make([]float64, dim)}
}

// Add folds x into the running mean/variance estimate.
func (w *Welford) Add(x []float64) {
	w.n++
	for i, xi := range x {
		delta := xi - w.mean[i]
		w.mean[i] += delta / float64(w.n)
		delta2 := xi - w.mean[i]
		w.m2[i] += delta * delta2
	}
}

// Reset clears the accumulator in place, keeping its allocated buffers.
func (w *Welford) Reset() {
	w.n = 0
	for i := range w.mean {
		w.mean[i] = 0
		w.m2[i] = 0
	}
}

// N reports how many vectors have been folded in since the last Reset.
func (w *Welford) N() int { return w.n }

// RegularizedVariance returns the sample variance per dimension,
// shrunk toward a diagonal of 1e-3 as spec.md §4.5 prescribes:
// Var*n/(n+5) + 1e-3*5/(n+5).
func (w *Welford) RegularizedVariance() []float64 {
	out := make([]float64, len(w.mean))
	n := float64(w.n)
	if w.n < 2 {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, m2 := range w.m2 {
		sampleVar := m2 / (n - 1)
		out[i] = sampleVar*n/(n+5) + 1e-3*5/(n+5)
	}
	return out
}
