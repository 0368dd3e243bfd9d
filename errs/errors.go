// Package errs defines the typed error hierarchy shared across the
// module: the four fatal, definition-time error kinds from spec §7.
// NumericalDivergence is deliberately absent here — it is never raised,
// only recorded per-iteration in an mcmc.Result.
package errs

import "fmt"

// Kind tags which definition-time invariant was violated.
type Kind int

const (
	// InvalidDistribution marks a constructor constraint violation,
	// e.g. a non-positive stddev or a < b failing for Uniform(a,b).
	InvalidDistribution Kind = iota
	// ModelDefinition marks a parameter with no prior, two priors, or a
	// reference before its binding EqNode.
	ModelDefinition
	// InitializationFailed marks exhaustion of the initial-point retry
	// budget without finding a finite-log-density starting point.
	InitializationFailed
	// DimensionMismatch marks vector data paired with an
	// incompatibly-sized distribution.
	DimensionMismatch
)

func (k Kind) String() string {
	switch k {
	case InvalidDistribution:
		return "InvalidDistribution"
	case ModelDefinition:
		return "ModelDefinition"
	case InitializationFailed:
		return "InitializationFailed"
	case DimensionMismatch:
		return "DimensionMismatch"
	default:
		return "Unknown"
	}
}

// Error is the single error type returned for every definition-time
// failure in this module. Callers distinguish kinds with errors.As and a
// switch on Kind, Go-idiomatically, rather than a type per kind.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New constructs an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
