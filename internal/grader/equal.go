// Package grader is the runtime answer checker for compiled problems. It
// rebuilds a formula from a drag-and-drop submission and compares it
// against the expected formula at random sample points.
package grader

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/abhisek/texdnd/internal/formula"
)

// EqualOptions controls numeric equivalence checking.
type EqualOptions struct {
	// Tolerance is the largest absolute difference accepted per sample.
	Tolerance float64

	CaseSensitive bool

	// Rand is the source of sample draws. When nil a freshly seeded
	// generator local to the call is used.
	Rand *rand.Rand
}

// DefaultEqualOptions returns tolerance 0.01, case-sensitive names.
func DefaultEqualOptions() EqualOptions {
	return EqualOptions{Tolerance: 0.01, CaseSensitive: true}
}

// EvalError wraps an evaluator failure during sampling. It points at a
// broken formula or a variable mismatch rather than a bad submission.
type EvalError struct {
	Formula string
	Vars    map[string]float64
	Err     error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluate %q with %v: %v", e.Formula, e.Vars, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }

// FormulasEqual reports whether expected and given agree within tolerance
// at every sample point described by samples. The first disagreeing
// sample ends the check.
func FormulasEqual(expected, given, samples string, opts EqualOptions) (bool, error) {
	spec, err := formula.ParseSamples(samples)
	if err != nil {
		return false, err
	}

	want, err := Parse(expected, opts.CaseSensitive)
	if err != nil {
		return false, &EvalError{Formula: expected, Err: err}
	}
	got, err := Parse(given, opts.CaseSensitive)
	if err != nil {
		return false, &EvalError{Formula: given, Err: err}
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	for range spec.N {
		vars := make(map[string]float64, len(spec.Vars))
		for i, name := range spec.Vars {
			lo, hi := spec.Lo[i], spec.Hi[i]
			vars[name] = lo + rng.Float64()*(hi-lo)
		}

		a, err := want.Eval(vars)
		if err != nil {
			return false, &EvalError{Formula: expected, Vars: vars, Err: err}
		}
		b, err := got.Eval(vars)
		if err != nil {
			return false, &EvalError{Formula: given, Vars: vars, Err: err}
		}
		if !(math.Abs(a-b) <= opts.Tolerance) {
			return false, nil
		}
	}
	return true, nil
}
