// Package scoring defines the composite score ordering used to compare
// candidate fiducial sets, the scalar spectrum reductions, and the
// restricted-candidate-list filter used by GRASP construction.
package scoring

import (
	"fmt"
	"math"
)

// Func selects how a Gram spectrum is reduced to a scalar.
type Func string

const (
	// FuncAll sums reciprocals of the non-negligible eigenvalues,
	// rewarding sensitivity in every direction at once.
	FuncAll Func = "all"
	// FuncWorst takes the reciprocal of the smallest non-negligible
	// eigenvalue, rewarding the least-resolved direction.
	FuncWorst Func = "worst"
)

// ParseFunc validates a score function name.
func ParseFunc(s string) (Func, error) {
	switch Func(s) {
	case FuncAll, FuncWorst:
		return Func(s), nil
	default:
		return "", fmt.Errorf("invalid score function %q: must be %q or %q", s, FuncAll, FuncWorst)
	}
}

// Composite is a two-part score for a fiducial set.
//
// N counts the informationally useful directions (Gram eigenvalues above
// the noise floor); Minor is a finer continuous score, lower is better,
// breaking ties among sets achieving the same N.
//
// Ordering is primarily by -N ascending (more resolved directions win),
// then by Minor ascending.
type Composite struct {
	N     int
	Minor float64
}

// Infinite returns the worst possible score: zero resolved directions.
func Infinite() Composite {
	return Composite{N: 0, Minor: math.Inf(1)}
}

// Less reports whether s orders strictly before (better than) other.
func (s Composite) Less(other Composite) bool {
	if s.N != other.N {
		return s.N > other.N
	}
	return s.Minor < other.Minor
}

// LessOrEqual reports whether s is at least as good as other.
func (s Composite) LessOrEqual(other Composite) bool {
	return !other.Less(s)
}

// String renders the score in major/minor form, major being -N.
func (s Composite) String() string {
	return fmt.Sprintf("Score(major=%d, minor=%g, N=%d)", -s.N, s.Minor, s.N)
}

// ListScore reduces a raw eigenvalue list to a scalar without any
// thresholding: "all" sums reciprocals, "worst" takes the reciprocal of
// the minimum. Callers are responsible for handling non-positive
// eigenvalues (the result may be non-positive or infinite).
func ListScore(eigenvalues []float64, fn Func) (float64, error) {
	if len(eigenvalues) == 0 {
		return math.Inf(1), nil
	}
	switch fn {
	case FuncAll:
		sum := 0.0
		for _, ev := range eigenvalues {
			sum += 1 / ev
		}
		return sum, nil
	case FuncWorst:
		min := eigenvalues[0]
		for _, ev := range eigenvalues[1:] {
			if ev < min {
				min = ev
			}
		}
		return 1 / min, nil
	default:
		return 0, fmt.Errorf("invalid score function %q: must be %q or %q", fn, FuncAll, FuncWorst)
	}
}
