package fidsel

import (
	"fmt"

	"github.com/qmetro/fidkit/internal/scoring"
)

// Algorithm names a fiducial search strategy.
type Algorithm string

const (
	// AlgorithmLocalSearch is the deterministic slack-relaxed descent.
	AlgorithmLocalSearch Algorithm = "local_search"
	// AlgorithmGrasp is the randomized multi-restart metaheuristic.
	AlgorithmGrasp Algorithm = "grasp"
)

// ParseAlgorithm validates a user-supplied algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AlgorithmLocalSearch, AlgorithmGrasp:
		return Algorithm(s), nil
	default:
		return "", &ConfigError{Message: fmt.Sprintf("unknown algorithm %q (want %q or %q)",
			s, AlgorithmLocalSearch, AlgorithmGrasp)}
	}
}

// Default orchestration constants.
const (
	// DefaultMaxCircuitLength bounds the candidate enumeration.
	DefaultMaxCircuitLength = 2
	// DefaultIdentityThreshold is the squared Frobenius distance below
	// which an operation counts as the identity.
	DefaultIdentityThreshold = 1e-6
	// DefaultCleanThreshold is the Frobenius distance below which two
	// candidate transfer matrices count as duplicates.
	DefaultCleanThreshold = 1e-6
)

// Options configures the end-to-end fiducial search. The zero value is
// not usable directly; call Defaults or fill every field.
type Options struct {
	// MaxCircuitLength bounds candidate enumeration; candidates of every
	// length from 0 (unless ForceEmpty is off and the empty circuit is
	// excluded downstream) up to this bound are considered.
	MaxCircuitLength int

	// ExcludedOperations are operation labels removed from the candidate
	// alphabet before enumeration.
	ExcludedOperations []string

	// OmitIdentity drops operations within IdentityThreshold (squared
	// Frobenius distance) of the identity from the alphabet. The empty
	// circuit already covers the identity's contribution.
	OmitIdentity      bool
	IdentityThreshold float64

	// CleanDuplicates drops candidates whose transfer matrices coincide
	// with an earlier candidate within CleanThreshold. CleanIdentities
	// drops non-empty candidates that compose to the identity.
	CleanDuplicates bool
	CleanIdentities bool
	CleanThreshold  float64

	// PrepOnly and MeasOnly restrict the run to one role. Both false
	// means both roles are searched.
	PrepOnly bool
	MeasOnly bool

	// Algorithm selects the search strategy, with its options below.
	Algorithm Algorithm

	ScoreFunc  scoring.Func
	ForceEmpty bool
	L1Penalty  float64
	OpPenalty  float64

	// Grasp holds GRASP-specific knobs; only Alpha, Restarts, Seed,
	// Threshold and MaxRetries are read from it (shared knobs above win).
	Grasp GraspOptions

	// Slack holds local-search-specific knobs; only MaxIter, FixedSlack,
	// SlackFrac, FixedNum, MaxExhaustiveSets and ForceEmptyScore are
	// read from it.
	Slack SlackOptions
}

// Defaults returns the standard configuration: GRASP over candidates of
// length at most two, identity omitted, empty circuit forced.
func Defaults() Options {
	return Options{
		MaxCircuitLength:  DefaultMaxCircuitLength,
		OmitIdentity:      true,
		IdentityThreshold: DefaultIdentityThreshold,
		CleanDuplicates:   true,
		CleanIdentities:   true,
		CleanThreshold:    DefaultCleanThreshold,
		Algorithm:         AlgorithmGrasp,
		ScoreFunc:         scoring.FuncAll,
		ForceEmpty:        true,
		OpPenalty:         DefaultOpPenalty,
		Grasp: GraspOptions{
			Alpha:     DefaultAlpha,
			Restarts:  DefaultRestarts,
			Threshold: DefaultThreshold,
		},
		Slack: SlackOptions{
			SlackFrac: 1.0,
			MaxIter:   DefaultMaxIter,
		},
	}
}

func (o Options) validate() error {
	if o.MaxCircuitLength < 0 {
		return &ConfigError{Message: "max circuit length must be non-negative"}
	}
	if o.PrepOnly && o.MeasOnly {
		return &ConfigError{Message: "prep-only and meas-only are mutually exclusive"}
	}
	if _, err := ParseAlgorithm(string(o.Algorithm)); err != nil {
		return err
	}
	if _, err := scoring.ParseFunc(string(o.ScoreFunc)); err != nil {
		return &ConfigError{Message: err.Error()}
	}
	return nil
}
