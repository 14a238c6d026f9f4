// Package fidsel implements fiducial selection for gate set tomography:
// choosing small sets of preparation and measurement circuits whose
// effective state and effect vectors span the model's state space.
//
// The pipeline enumerates a candidate circuit universe, caches the
// candidates' transfer matrices, prunes redundant candidates, then
// searches for an informationally complete subset with either a
// deterministic slack-relaxed descent or a randomized multi-restart
// GRASP metaheuristic.
package fidsel

import (
	"errors"
	"log/slog"

	"github.com/qmetro/fidkit/internal/circuit"
	"github.com/qmetro/fidkit/internal/model"
	"github.com/qmetro/fidkit/internal/scoring"
)

// RoleResult holds the selected fiducials for one role together with
// their final composite score and Gram spectrum.
type RoleResult struct {
	Role     Role
	Circuits []circuit.Circuit
	Score    scoring.Composite
	Spectrum []float64
}

// Result is the outcome of a full fiducial search. A role skipped by
// configuration, or one whose search failed, has a nil entry.
type Result struct {
	Prep *RoleResult
	Meas *RoleResult

	// Candidates is the cleaned candidate universe the search ran over.
	Candidates []circuit.Circuit
}

// FindFiducials runs the end-to-end search for m: candidate
// enumeration, transfer-matrix caching, cleaning, and per-role subset
// search. When one role's search fails the other role's result is
// still returned alongside the joined error.
func FindFiducials(m model.ProcessModel, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	labels, err := candidateLabels(m, opts, logger)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 && opts.MaxCircuitLength > 0 {
		logger.Warn("all operations excluded; only the empty circuit remains")
	}

	candidates := circuit.Enumerate(labels, 0, opts.MaxCircuitLength)
	logger.Info("enumerated candidate fiducials",
		"model", modelName(m), "labels", len(labels), "candidates", len(candidates))

	matrices, err := BuildMatrixCache(m, candidates)
	if err != nil {
		return nil, err
	}
	if opts.CleanIdentities || opts.CleanDuplicates {
		matrices = matrices.Clean(m.Dimension(), CleanOptions{
			DropIdentities: opts.CleanIdentities,
			DropDuplicates: opts.CleanDuplicates,
			EqThresh:       opts.CleanThreshold,
		})
		candidates = FilterCircuits(candidates, matrices)
		logger.Info("cleaned candidate fiducials", "candidates", len(candidates))
	}

	result := &Result{Candidates: candidates}
	var errs []error

	if !opts.MeasOnly {
		prepCache, err := BuildPrepCache(m, candidates, matrices)
		if err != nil {
			return nil, err
		}
		rr, err := findForRole(m, candidates, RolePrep, NewCachedSource(prepCache), opts, logger)
		if err != nil {
			errs = append(errs, err)
		} else {
			result.Prep = rr
		}
	}
	if !opts.PrepOnly {
		measCache, err := BuildMeasCache(m, candidates, matrices)
		if err != nil {
			return nil, err
		}
		rr, err := findForRole(m, candidates, RoleMeas, NewCachedSource(measCache), opts, logger)
		if err != nil {
			errs = append(errs, err)
		} else {
			result.Meas = rr
		}
	}

	return result, errors.Join(errs...)
}

// candidateLabels filters the model's operation alphabet down to the
// labels candidates may be built from.
func candidateLabels(m model.ProcessModel, opts Options, logger *slog.Logger) ([]string, error) {
	excluded := make(map[string]bool, len(opts.ExcludedOperations))
	for _, label := range opts.ExcludedOperations {
		excluded[label] = true
	}

	identity := model.Identity(m.Dimension())
	var labels []string
	for _, label := range m.OperationLabels() {
		if excluded[label] {
			logger.Debug("excluding operation", "label", label, "reason", "excluded by configuration")
			continue
		}
		if opts.OmitIdentity {
			op, err := m.Operation(label)
			if err != nil {
				return nil, err
			}
			d := model.FrobeniusDistance(op, identity)
			if d*d < opts.IdentityThreshold {
				logger.Debug("excluding operation", "label", label, "reason", "identity")
				continue
			}
		}
		labels = append(labels, label)
	}
	return labels, nil
}

func findForRole(
	m model.ProcessModel,
	candidates []circuit.Circuit,
	role Role,
	source VectorSource,
	opts Options,
	logger *slog.Logger,
) (*RoleResult, error) {
	logger = logger.With("role", string(role))

	var selected []circuit.Circuit
	switch opts.Algorithm {
	case AlgorithmLocalSearch:
		sopts := opts.Slack
		sopts.ScoreFunc = opts.ScoreFunc
		sopts.ForceEmpty = opts.ForceEmpty
		sopts.Source = source
		if sopts.FixedSlack == 0 && sopts.SlackFrac == 0 {
			sopts.SlackFrac = 1.0
		}
		picked, err := SelectSlack(m, candidates, role, sopts, logger)
		if err != nil {
			return nil, err
		}
		selected = picked
	case AlgorithmGrasp:
		gopts := opts.Grasp
		gopts.ScoreFunc = opts.ScoreFunc
		gopts.ForceEmpty = opts.ForceEmpty
		gopts.L1Penalty = opts.L1Penalty
		gopts.OpPenalty = opts.OpPenalty
		gopts.Source = source
		res, err := SelectGrasp(m, candidates, role, gopts, logger)
		if err != nil {
			return nil, err
		}
		selected = res.Best
	default:
		return nil, &ConfigError{Message: "unknown algorithm"}
	}

	score, spectrum, err := Score(m, selected, role, ScoreConfig{
		ScoreFunc: opts.ScoreFunc,
		L1Penalty: opts.L1Penalty,
		OpPenalty: opts.OpPenalty,
		Source:    source,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("selected fiducials", "count", len(selected), "score", score.String())
	return &RoleResult{Role: role, Circuits: selected, Score: score, Spectrum: spectrum}, nil
}

func modelName(m model.ProcessModel) string {
	type named interface{ Name() string }
	if n, ok := m.(named); ok {
		return n.Name()
	}
	return ""
}
