package fidsel

import (
	"log/slog"
	"math/rand"

	"github.com/qmetro/fidkit/internal/circuit"
	"github.com/qmetro/fidkit/internal/grasp"
	"github.com/qmetro/fidkit/internal/model"
	"github.com/qmetro/fidkit/internal/scoring"
)

// Default GRASP driver constants.
const (
	// DefaultAlpha is the restricted-candidate-list width.
	DefaultAlpha = 0.1
	// DefaultRestarts is the number of independent GRASP restarts.
	DefaultRestarts = 5
	// DefaultOpPenalty discourages long circuits during construction.
	DefaultOpPenalty = 0.1
	// DefaultThreshold bounds the minor score of a feasible solution.
	DefaultThreshold = 1e6
	// DefaultMaxRetries bounds retries of one failed restart.
	DefaultMaxRetries = 10
)

// GraspOptions configures the GRASP selector.
type GraspOptions struct {
	// Alpha in [0,1] controls the RCL width: 0 is pure greedy, 1 draws
	// uniformly among all candidates at the best N.
	Alpha float64

	// Restarts is the number of independent construction+search rounds;
	// 0 means DefaultRestarts.
	Restarts int

	// Seed is the base random seed. Restart r uses Seed+r, so a fixed
	// base seed reproduces the full run.
	Seed int64

	// ScoreFunc selects the spectrum reduction; defaults to "all".
	ScoreFunc scoring.Func

	// OpPenalty and L1Penalty weight the linear penalties. OpPenalty
	// applies throughout; L1Penalty applies only to the final scoring
	// pass that compares restart results, preferring smaller sets among
	// otherwise equal solutions.
	OpPenalty float64
	L1Penalty float64

	// ForceEmpty pins the empty circuit into every solution.
	ForceEmpty bool

	// Threshold is the maximum minor score of a feasible solution;
	// 0 means DefaultThreshold.
	Threshold float64

	// MaxRetries bounds retries of a failed restart; 0 means
	// DefaultMaxRetries.
	MaxRetries int

	// Source provides effective vectors; nil recomputes from the model.
	Source VectorSource
}

// GraspResult carries the best solution plus the per-restart
// intermediate solutions for diagnostics.
type GraspResult struct {
	Best    []circuit.Circuit
	Initial [][]circuit.Circuit
	Local   [][]circuit.Circuit
}

// SelectGrasp runs the GRASP metaheuristic: randomized-greedy
// construction followed by local search, repeated over independent
// restarts, returning the restart whose final-scored solution is best.
//
// Returns (nil, *InfeasibleError) when the complete candidate universe
// is not informationally complete. A restart that fails (rare numerical
// degeneracy) is retried up to MaxRetries times before the failure
// propagates.
func SelectGrasp(
	m model.ProcessModel,
	fids []circuit.Circuit,
	role Role,
	opts GraspOptions,
	logger *slog.Logger,
) (*GraspResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	if opts.Alpha < 0 || opts.Alpha > 1 {
		return nil, &ConfigError{Message: "alpha must lie in [0, 1]"}
	}
	if opts.ScoreFunc == "" {
		opts.ScoreFunc = scoring.FuncAll
	}
	if _, err := scoring.ParseFunc(string(opts.ScoreFunc)); err != nil {
		return nil, &ConfigError{Message: err.Error()}
	}
	if opts.Restarts <= 0 {
		opts.Restarts = DefaultRestarts
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Source == nil {
		opts.Source = NewDirectSource(m, role)
	}

	initialWeights := make([]int, len(fids))
	if opts.ForceEmpty {
		pinned := false
		for i, fid := range fids {
			if fid.IsEmpty() {
				initialWeights[i] = 1
				pinned = true
				break
			}
		}
		if !pinned {
			return nil, &ConfigError{Message: "force-empty requested but the candidate list has no empty circuit"}
		}
	}

	searchCfg := ScoreConfig{
		ScoreFunc: opts.ScoreFunc,
		OpPenalty: opts.OpPenalty,
		Source:    opts.Source,
	}
	finalCfg := searchCfg
	finalCfg.L1Penalty = opts.L1Penalty

	complete, spectrum, _, err := Evaluate(m, fids, role, searchCfg)
	if err != nil {
		return nil, err
	}
	if !complete {
		n := 0
		for _, ev := range spectrum {
			if ev > eigenvalueFloor {
				n++
			}
		}
		logger.Warn("complete candidate set fails completeness test; aborting search",
			"role", string(role), "candidates", len(fids))
		return nil, &InfeasibleError{Role: role, UniverseSize: len(fids), Got: n, Want: m.Dimension()}
	}
	logger.Info("complete candidate set succeeds; searching for best fiducial set",
		"role", string(role), "candidates", len(fids))

	scoreFn := func(weights []int) (scoring.Composite, error) {
		score, _, err := Score(m, selectByWeights(fids, weights), role, searchCfg)
		return score, err
	}

	feasible := scoring.Composite{N: m.Dimension(), Minor: opts.Threshold}

	result := &GraspResult{}
	var locals [][]int

	for restart := 0; restart < opts.Restarts; restart++ {
		logger.Info("starting grasp restart", "restart", restart+1, "restarts", opts.Restarts)
		rng := rand.New(rand.NewSource(opts.Seed + int64(restart)))

		var res grasp.Result
		var restartErr error
		for attempt := 0; attempt < opts.MaxRetries; attempt++ {
			memo := make(map[string]scoring.Composite)
			res, restartErr = grasp.RunRestart(
				initialWeights, scoreFn, opts.Alpha, feasible, initialWeights, rng, memo, logger)
			if restartErr == nil {
				break
			}
			logger.Warn("grasp restart attempt failed",
				"restart", restart+1, "attempt", attempt+1, "error", restartErr)
		}
		if restartErr != nil {
			return nil, restartErr
		}

		result.Initial = append(result.Initial, selectByWeights(fids, res.Initial))
		result.Local = append(result.Local, selectByWeights(fids, res.Local))
		locals = append(locals, res.Local)
		logger.Info("finished grasp restart", "restart", restart+1, "restarts", opts.Restarts)
	}

	bestIdx := 0
	var bestScore scoring.Composite
	for i, weights := range locals {
		score, _, err := Score(m, selectByWeights(fids, weights), role, finalCfg)
		if err != nil {
			return nil, err
		}
		if i == 0 || score.Less(bestScore) {
			bestIdx = i
			bestScore = score
		}
	}

	result.Best = result.Local[bestIdx]
	logger.Info("grasp finished",
		"role", string(role), "fiducials", len(result.Best), "score", bestScore.String())
	return result, nil
}

func selectByWeights(fids []circuit.Circuit, weights []int) []circuit.Circuit {
	var out []circuit.Circuit
	for i, w := range weights {
		if w == 1 {
			out = append(out, fids[i])
		}
	}
	return out
}
