// Package grasp implements a generic greedy randomized adaptive search
// procedure over boolean inclusion vectors.
//
// One restart has two phases: greedy-randomized construction grows a
// solution from the forced initial bits until it passes a feasibility
// threshold, drawing each addition uniformly from a restricted candidate
// list (RCL); hill-climbing local search then flips single bits while a
// strictly better neighbor exists. Restarts are independent; the caller
// owns the per-restart random generator and the score memo table.
//
// Failures are reported as explicit error values (no panics to recover
// from), so callers can retry a restart a bounded number of times.
package grasp

import (
	"log/slog"
	"math/rand"

	"github.com/qmetro/fidkit/internal/scoring"
)

// ScoreFn evaluates an inclusion vector. It must be deterministic:
// equal weight vectors yield equal scores.
type ScoreFn func(weights []int) (scoring.Composite, error)

// Result holds the two solutions produced by one restart.
type Result struct {
	// Initial is the constructed (pre-local-search) inclusion vector.
	Initial []int
	// Local is the locally optimal inclusion vector.
	Local []int
}

// Neighbors returns every inclusion vector reachable by flipping one
// bit, skipping bits pinned by forced (forced[i] == 1 means element i
// must stay included). Order is by flipped index ascending.
func Neighbors(weights, forced []int) [][]int {
	var out [][]int
	for i := range weights {
		if forced != nil && forced[i] == 1 {
			continue
		}
		neighbor := make([]int, len(weights))
		copy(neighbor, weights)
		neighbor[i] ^= 1
		out = append(out, neighbor)
	}
	return out
}

// Key renders an inclusion vector as a memo-table key.
func Key(weights []int) string {
	buf := make([]byte, len(weights))
	for i, w := range weights {
		if w == 0 {
			buf[i] = '0'
		} else {
			buf[i] = '1'
		}
	}
	return string(buf)
}

// memoScore consults the memo table before calling fn. Scores for a
// given key never change within one selector invocation, so a hit is
// always valid.
func memoScore(weights []int, fn ScoreFn, memo map[string]scoring.Composite) (scoring.Composite, error) {
	key := Key(weights)
	if s, ok := memo[key]; ok {
		return s, nil
	}
	s, err := fn(weights)
	if err != nil {
		return scoring.Composite{}, err
	}
	memo[key] = s
	return s, nil
}

// Construct runs the greedy-randomized construction phase.
//
// Starting from initial (typically all zeros, or with forced bits set),
// it repeatedly scores every single-element addition, filters the
// restricted candidate list with alpha, and draws one addition uniformly
// at random, until the current solution scores strictly better than
// feasibleThreshold. Returns a ConstructionError if the pool is
// exhausted before feasibility is reached.
func Construct(
	initial []int,
	scoreFn ScoreFn,
	alpha float64,
	feasibleThreshold scoring.Composite,
	rng *rand.Rand,
	memo map[string]scoring.Composite,
	logger *slog.Logger,
) ([]int, error) {
	soln := make([]int, len(initial))
	copy(soln, initial)

	current, err := memoScore(soln, scoreFn, memo)
	if err != nil {
		return nil, &ConstructionError{Phase: "construction", Err: err}
	}

	for !current.Less(feasibleThreshold) {
		var candidates []int
		for i, w := range soln {
			if w == 0 {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			return nil, &ConstructionError{
				Phase:   "construction",
				Message: "candidate pool exhausted before reaching feasibility",
			}
		}

		scores := make([]scoring.Composite, len(candidates))
		for j, i := range candidates {
			soln[i] = 1
			s, err := memoScore(soln, scoreFn, memo)
			soln[i] = 0
			if err != nil {
				return nil, &ConstructionError{Phase: "construction", Err: err}
			}
			scores[j] = s
		}

		rcl := scoring.FilterRCL(scores, alpha)
		if len(rcl) == 0 {
			return nil, &ConstructionError{
				Phase:   "construction",
				Message: "restricted candidate list is empty",
			}
		}

		pick := rcl[rng.Intn(len(rcl))]
		chosen := candidates[pick]
		soln[chosen] = 1
		current = scores[pick]

		logger.Debug("construction step",
			"added", chosen,
			"rcl_size", len(rcl),
			"score", current.String(),
		)
	}

	return soln, nil
}

// LocalSearch hill-climbs from weights using the single-bit-flip
// neighborhood, moving to the best strictly improving neighbor until
// none exists. Forced bits are never flipped. Deterministic for a fixed
// starting vector.
func LocalSearch(
	weights []int,
	scoreFn ScoreFn,
	forced []int,
	memo map[string]scoring.Composite,
	logger *slog.Logger,
) ([]int, error) {
	current := make([]int, len(weights))
	copy(current, weights)

	currentScore, err := memoScore(current, scoreFn, memo)
	if err != nil {
		return nil, &ConstructionError{Phase: "local search", Err: err}
	}

	for {
		var best []int
		bestScore := currentScore
		for _, neighbor := range Neighbors(current, forced) {
			s, err := memoScore(neighbor, scoreFn, memo)
			if err != nil {
				return nil, &ConstructionError{Phase: "local search", Err: err}
			}
			if s.Less(bestScore) {
				best = neighbor
				bestScore = s
			}
		}
		if best == nil {
			return current, nil
		}
		current = best
		currentScore = bestScore
		logger.Debug("local search move", "score", currentScore.String())
	}
}

// RunRestart performs one complete GRASP restart: construction followed
// by local search. The memo table is shared between phases; the caller
// decides whether to share it across restarts.
func RunRestart(
	initial []int,
	scoreFn ScoreFn,
	alpha float64,
	feasibleThreshold scoring.Composite,
	forced []int,
	rng *rand.Rand,
	memo map[string]scoring.Composite,
	logger *slog.Logger,
) (Result, error) {
	constructed, err := Construct(initial, scoreFn, alpha, feasibleThreshold, rng, memo, logger)
	if err != nil {
		return Result{}, err
	}
	local, err := LocalSearch(constructed, scoreFn, forced, memo, logger)
	if err != nil {
		return Result{}, err
	}
	return Result{Initial: constructed, Local: local}, nil
}
