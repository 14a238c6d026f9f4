package fidsel

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/qmetro/fidkit/internal/circuit"
	"github.com/qmetro/fidkit/internal/grasp"
	"github.com/qmetro/fidkit/internal/model"
	"github.com/qmetro/fidkit/internal/scoring"
)

// Default slack-selector constants.
const (
	// DefaultForceEmptyScore is the sentinel assigned to any inclusion
	// vector that excludes the empty circuit under ForceEmpty. Large
	// enough that the search always drifts away from such vectors.
	DefaultForceEmptyScore = 1e100

	// DefaultMaxIter bounds the hill-climbing rounds.
	DefaultMaxIter = 100

	// degenerateScore replaces non-positive or infinite scalar scores so
	// that degenerate subsets compare as very bad but still finite.
	degenerateScore = 1e10

	// exhaustiveTieTolerance treats scores within this distance as exact
	// ties, broken by total operation count.
	exhaustiveTieTolerance = 1e-8
)

// SlackOptions configures the deterministic local-search selector.
type SlackOptions struct {
	// InitialWeights is the starting inclusion vector; nil starts from
	// all ones (the full candidate set).
	InitialWeights []int

	// ScoreFunc selects the spectrum reduction; defaults to "all".
	ScoreFunc scoring.Func

	// MaxIter bounds hill-climbing rounds; 0 means DefaultMaxIter.
	MaxIter int

	// Exactly one of FixedSlack (additive relaxation) or SlackFrac
	// (multiplicative relaxation) must be positive.
	FixedSlack float64
	SlackFrac  float64

	// ForceEmpty requires the empty circuit in every candidate vector.
	// Only meaningful when the candidate list's first element is the
	// empty circuit.
	ForceEmpty bool

	// ForceEmptyScore overrides the sentinel; 0 means the default.
	ForceEmptyScore float64

	// FixedNum, when positive, switches to exhaustive enumeration of all
	// subsets of exactly this size instead of hill-climbing.
	FixedNum int

	// MaxExhaustiveSets caps the FixedNum enumeration; 0 means no cap,
	// matching the historical behavior of warning without aborting.
	MaxExhaustiveSets int

	// Source provides effective vectors; nil recomputes from the model.
	Source VectorSource
}

// SelectSlack finds a locally optimal subset of the candidate fiducials.
//
// Hill-climbing walks the single-bit-flip neighborhood of the inclusion
// vector; when stuck, the acceptance threshold is relaxed by FixedSlack
// (additive) or SlackFrac (multiplicative) and only strictly smaller
// subsets are accepted under the relaxed threshold. With a fixed
// candidate ordering and initial vector the search is fully
// deterministic.
//
// Returns (nil, *InfeasibleError) when the complete candidate universe
// itself is not informationally complete.
func SelectSlack(
	m model.ProcessModel,
	fids []circuit.Circuit,
	role Role,
	opts SlackOptions,
	logger *slog.Logger,
) ([]circuit.Circuit, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if (opts.FixedSlack > 0) == (opts.SlackFrac > 0) {
		return nil, &ConfigError{Message: "exactly one of FixedSlack or SlackFrac must be specified"}
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	if opts.ScoreFunc == "" {
		opts.ScoreFunc = scoring.FuncAll
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultMaxIter
	}
	if opts.ForceEmptyScore == 0 {
		opts.ForceEmptyScore = DefaultForceEmptyScore
	}
	if opts.Source == nil {
		opts.Source = NewDirectSource(m, role)
	}

	complete, spectrum, _, err := Evaluate(m, fids, role, ScoreConfig{ScoreFunc: opts.ScoreFunc, Source: opts.Source})
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

	arrays, err := columnMatrices(m, fids, opts.Source)
	if err != nil {
		return nil, err
	}

	search := &slackSearch{
		dim:    m.Dimension(),
		fids:   fids,
		arrays: arrays,
		opts:   opts,
		memo:   make(map[string]float64),
		logger: logger,
	}

	if opts.FixedNum > 0 {
		return search.exhaustive()
	}
	return search.climb()
}

// slackSearch holds the state of one slack-selector invocation; the
// score memo table is owned here and never shared across invocations.
type slackSearch struct {
	dim    int
	fids   []circuit.Circuit
	arrays []*mat.Dense // one dim×len(fids) matrix per native object
	opts   SlackOptions
	memo   map[string]float64
	logger *slog.Logger
}

// score evaluates an inclusion vector, memoizing by vector key.
func (s *slackSearch) score(weights []int) float64 {
	key := grasp.Key(weights)
	if v, ok := s.memo[key]; ok {
		return v
	}
	v := s.computeScore(weights)
	s.memo[key] = v
	return v
}

func (s *slackSearch) computeScore(weights []int) float64 {
	if s.opts.ForceEmpty && weights[0] != 1 {
		return s.opts.ForceEmptyScore
	}

	var selected []int
	for i, w := range weights {
		if w == 1 {
			selected = append(selected, i)
		}
	}
	numFids := len(selected)
	if numFids == 0 {
		return degenerateScore
	}

	composite := mat.NewDense(s.dim, numFids*len(s.arrays), nil)
	col := make([]float64, s.dim)
	for k, a := range s.arrays {
		for j, idx := range selected {
			mat.Col(col, idx, a)
			composite.SetCol(k*numFids+j, col)
		}
	}

	gram := mat.NewDense(s.dim, s.dim, nil)
	gram.Mul(composite, composite.T())
	sym := mat.NewSymDense(s.dim, nil)
	for i := 0; i < s.dim; i++ {
		for j := i; j < s.dim; j++ {
			sym.SetSym(i, j, gram.At(i, j))
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return degenerateScore
	}

	reduced, err := scoring.ListScore(eig.Values(nil), s.opts.ScoreFunc)
	if err != nil {
		// score function was validated up front
		return degenerateScore
	}
	score := float64(numFids) * reduced
	if score <= 0 || math.IsInf(score, 0) || math.IsNaN(score) {
		return degenerateScore
	}
	return score
}

// climb is the hill-climbing main loop with slack relaxation.
func (s *slackSearch) climb() ([]circuit.Circuit, error) {
	nFids := len(s.fids)

	var weights []int
	lessWeightOnly := false
	if s.opts.InitialWeights != nil {
		if len(s.opts.InitialWeights) != nFids {
			return nil, &ConfigError{Message: fmt.Sprintf(
				"initial weights have length %d, want %d", len(s.opts.InitialWeights), nFids)}
		}
		weights = make([]int, nFids)
		for i, w := range s.opts.InitialWeights {
			if w != 0 {
				weights[i] = 1
			}
		}
	} else {
		// starting at the max-weight vector: only removals make sense
		weights = make([]int, nFids)
		for i := range weights {
			weights[i] = 1
		}
		lessWeightOnly = true
	}

	score := s.score(weights)
	l1 := sum(weights)

	for iter := 0; iter < s.opts.MaxIter; iter++ {
		s.logger.Debug("slack iteration", "iter", iter, "score", score, "fiducials", l1)

		found := false
		for _, neighbor := range grasp.Neighbors(weights, nil) {
			nScore := s.score(neighbor)
			nL1 := sum(neighbor)
			if nScore <= score && (nL1 < l1 || !lessWeightOnly) {
				weights, score, l1 = neighbor, nScore, nL1
				found = true
				s.logger.Debug("found better neighbor", "fiducials", l1, "score", score)
			}
		}

		if !found {
			// Relax the acceptance threshold. From here on only smaller
			// subsets are accepted.
			lessWeightOnly = true

			var slack float64
			if s.opts.FixedSlack > 0 {
				slack = s.opts.FixedSlack
			} else {
				slack = score * s.opts.SlackFrac
			}
			s.logger.Debug("no better neighbor; relaxing score",
				"score", score, "relaxed", score+slack)
			score += slack

			for _, neighbor := range grasp.Neighbors(weights, nil) {
				nScore := s.score(neighbor)
				nL1 := sum(neighbor)
				if nL1 < l1 && nScore < score {
					weights, score, l1 = neighbor, nScore, nL1
					found = true
					s.logger.Debug("found better neighbor under slack", "fiducials", l1, "score", score)
				}
			}

			if !found {
				s.logger.Debug("stationary point found")
				break
			}
		}
	}

	s.logger.Info("slack search finished", "score", score, "fiducials", l1)
	return s.selectCircuits(weights), nil
}

// exhaustive enumerates every inclusion vector of exactly FixedNum
// fiducials (with the empty-circuit bit pinned under ForceEmpty) and
// returns the minimum-score one. Exact ties prefer the subset with
// fewer total operations.
func (s *slackSearch) exhaustive() ([]circuit.Circuit, error) {
	nFids := len(s.fids)
	hammingWeight := s.opts.FixedNum
	numBits := nFids
	if s.opts.ForceEmpty {
		hammingWeight--
		numBits--
	}
	if hammingWeight < 0 || hammingWeight > numBits {
		return nil, &ConfigError{Message: fmt.Sprintf(
			"fixed size %d is not achievable with %d candidates", s.opts.FixedNum, nFids)}
	}

	numSets := binomial(numBits, hammingWeight)
	s.logger.Info("enumerating all fixed-size fiducial sets",
		"size", s.opts.FixedNum, "sets", numSets)
	if numSets > 1e6 {
		s.logger.Warn("fixed-size enumeration is very large; consider aborting", "sets", numSets)
	}
	if s.opts.MaxExhaustiveSets > 0 && numSets > float64(s.opts.MaxExhaustiveSets) {
		return nil, &ConfigError{Message: fmt.Sprintf(
			"fixed-size enumeration of %.0f sets exceeds the configured cap of %d", numSets, s.opts.MaxExhaustiveSets)}
	}

	bestScore := math.Inf(1)
	var bestWeights []int

	forEachCombination(numBits, hammingWeight, func(positions []int) {
		weights := make([]int, nFids)
		offset := 0
		if s.opts.ForceEmpty {
			weights[0] = 1
			offset = 1
		}
		for _, p := range positions {
			weights[p+offset] = 1
		}

		score := s.score(weights)
		switch {
		case math.Abs(score-bestScore) < exhaustiveTieTolerance:
			if s.totalOps(weights) < s.totalOps(bestWeights) {
				bestScore = score
				bestWeights = weights
				s.logger.Debug("tie broken by fewer operations", "score", score)
			}
		case score < bestScore:
			bestScore = score
			bestWeights = weights
		}
	})

	if bestWeights == nil {
		return nil, &ConfigError{Message: "fixed-size enumeration produced no candidate sets"}
	}
	s.logger.Info("exhaustive search finished", "score", bestScore, "fiducials", s.opts.FixedNum)
	return s.selectCircuits(bestWeights), nil
}

func (s *slackSearch) selectCircuits(weights []int) []circuit.Circuit {
	var out []circuit.Circuit
	for i, w := range weights {
		if w == 1 {
			out = append(out, s.fids[i])
		}
	}
	return out
}

func (s *slackSearch) totalOps(weights []int) int {
	if weights == nil {
		return math.MaxInt
	}
	total := 0
	for i, w := range weights {
		if w == 1 {
			total += s.fids[i].Len()
		}
	}
	return total
}

// forEachCombination visits every k-subset of {0..n-1} in lexicographic
// order.
func forEachCombination(n, k int, visit func(positions []int)) {
	if k == 0 {
		visit(nil)
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		visit(idx)

		// advance to the next combination
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	result := 1.0
	for i := 0; i < k; i++ {
		result *= float64(n-i) / float64(i+1)
	}
	return result
}

func sum(weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	return total
}
