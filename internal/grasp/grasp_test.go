package grasp

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmetro/fidkit/internal/scoring"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// toyScore treats bits 1 and 3 as the informative elements: N counts how
// many of them are included, Minor counts total included bits (smaller
// sets are better). Feasibility is N == 2.
func toyScore(weights []int) (scoring.Composite, error) {
	n := 0
	total := 0
	for i, w := range weights {
		if w == 0 {
			continue
		}
		total++
		if i == 1 || i == 3 {
			n++
		}
	}
	return scoring.Composite{N: n, Minor: float64(total)}, nil
}

var toyFeasible = scoring.Composite{N: 2, Minor: 1e6}

func TestNeighbors_FlipsEachBit(t *testing.T) {
	neighbors := Neighbors([]int{0, 1, 0}, nil)
	require.Len(t, neighbors, 3)
	assert.Equal(t, []int{1, 1, 0}, neighbors[0])
	assert.Equal(t, []int{0, 0, 0}, neighbors[1])
	assert.Equal(t, []int{0, 1, 1}, neighbors[2])
}

func TestNeighbors_SkipsForcedBits(t *testing.T) {
	forced := []int{1, 0, 0}
	neighbors := Neighbors([]int{1, 0, 0}, forced)
	require.Len(t, neighbors, 2)
	for _, n := range neighbors {
		assert.Equal(t, 1, n[0], "forced bit must stay set")
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "0101", Key([]int{0, 1, 0, 1}))
	assert.Equal(t, "", Key(nil))
}

func TestConstruct_ReachesFeasibility(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	memo := map[string]scoring.Composite{}

	soln, err := Construct(make([]int, 5), toyScore, 0, toyFeasible, rng, memo, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 1, soln[1])
	assert.Equal(t, 1, soln[3])

	score, err := toyScore(soln)
	require.NoError(t, err)
	assert.True(t, score.Less(toyFeasible))
}

// TestConstruct_GreedyAddsOnlyInformativeBits: with alpha 0 every step's
// RCL holds only best-N additions, so the toy landscape never picks an
// uninformative bit.
func TestConstruct_GreedyAddsOnlyInformativeBits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	memo := map[string]scoring.Composite{}

	soln, err := Construct(make([]int, 5), toyScore, 0, toyFeasible, rng, memo, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 1, 0}, soln)
}

func TestConstruct_ExhaustedPool(t *testing.T) {
	// Feasibility threshold that can never be reached: N == 3 but only
	// two informative bits exist.
	unreachable := scoring.Composite{N: 3, Minor: 1e6}
	rng := rand.New(rand.NewSource(1))
	memo := map[string]scoring.Composite{}

	_, err := Construct(make([]int, 5), toyScore, 1, unreachable, rng, memo, discardLogger())
	require.Error(t, err)
	assert.True(t, IsConstructionError(err))
}

func TestConstruct_ScoreErrorPropagates(t *testing.T) {
	boom := errors.New("singular matrix")
	failing := func(weights []int) (scoring.Composite, error) {
		return scoring.Composite{}, boom
	}
	rng := rand.New(rand.NewSource(1))
	memo := map[string]scoring.Composite{}

	_, err := Construct(make([]int, 3), failing, 0, toyFeasible, rng, memo, discardLogger())
	require.Error(t, err)
	assert.True(t, IsConstructionError(err))
	assert.ErrorIs(t, err, boom)
}

func TestLocalSearch_RemovesUselessBits(t *testing.T) {
	start := []int{1, 1, 1, 1, 1}
	memo := map[string]scoring.Composite{}

	local, err := LocalSearch(start, toyScore, nil, memo, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 1, 0}, local)
}

func TestLocalSearch_RespectsForcedBits(t *testing.T) {
	start := []int{1, 1, 0, 1, 0}
	forced := []int{1, 0, 0, 0, 0}
	memo := map[string]scoring.Composite{}

	local, err := LocalSearch(start, toyScore, forced, memo, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, local[0], "forced bit survives even though it hurts the score")
	assert.Equal(t, 1, local[1])
	assert.Equal(t, 1, local[3])
}

func TestRunRestart_Deterministic(t *testing.T) {
	run := func(seed int64) Result {
		rng := rand.New(rand.NewSource(seed))
		memo := map[string]scoring.Composite{}
		res, err := RunRestart(make([]int, 5), toyScore, 0.5, toyFeasible, nil, rng, memo, discardLogger())
		require.NoError(t, err)
		return res
	}

	first := run(42)
	second := run(42)
	assert.Equal(t, first.Initial, second.Initial)
	assert.Equal(t, first.Local, second.Local)
}

func TestRunRestart_LocalNotWorseThanInitial(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	memo := map[string]scoring.Composite{}
	res, err := RunRestart(make([]int, 5), toyScore, 1, toyFeasible, nil, rng, memo, discardLogger())
	require.NoError(t, err)

	initScore, err := toyScore(res.Initial)
	require.NoError(t, err)
	localScore, err := toyScore(res.Local)
	require.NoError(t, err)
	assert.True(t, localScore.LessOrEqual(initScore))
}
