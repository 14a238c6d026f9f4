package scoring

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestComposite_Ordering covers the spectrum-ranking scenario: with
// dimension 4 and score function "all", full-rank spectra always beat a
// rank-3 spectrum, and [2,2,2,2] (minor 4*4*0.5 = 8) beats [1,1,1,1]
// (minor 4*4 = 16).
func TestComposite_Ordering(t *testing.T) {
	fullOnes := Composite{N: 4, Minor: 16}  // spectrum [1,1,1,1], 4 fiducials
	fullTwos := Composite{N: 4, Minor: 8}   // spectrum [2,2,2,2], 4 fiducials
	rankThree := Composite{N: 3, Minor: 12} // spectrum [1,1,1,0], 4 fiducials

	assert.True(t, fullTwos.Less(fullOnes))
	assert.True(t, fullOnes.Less(rankThree))
	assert.True(t, fullTwos.Less(rankThree))
	assert.False(t, rankThree.Less(fullOnes))

	scores := []Composite{rankThree, fullOnes, fullTwos}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Less(scores[j]) })
	assert.Equal(t, []Composite{fullTwos, fullOnes, rankThree}, scores)
}

func TestComposite_LessOrEqual(t *testing.T) {
	a := Composite{N: 4, Minor: 8}
	b := Composite{N: 4, Minor: 8}
	assert.True(t, a.LessOrEqual(b))
	assert.True(t, b.LessOrEqual(a))
	assert.False(t, a.Less(b))
}

func TestComposite_Infinite(t *testing.T) {
	inf := Infinite()
	assert.Equal(t, 0, inf.N)
	assert.True(t, math.IsInf(inf.Minor, 1))
	assert.True(t, Composite{N: 1, Minor: 1e50}.Less(inf))
}

func TestParseFunc(t *testing.T) {
	fn, err := ParseFunc("all")
	require.NoError(t, err)
	assert.Equal(t, FuncAll, fn)

	fn, err = ParseFunc("worst")
	require.NoError(t, err)
	assert.Equal(t, FuncWorst, fn)

	_, err = ParseFunc("median")
	require.Error(t, err)
}

func TestListScore_All(t *testing.T) {
	got, err := ListScore([]float64{1, 2, 4}, FuncAll)
	require.NoError(t, err)
	assert.InDelta(t, 1.75, got, 1e-12)
}

func TestListScore_Worst(t *testing.T) {
	got, err := ListScore([]float64{1, 2, 4}, FuncWorst)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)
}

func TestListScore_Empty(t *testing.T) {
	got, err := ListScore(nil, FuncAll)
	require.NoError(t, err)
	assert.True(t, math.IsInf(got, 1))
}

func TestListScore_InvalidFunc(t *testing.T) {
	_, err := ListScore([]float64{1}, Func("bogus"))
	require.Error(t, err)
}

func TestFilterRCL_AlphaZeroIsGreedy(t *testing.T) {
	scores := []Composite{
		{N: 4, Minor: 10},
		{N: 4, Minor: 5},
		{N: 4, Minor: 20},
	}
	assert.Equal(t, []int{1}, FilterRCL(scores, 0))
}

func TestFilterRCL_AlphaOneAdmitsAllAtBestN(t *testing.T) {
	scores := []Composite{
		{N: 4, Minor: 10},
		{N: 3, Minor: 1}, // lower N: never eligible
		{N: 4, Minor: 20},
	}
	assert.Equal(t, []int{0, 2}, FilterRCL(scores, 1))
}

func TestFilterRCL_Band(t *testing.T) {
	scores := []Composite{
		{N: 2, Minor: 0},
		{N: 2, Minor: 4},
		{N: 2, Minor: 10},
	}
	// threshold = 0 + 0.5*(10-0) = 5
	assert.Equal(t, []int{0, 1}, FilterRCL(scores, 0.5))
}

func TestFilterRCL_Empty(t *testing.T) {
	assert.Nil(t, FilterRCL(nil, 0.5))
}

func TestFilterRCL_ClampsAlpha(t *testing.T) {
	scores := []Composite{{N: 1, Minor: 1}, {N: 1, Minor: 2}}
	assert.Equal(t, []int{0}, FilterRCL(scores, -3))
	assert.Equal(t, []int{0, 1}, FilterRCL(scores, 7))
}
