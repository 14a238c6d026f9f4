package fidsel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmetro/fidkit/internal/circuit"
	"github.com/qmetro/fidkit/internal/model"
	"github.com/qmetro/fidkit/internal/testutil"
)

func TestSelectGrasp_FindsCompleteSet(t *testing.T) {
	m := model.SingleQubitXYI()
	fids := candidateUniverse(t, m)

	for _, role := range []Role{RolePrep, RoleMeas} {
		t.Run(string(role), func(t *testing.T) {
			res, err := SelectGrasp(m, fids, role, GraspOptions{
				Alpha:      0.1,
				Restarts:   3,
				Seed:       7,
				OpPenalty:  0.1,
				ForceEmpty: true,
			}, testutil.DiscardLogger())
			require.NoError(t, err)
			require.NotEmpty(t, res.Best)

			// Every restart produced a constructed and a refined solution.
			assert.Len(t, res.Initial, 3)
			assert.Len(t, res.Local, 3)

			complete, err := IsInformationallyComplete(m, res.Best, role)
			require.NoError(t, err)
			assert.True(t, complete)

			assert.True(t, res.Best[0].IsEmpty())
		})
	}
}

func TestSelectGrasp_Reproducible(t *testing.T) {
	m := model.SingleQubitXYI()
	fids := candidateUniverse(t, m)
	opts := GraspOptions{Alpha: 0.5, Restarts: 2, Seed: 42, ForceEmpty: true}

	first, err := SelectGrasp(m, fids, RolePrep, opts, testutil.DiscardLogger())
	require.NoError(t, err)
	second, err := SelectGrasp(m, fids, RolePrep, opts, testutil.DiscardLogger())
	require.NoError(t, err)

	assert.Equal(t, circuit.Keys(first.Best), circuit.Keys(second.Best))
	for i := range first.Local {
		assert.Equal(t, circuit.Keys(first.Local[i]), circuit.Keys(second.Local[i]))
	}
}

func TestSelectGrasp_SeedChangesRuns(t *testing.T) {
	m := model.SingleQubitXYI()
	fids := candidateUniverse(t, m)

	// Construction with full randomization must still end feasible
	// regardless of the seed.
	for seed := int64(0); seed < 3; seed++ {
		res, err := SelectGrasp(m, fids, RolePrep, GraspOptions{
			Alpha:    1,
			Restarts: 1,
			Seed:     seed,
		}, testutil.DiscardLogger())
		require.NoError(t, err)

		complete, err := IsInformationallyComplete(m, res.Best, RolePrep)
		require.NoError(t, err)
		assert.True(t, complete, "seed %d", seed)
	}
}

func TestSelectGrasp_InfeasibleUniverse(t *testing.T) {
	m := model.SingleQubitXYI()
	fids := []circuit.Circuit{circuit.New()}

	_, err := SelectGrasp(m, fids, RoleMeas, GraspOptions{}, testutil.DiscardLogger())
	require.Error(t, err)
	assert.True(t, IsInfeasible(err))
}

func TestSelectGrasp_ConfigErrors(t *testing.T) {
	m := model.SingleQubitXYI()
	fids := candidateUniverse(t, m)
	logger := testutil.DiscardLogger()

	var cfgErr *ConfigError

	_, err := SelectGrasp(m, fids, RolePrep, GraspOptions{Alpha: 1.5}, logger)
	require.ErrorAs(t, err, &cfgErr)

	_, err = SelectGrasp(m, fids, "neither", GraspOptions{}, logger)
	require.ErrorAs(t, err, &cfgErr)

	// Force-empty demands an empty circuit among the candidates.
	_, err = SelectGrasp(m, fids[1:], RolePrep, GraspOptions{ForceEmpty: true}, logger)
	require.ErrorAs(t, err, &cfgErr)
}
