package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeSelection parses a select command's JSON response.
func decodeSelection(t *testing.T, out string) SelectionReport {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   SelectionReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestSelect_Grasp(t *testing.T) {
	out, _, err := execute(t,
		"select", "testdata/std1q.yaml",
		"--format", "json", "--seed", "3",
	)
	require.NoError(t, err)

	report := decodeSelection(t, out)
	assert.Equal(t, "std1Q_XYI", report.Model)
	assert.Equal(t, "grasp", report.Algorithm)
	assert.Equal(t, 7, report.Candidates)

	for _, rr := range []*RoleReport{report.Prep, report.Meas} {
		require.NotNil(t, rr)
		assert.Equal(t, 4, rr.Resolved)
		assert.Equal(t, 4, rr.Dimension)
		require.NotEmpty(t, rr.Circuits)
		assert.Equal(t, "{}", rr.Circuits[0])
	}
}

func TestSelect_LocalSearch(t *testing.T) {
	out, _, err := execute(t,
		"select", "testdata/std1q.yaml",
		"--algorithm", "local_search", "--format", "json",
	)
	require.NoError(t, err)

	report := decodeSelection(t, out)
	require.NotNil(t, report.Prep)
	assert.Equal(t, 4, report.Prep.Resolved)
}

func TestSelect_PrepOnly(t *testing.T) {
	out, _, err := execute(t,
		"select", "testdata/std1q.yaml",
		"--prep-only", "--format", "json",
	)
	require.NoError(t, err)

	report := decodeSelection(t, out)
	assert.NotNil(t, report.Prep)
	assert.Nil(t, report.Meas)
}

func TestSelect_Infeasible(t *testing.T) {
	out, _, err := execute(t,
		"select", "testdata/std1q.yaml",
		"--exclude", "Gxpi2,Gypi2", "--format", "json",
	)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInfeasible, resp.Error.Code)
}

func TestSelect_BadAlgorithm(t *testing.T) {
	_, _, err := execute(t,
		"select", "testdata/std1q.yaml", "--algorithm", "annealing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSelect_RecordsRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, _, err := execute(t,
		"select", "testdata/std1q.yaml",
		"--format", "json", "--seed", "5", "--db", dbPath,
	)
	require.NoError(t, err)

	report := decodeSelection(t, out)
	require.NotEmpty(t, report.RunID)

	// The recorded run is readable back through the runs command.
	shown, _, err := execute(t,
		"runs", "show", report.RunID, "--db", dbPath, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, shown, report.RunID)
	assert.Contains(t, shown, "std1Q_XYI")
}

func TestScore_JSON(t *testing.T) {
	out, _, err := execute(t,
		"score", "testdata/std1q.yaml",
		"{}", "Gxpi2", "Gypi2", "Gxpi2:Gxpi2",
		"--role", "meas", "--format", "json",
	)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   ScoreReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Data.Resolved)
	assert.Equal(t, 4, resp.Data.Dimension)
	assert.Len(t, resp.Data.Spectrum, 4)
	assert.Greater(t, resp.Data.Minor, 0.0)
}
