package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(id string) Run {
	return Run{
		ID:         id,
		CreatedAt:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		ModelName:  "std1Q_XYI",
		Algorithm:  "grasp",
		ScoreFunc:  "all",
		MaxLength:  2,
		Candidates: 7,
		Seed:       42,
		Roles: []RoleRecord{
			{
				Role:     "prep",
				N:        4,
				Minor:    28.5,
				Circuits: []string{"{}", "Gxpi2", "Gypi2", "Gxpi2:Gxpi2"},
			},
			{
				Role:     "meas",
				N:        4,
				Minor:    30.25,
				Circuits: []string{"{}", "Gxpi2", "Gypi2", "Gxpi2:Gxpi2"},
			},
		},
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestWriteRun_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := testRun("run-1")
	written, err := s.WriteRun(ctx, want)
	require.NoError(t, err)
	assert.Equal(t, want.ID, written.ID)

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteRun_AssignsIDAndTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := testRun("")
	run.CreatedAt = time.Time{}

	written, err := s.WriteRun(ctx, run)
	require.NoError(t, err)
	assert.NotEmpty(t, written.ID)
	assert.False(t, written.CreatedAt.IsZero())

	_, err = s.ReadRun(ctx, written.ID)
	require.NoError(t, err)
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := testRun("run-1")
	_, err := s.WriteRun(ctx, first)
	require.NoError(t, err)

	// Rewriting the same ID is a silent no-op, even with different
	// content.
	second := testRun("run-1")
	second.ModelName = "changed"
	_, err = s.WriteRun(ctx, second)
	require.NoError(t, err)

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, first.ModelName, got.ModelName)
	assert.Len(t, got.Roles, 2)
}

func TestReadRun_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	empty, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	older := testRun("run-old")
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := testRun("run-new")
	newer.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err = s.WriteRun(ctx, older)
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, newer)
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, "run-old", runs[1].ID)

	// Listing omits per-role detail.
	assert.Nil(t, runs[0].Roles)
}

func TestDeleteRun_Cascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.WriteRun(ctx, testRun("run-1"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteRun(ctx, "run-1"))
	_, err = s.ReadRun(ctx, "run-1")
	require.ErrorIs(t, err, ErrNotFound)

	var count int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM fiducials`).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Unknown IDs are not an error.
	require.NoError(t, s.DeleteRun(ctx, "missing"))
}
