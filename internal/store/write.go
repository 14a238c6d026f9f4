package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WriteRun inserts a run with its role results and fiducials in one
// transaction. Uses ON CONFLICT(id) DO NOTHING for idempotency -
// rewriting an existing run ID is silently ignored.
//
// A zero ID is assigned a fresh UUID; a zero CreatedAt is stamped with
// the current UTC time. The (possibly updated) run is returned.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, created_at, model_name, algorithm, score_func, max_length, candidates, seed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
		run.ModelName,
		run.Algorithm,
		run.ScoreFunc,
		run.MaxLength,
		run.Candidates,
		run.Seed,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	// A conflicting ID means the run was already recorded; child rows
	// must not be re-inserted with different content.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return run, tx.Commit()
	}

	for _, role := range run.Roles {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO role_results (run_id, role, n, minor)
			VALUES (?, ?, ?, ?)
		`, run.ID, role.Role, role.N, role.Minor)
		if err != nil {
			return Run{}, fmt.Errorf("write role result: %w", err)
		}

		for pos, circuit := range role.Circuits {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO fiducials (run_id, role, position, circuit)
				VALUES (?, ?, ?, ?)
			`, run.ID, role.Role, pos, circuit)
			if err != nil {
				return Run{}, fmt.Errorf("write fiducial: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	return run, nil
}

// DeleteRun removes a run and, via foreign keys, its role results and
// fiducials. Deleting an unknown ID is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
