package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports a run ID absent from the store.
var ErrNotFound = errors.New("run not found")

// ReadRun returns a run with its role results and fiducials.
// Fiducials are ordered deterministically by position; roles are
// ordered prep before meas.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, model_name, algorithm, score_func, max_length, candidates, seed
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}

	run.Roles, err = s.readRoles(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns all runs, newest first, without their fiducials.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, model_name, algorithm, score_func, max_length, candidates, seed
		FROM runs
		ORDER BY created_at DESC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func (s *Store) readRoles(ctx context.Context, runID string) ([]RoleRecord, error) {
	// prep sorts after meas alphabetically; order by the role's
	// semantic position instead.
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, n, minor
		FROM role_results
		WHERE run_id = ?
		ORDER BY CASE role WHEN 'prep' THEN 0 ELSE 1 END
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query role results: %w", err)
	}
	defer rows.Close()

	var roles []RoleRecord
	for rows.Next() {
		var rec RoleRecord
		if err := rows.Scan(&rec.Role, &rec.N, &rec.Minor); err != nil {
			return nil, fmt.Errorf("scan role result: %w", err)
		}
		roles = append(roles, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role results: %w", err)
	}

	for i := range roles {
		roles[i].Circuits, err = s.readFiducials(ctx, runID, roles[i].Role)
		if err != nil {
			return nil, err
		}
	}
	return roles, nil
}

func (s *Store) readFiducials(ctx context.Context, runID, role string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT circuit
		FROM fiducials
		WHERE run_id = ? AND role = ?
		ORDER BY position ASC
	`, runID, role)
	if err != nil {
		return nil, fmt.Errorf("query fiducials: %w", err)
	}
	defer rows.Close()

	var circuits []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan fiducial: %w", err)
		}
		circuits = append(circuits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fiducials: %w", err)
	}
	return circuits, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var createdAt string
	if err := row.Scan(
		&run.ID, &createdAt, &run.ModelName, &run.Algorithm,
		&run.ScoreFunc, &run.MaxLength, &run.Candidates, &run.Seed,
	); err != nil {
		return Run{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = ts
	return run, nil
}
