package store

import "time"

// Run is one recorded fiducial-selection invocation.
type Run struct {
	ID         string
	CreatedAt  time.Time
	ModelName  string
	Algorithm  string
	ScoreFunc  string
	MaxLength  int
	Candidates int
	Seed       int64

	// Roles holds one record per searched role, ordered prep before
	// meas when both are present.
	Roles []RoleRecord
}

// RoleRecord is the per-role outcome of a run.
type RoleRecord struct {
	Role     string
	N        int
	Minor    float64
	Circuits []string // circuit keys in selection order
}
