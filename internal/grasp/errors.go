package grasp

import (
	"errors"
	"fmt"
)

// ConstructionError reports a failed restart phase. Restarts are
// independent, so callers may retry a bounded number of times before
// propagating.
type ConstructionError struct {
	// Phase is "construction" or "local search".
	Phase string
	// Message describes a structural failure (empty RCL, exhausted pool).
	Message string
	// Err is the underlying scoring failure, if any.
	Err error
}

func (e *ConstructionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("grasp %s failed: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("grasp %s failed: %s", e.Phase, e.Message)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// IsConstructionError reports whether err is a restart failure,
// unwrapping as needed.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}
