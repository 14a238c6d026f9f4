package fidsel

import (
	"errors"
	"fmt"
)

// Role distinguishes preparation from measurement fiducial selection.
type Role string

const (
	// RolePrep selects circuits appended after native state preparations.
	RolePrep Role = "prep"
	// RoleMeas selects circuits prepended before native measurements.
	RoleMeas Role = "meas"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePrep, RoleMeas:
		return Role(s), nil
	default:
		return "", &ConfigError{Message: fmt.Sprintf("invalid role %q: must be %q or %q", s, RolePrep, RoleMeas)}
	}
}

// ConfigError reports an invalid option combination. Raised before any
// computation, never retried.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Message
}

// InfeasibleError reports that the complete candidate universe fails the
// informational-completeness test for a role. The caller can enlarge the
// universe (raise max circuit length, drop exclusions) and retry at a
// higher level.
type InfeasibleError struct {
	Role         Role
	UniverseSize int
	Got          int // resolved directions achieved by the full universe
	Want         int // model dimension
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf(
		"%s fiducial selection infeasible: full candidate universe (%d circuits) resolves %d of %d directions",
		e.Role, e.UniverseSize, e.Got, e.Want)
}

// IsInfeasible reports whether err is an infeasible-universe failure.
func IsInfeasible(err error) bool {
	var ie *InfeasibleError
	return errors.As(err, &ie)
}

// CacheMissError reports a (native object, circuit) pair missing from a
// cache that was declared present. This signals a cache-construction bug
// and is never silently recovered by recomputation.
type CacheMissError struct {
	Role       Role
	ObjectKey  string
	CircuitKey string
}

func (e *CacheMissError) Error() string {
	return fmt.Sprintf(
		"%s cache is missing circuit %q for a native object; every (object, circuit) pair must be populated at cache build time",
		e.Role, e.CircuitKey)
}
