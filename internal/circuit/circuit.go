// Package circuit defines the immutable circuit value type used as the
// unit of selection throughout fidkit, plus bounded enumeration of the
// candidate universe.
//
// A circuit is an ordered sequence of operation labels. The zero-length
// ("empty") circuit is a distinguished valid value: it is the identity
// under composition and is conventionally forced into every selected
// fiducial set.
//
// Circuits are immutable after construction and are identified by a
// canonical string key. Keys are NFC-normalized so that visually
// identical labels collapse to one cache entry regardless of how the
// source file encoded them.
package circuit

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// EmptyKey is the canonical key of the zero-length circuit.
const EmptyKey = "{}"

// labelSep joins operation labels in a canonical key.
const labelSep = ":"

// Circuit is an ordered sequence of operation labels.
//
// The zero value is the empty circuit. Circuit values are safe to copy
// and to use as map keys via Key().
type Circuit struct {
	labels []string
	key    string
}

// New constructs a circuit from operation labels.
//
// Labels are NFC-normalized on construction. The label slice is copied;
// callers may reuse their slice afterwards.
func New(labels ...string) Circuit {
	if len(labels) == 0 {
		return Circuit{key: EmptyKey}
	}
	normalized := make([]string, len(labels))
	for i, l := range labels {
		normalized[i] = norm.NFC.String(l)
	}
	return Circuit{
		labels: normalized,
		key:    strings.Join(normalized, labelSep),
	}
}

// Parse converts a canonical key back into a circuit.
//
// "{}" parses to the empty circuit. Labels must be non-empty; a key with
// an empty segment (e.g. "Gx::Gy") is rejected.
func Parse(key string) (Circuit, error) {
	key = strings.TrimSpace(key)
	if key == "" || key == EmptyKey {
		return Circuit{key: EmptyKey}, nil
	}
	parts := strings.Split(key, labelSep)
	for _, p := range parts {
		if p == "" {
			return Circuit{}, fmt.Errorf("invalid circuit key %q: empty label segment", key)
		}
	}
	return New(parts...), nil
}

// Labels returns a copy of the circuit's operation labels.
// The empty circuit returns nil.
func (c Circuit) Labels() []string {
	if len(c.labels) == 0 {
		return nil
	}
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Len returns the number of operations in the circuit.
func (c Circuit) Len() int {
	return len(c.labels)
}

// IsEmpty reports whether this is the zero-length circuit.
func (c Circuit) IsEmpty() bool {
	return len(c.labels) == 0
}

// Key returns the canonical cache key for the circuit.
//
// The empty circuit's key is "{}"; otherwise labels joined by ":".
// Keys are stable across runs and safe to persist.
func (c Circuit) Key() string {
	if c.key == "" {
		return EmptyKey
	}
	return c.key
}

// String implements fmt.Stringer using the canonical key.
func (c Circuit) String() string {
	return c.Key()
}
