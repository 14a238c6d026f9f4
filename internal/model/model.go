// Package model defines the process-model collaborator consumed by the
// fiducial selection core: operation transfer matrices, native state
// preparations, and native measurements (POVMs).
//
// The selection algorithms see models only through the ProcessModel
// interface. The concrete Explicit implementation holds dense matrices
// and is constructed either programmatically (see standard.go) or from
// a CUE-validated YAML model file (see loader.go).
package model

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/qmetro/fidkit/internal/circuit"
)

// Effect is one measurement outcome operator of a POVM, stored as a
// length-d dense vector in the model's operator basis.
//
// A POVM's effects sum to the identity; one effect may be flagged as the
// complement, meaning it is algebraically determined by the others.
// Complement effects carry no independent information and are excluded
// from scoring.
type Effect struct {
	Name       string
	Vector     *mat.VecDense
	Complement bool
}

// POVM is a named measurement: an ordered list of effects.
type POVM struct {
	Name    string
	Effects []Effect
}

// Prep is a named native state preparation vector.
type Prep struct {
	Name   string
	Vector *mat.VecDense
}

// ProcessModel is the external-collaborator contract the selection core
// depends on. Implementations must be immutable for the duration of a
// selection run: caches built from a model are never invalidated.
type ProcessModel interface {
	// Dimension returns the operator-space dimension d
	// (4 for a single qubit in the Pauli transfer matrix picture).
	Dimension() int

	// OperationLabels returns all operation labels in a stable order.
	OperationLabels() []string

	// Operation returns the dense d×d transfer matrix for a label.
	Operation(label string) (*mat.Dense, error)

	// Product composes the circuit's operation matrices in sequence.
	// The empty circuit yields the identity.
	Product(c circuit.Circuit) (*mat.Dense, error)

	// Preps returns the native state preparations in a stable order.
	Preps() []Prep

	// POVMs returns the native measurements in a stable order.
	POVMs() []POVM
}

// Explicit is a dense in-memory ProcessModel.
type Explicit struct {
	name   string
	dim    int
	ops    map[string]*mat.Dense
	labels []string // sorted
	preps  []Prep
	povms  []POVM
}

// NewExplicit builds an explicit model. Every operation matrix must be
// dim×dim, every prep and effect vector length dim; violations are
// reported as errors rather than deferred to first use.
func NewExplicit(name string, dim int, ops map[string]*mat.Dense, preps []Prep, povms []POVM) (*Explicit, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("model %q: dimension must be positive, got %d", name, dim)
	}
	for label, op := range ops {
		r, c := op.Dims()
		if r != dim || c != dim {
			return nil, fmt.Errorf("model %q: operation %q is %dx%d, want %dx%d", name, label, r, c, dim, dim)
		}
	}
	for _, p := range preps {
		if p.Vector.Len() != dim {
			return nil, fmt.Errorf("model %q: prep %q has length %d, want %d", name, p.Name, p.Vector.Len(), dim)
		}
	}
	for _, povm := range povms {
		if len(povm.Effects) == 0 {
			return nil, fmt.Errorf("model %q: povm %q has no effects", name, povm.Name)
		}
		for _, e := range povm.Effects {
			if e.Vector.Len() != dim {
				return nil, fmt.Errorf("model %q: povm %q effect %q has length %d, want %d",
					name, povm.Name, e.Name, e.Vector.Len(), dim)
			}
		}
	}

	labels := make([]string, 0, len(ops))
	for label := range ops {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	return &Explicit{
		name:   name,
		dim:    dim,
		ops:    ops,
		labels: labels,
		preps:  preps,
		povms:  povms,
	}, nil
}

// Name returns the model's display name.
func (m *Explicit) Name() string { return m.name }

// Dimension implements ProcessModel.
func (m *Explicit) Dimension() int { return m.dim }

// OperationLabels implements ProcessModel. Labels are sorted so the
// candidate universe is deterministic across runs.
func (m *Explicit) OperationLabels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

// Operation implements ProcessModel.
func (m *Explicit) Operation(label string) (*mat.Dense, error) {
	op, ok := m.ops[label]
	if !ok {
		return nil, fmt.Errorf("model %q: unknown operation label %q", m.name, label)
	}
	return op, nil
}

// Product implements ProcessModel. Operations are applied in circuit
// order: for labels [a, b] the result is B·A, so the first operation in
// the circuit acts first on a state vector.
func (m *Explicit) Product(c circuit.Circuit) (*mat.Dense, error) {
	product := Identity(m.dim)
	for _, label := range c.Labels() {
		op, err := m.Operation(label)
		if err != nil {
			return nil, fmt.Errorf("product of %s: %w", c, err)
		}
		next := mat.NewDense(m.dim, m.dim, nil)
		next.Mul(op, product)
		product = next
	}
	return product, nil
}

// Preps implements ProcessModel.
func (m *Explicit) Preps() []Prep {
	out := make([]Prep, len(m.preps))
	copy(out, m.preps)
	return out
}

// POVMs implements ProcessModel.
func (m *Explicit) POVMs() []POVM {
	out := make([]POVM, len(m.povms))
	copy(out, m.povms)
	return out
}

// Identity returns a dense d×d identity matrix.
func Identity(d int) *mat.Dense {
	id := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		id.Set(i, i, 1)
	}
	return id
}

// FrobeniusDistance returns the Frobenius-norm distance ||a-b||_F.
func FrobeniusDistance(a, b mat.Matrix) float64 {
	var diff mat.Dense
	diff.Sub(a, b)
	return mat.Norm(&diff, 2)
}
