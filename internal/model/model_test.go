package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/qmetro/fidkit/internal/circuit"
)

func TestSingleQubitXYI_Shape(t *testing.T) {
	m := SingleQubitXYI()

	assert.Equal(t, 4, m.Dimension())
	assert.Equal(t, []string{LabelIdentity, LabelXPi2, LabelYPi2}, m.OperationLabels())
	require.Len(t, m.Preps(), 1)
	require.Len(t, m.POVMs(), 1)

	povm := m.POVMs()[0]
	require.Len(t, povm.Effects, 2)
	assert.False(t, povm.Effects[0].Complement)
	assert.True(t, povm.Effects[1].Complement)
}

// TestProduct_Empty checks the empty circuit composes to the identity.
func TestProduct_Empty(t *testing.T) {
	m := SingleQubitXYI()

	p, err := m.Product(circuit.New())
	require.NoError(t, err)
	assert.InDelta(t, 0, FrobeniusDistance(p, Identity(4)), 1e-12)
}

// TestProduct_Composition checks operation order: the first label acts
// first, so [Gx, Gy] composes to Gy*Gx.
func TestProduct_Composition(t *testing.T) {
	m := SingleQubitXYI()

	gx, err := m.Operation(LabelXPi2)
	require.NoError(t, err)
	gy, err := m.Operation(LabelYPi2)
	require.NoError(t, err)

	want := mat.NewDense(4, 4, nil)
	want.Mul(gy, gx)

	got, err := m.Product(circuit.New(LabelXPi2, LabelYPi2))
	require.NoError(t, err)
	assert.InDelta(t, 0, FrobeniusDistance(got, want), 1e-12)
}

// TestProduct_FourXRotationsIsIdentity: four pi/2 X rotations compose to
// a full turn.
func TestProduct_FourXRotationsIsIdentity(t *testing.T) {
	m := SingleQubitXYI()

	got, err := m.Product(circuit.New(LabelXPi2, LabelXPi2, LabelXPi2, LabelXPi2))
	require.NoError(t, err)
	assert.InDelta(t, 0, FrobeniusDistance(got, Identity(4)), 1e-12)
}

func TestProduct_UnknownLabel(t *testing.T) {
	m := SingleQubitXYI()

	_, err := m.Product(circuit.New("Gnope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gnope")
}

func TestNewExplicit_DimensionMismatch(t *testing.T) {
	ops := map[string]*mat.Dense{"Gbad": mat.NewDense(2, 2, nil)}
	_, err := NewExplicit("bad", 4, ops, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gbad")
}

func TestNewExplicit_PrepLengthMismatch(t *testing.T) {
	preps := []Prep{{Name: "rho0", Vector: mat.NewVecDense(2, nil)}}
	_, err := NewExplicit("bad", 4, nil, preps, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rho0")
}

func TestNewExplicit_EmptyPOVM(t *testing.T) {
	povms := []POVM{{Name: "Mempty"}}
	_, err := NewExplicit("bad", 4, nil, nil, povms)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Mempty")
}

func TestFrobeniusDistance(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	b := mat.NewDense(2, 2, []float64{1, 0, 0, 0})
	assert.InDelta(t, 1.0, FrobeniusDistance(a, b), 1e-12)
}
