package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Standard single-qubit model constants. Transfer matrices are expressed
// in the normalized Pauli basis {I, X, Y, Z}/sqrt(2), so the operator
// space has dimension 4 and state/effect vectors have length 4.
const (
	// LabelIdentity is the idle gate.
	LabelIdentity = "Gi"
	// LabelXPi2 is a pi/2 rotation about the X axis.
	LabelXPi2 = "Gxpi2"
	// LabelYPi2 is a pi/2 rotation about the Y axis.
	LabelYPi2 = "Gypi2"
)

// SingleQubitXYI builds the standard single-qubit model with operations
// {Gi, Gxpi2, Gypi2}, the |0> state preparation, and the computational
// measurement whose "1" outcome is the complement effect.
//
// This is the canonical smoke-test model: max_circuit_length 2 over
// {Gxpi2, Gypi2} already contains informationally complete fiducial
// sets for both preparation and measurement.
func SingleQubitXYI() *Explicit {
	a := 1 / math.Sqrt2

	// Pi/2 X rotation: Y -> Z, Z -> -Y.
	gx := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0, -1,
		0, 0, 1, 0,
	})
	// Pi/2 Y rotation: Z -> X, X -> -Z.
	gy := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 0, 0, 1,
		0, 0, 1, 0,
		0, -1, 0, 0,
	})

	ops := map[string]*mat.Dense{
		LabelIdentity: Identity(4),
		LabelXPi2:     gx,
		LabelYPi2:     gy,
	}

	rho0 := mat.NewVecDense(4, []float64{a, 0, 0, a})

	e0 := mat.NewVecDense(4, []float64{a, 0, 0, a})
	e1 := mat.NewVecDense(4, []float64{a, 0, 0, -a})

	preps := []Prep{{Name: "rho0", Vector: rho0}}
	povms := []POVM{{
		Name: "Mdefault",
		Effects: []Effect{
			{Name: "0", Vector: e0},
			{Name: "1", Vector: e1, Complement: true},
		},
	}}

	m, err := NewExplicit("std1Q_XYI", 4, ops, preps, povms)
	if err != nil {
		// All inputs are static; a failure here is a programming error.
		panic(err)
	}
	return m
}
