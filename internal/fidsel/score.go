package fidsel

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/qmetro/fidkit/internal/circuit"
	"github.com/qmetro/fidkit/internal/model"
	"github.com/qmetro/fidkit/internal/scoring"
)

// eigenvalueFloor is the fixed noise floor below which a Gram eigenvalue
// is treated as exactly zero.
const eigenvalueFloor = 1e-10

// ScoreConfig parameterizes composite scoring.
type ScoreConfig struct {
	// ScoreFunc selects the spectrum reduction; defaults to "all".
	ScoreFunc scoring.Func
	// L1Penalty is added to the minor score per included fiducial.
	L1Penalty float64
	// OpPenalty is added to the minor score per operation across all
	// included fiducials.
	OpPenalty float64
	// Source provides effective vectors; nil means recompute directly
	// from the model.
	Source VectorSource
}

func (cfg ScoreConfig) withDefaults(m model.ProcessModel, role Role) (ScoreConfig, error) {
	if cfg.ScoreFunc == "" {
		cfg.ScoreFunc = scoring.FuncAll
	}
	if _, err := scoring.ParseFunc(string(cfg.ScoreFunc)); err != nil {
		return cfg, &ConfigError{Message: err.Error()}
	}
	if cfg.Source == nil {
		cfg.Source = NewDirectSource(m, role)
	} else if cfg.Source.Role() != role {
		return cfg, &ConfigError{Message: fmt.Sprintf(
			"vector source serves role %q but scoring requested role %q", cfg.Source.Role(), role)}
	}
	return cfg, nil
}

// columnMatrices builds one dim × len(fids) matrix per native object,
// whose columns are the effective vectors of each fiducial.
func columnMatrices(m model.ProcessModel, fids []circuit.Circuit, source VectorSource) ([]*mat.Dense, error) {
	dim := m.Dimension()
	objects := source.ObjectKeys()
	out := make([]*mat.Dense, 0, len(objects))
	for _, objKey := range objects {
		cols := mat.NewDense(dim, max(len(fids), 1), nil)
		for i, fid := range fids {
			v, err := source.Column(objKey, fid)
			if err != nil {
				return nil, err
			}
			cols.SetCol(i, vecData(v))
		}
		out = append(out, cols)
	}
	return out, nil
}

// gramSpectrum concatenates the column matrices horizontally, forms the
// Gram matrix M·Mᵀ, and returns the absolute eigenvalues sorted
// ascending.
func gramSpectrum(dim, nFids int, arrays []*mat.Dense) ([]float64, error) {
	if nFids == 0 || len(arrays) == 0 {
		return make([]float64, dim), nil
	}

	composite := mat.NewDense(dim, nFids*len(arrays), nil)
	for k, a := range arrays {
		for j := 0; j < nFids; j++ {
			col := make([]float64, dim)
			mat.Col(col, j, a)
			composite.SetCol(k*nFids+j, col)
		}
	}

	gram := mat.NewDense(dim, dim, nil)
	gram.Mul(composite, composite.T())

	sym := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			sym.SetSym(i, j, gram.At(i, j))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return nil, fmt.Errorf("gram eigendecomposition failed to converge")
	}
	spectrum := eig.Values(nil)
	for i, ev := range spectrum {
		spectrum[i] = math.Abs(ev)
	}
	sort.Float64s(spectrum)
	return spectrum, nil
}

// Score computes the composite score of a fiducial list for a role.
//
// It returns the score, the full Gram spectrum (absolute eigenvalues,
// ascending), and an error for invalid configuration or cache misses.
// A completely rank-deficient list scores Infinite.
func Score(m model.ProcessModel, fids []circuit.Circuit, role Role, cfg ScoreConfig) (scoring.Composite, []float64, error) {
	cfg, err := cfg.withDefaults(m, role)
	if err != nil {
		return scoring.Composite{}, nil, err
	}

	arrays, err := columnMatrices(m, fids, cfg.Source)
	if err != nil {
		return scoring.Composite{}, nil, err
	}

	spectrum, err := gramSpectrum(m.Dimension(), len(fids), arrays)
	if err != nil {
		return scoring.Composite{}, nil, err
	}

	n := 0
	for _, ev := range spectrum {
		if ev > eigenvalueFloor {
			n++
		}
	}
	if n == 0 {
		return scoring.Infinite(), spectrum, nil
	}

	reduced, err := scoring.ListScore(spectrum[len(spectrum)-n:], cfg.ScoreFunc)
	if err != nil {
		return scoring.Composite{}, nil, &ConfigError{Message: err.Error()}
	}

	minor := float64(len(fids)) * reduced
	minor += cfg.L1Penalty * float64(len(fids))
	minor += cfg.OpPenalty * float64(circuit.TotalOperations(fids))

	return scoring.Composite{N: n, Minor: minor}, spectrum, nil
}

// Evaluate tests a fiducial list for informational completeness: the
// list is complete iff every Gram direction is resolved (N equals the
// model dimension). The spectrum and score are returned alongside.
func Evaluate(m model.ProcessModel, fids []circuit.Circuit, role Role, cfg ScoreConfig) (bool, []float64, scoring.Composite, error) {
	score, spectrum, err := Score(m, fids, role, cfg)
	if err != nil {
		return false, nil, scoring.Composite{}, err
	}
	return score.N == len(spectrum), spectrum, score, nil
}

// ScoreFiducialSet is the standalone scoring oracle: it computes the
// composite score of an explicit circuit list directly from the model.
func ScoreFiducialSet(m model.ProcessModel, fids []circuit.Circuit, role Role, fn scoring.Func) (scoring.Composite, []float64, error) {
	return Score(m, fids, role, ScoreConfig{ScoreFunc: fn})
}

// IsInformationallyComplete is the standalone completeness oracle.
func IsInformationallyComplete(m model.ProcessModel, fids []circuit.Circuit, role Role) (bool, error) {
	complete, _, _, err := Evaluate(m, fids, role, ScoreConfig{})
	return complete, err
}

func vecData(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
