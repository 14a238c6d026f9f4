package fidsel

import (
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/qmetro/fidkit/internal/circuit"
	"github.com/qmetro/fidkit/internal/model"
)

// MatrixCache memoizes the dense transfer matrix of every candidate
// circuit. Built once per candidate universe; entries are never
// invalidated (the process model is fixed for the duration of a run).
// Insertion order is preserved: the cleaning pass depends on it.
type MatrixCache struct {
	keys []string
	mats map[string]*mat.Dense
}

// BuildMatrixCache computes the transfer matrix of each circuit via the
// model. Fails only if the model rejects a circuit (propagated).
func BuildMatrixCache(m model.ProcessModel, circuits []circuit.Circuit) (*MatrixCache, error) {
	c := &MatrixCache{mats: make(map[string]*mat.Dense, len(circuits))}
	for _, ckt := range circuits {
		key := ckt.Key()
		if _, ok := c.mats[key]; ok {
			continue
		}
		p, err := m.Product(ckt)
		if err != nil {
			return nil, fmt.Errorf("build matrix cache: %w", err)
		}
		c.keys = append(c.keys, key)
		c.mats[key] = p
	}
	return c, nil
}

// Matrix returns the cached transfer matrix for a circuit key.
func (c *MatrixCache) Matrix(key string) (*mat.Dense, bool) {
	m, ok := c.mats[key]
	return m, ok
}

// Len returns the number of cached circuits.
func (c *MatrixCache) Len() int {
	return len(c.keys)
}

// Keys returns the cached circuit keys in insertion order.
func (c *MatrixCache) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// CleanOptions controls the candidate cleaning pass.
type CleanOptions struct {
	DropIdentities bool
	DropDuplicates bool
	// EqThresh is the Frobenius-distance threshold below which two
	// matrices (or a matrix and the identity) are considered equal.
	EqThresh float64
}

// Clean returns a filtered copy of the cache:
//
//   - identity removal drops circuits whose matrix is within EqThresh of
//     the identity, except the distinguished empty circuit, which is
//     always retained;
//   - duplicate removal walks the surviving keys in insertion order
//     (increasing circuit length) and keeps a circuit only if no
//     earlier-kept circuit's matrix is within EqThresh, so the shorter
//     of two equivalent circuits survives.
func (c *MatrixCache) Clean(dim int, opts CleanOptions) *MatrixCache {
	identity := model.Identity(dim)

	survivors := make([]string, 0, len(c.keys))
	for _, key := range c.keys {
		if opts.DropIdentities && key != circuit.EmptyKey {
			if model.FrobeniusDistance(c.mats[key], identity) < opts.EqThresh {
				continue
			}
		}
		survivors = append(survivors, key)
	}

	if opts.DropDuplicates {
		deduped := make([]string, 0, len(survivors))
		for _, key := range survivors {
			duplicate := false
			for _, kept := range deduped {
				if model.FrobeniusDistance(c.mats[key], c.mats[kept]) < opts.EqThresh {
					duplicate = true
					break
				}
			}
			if !duplicate {
				deduped = append(deduped, key)
			}
		}
		survivors = deduped
	}

	cleaned := &MatrixCache{
		keys: survivors,
		mats: make(map[string]*mat.Dense, len(survivors)),
	}
	for _, key := range survivors {
		cleaned.mats[key] = c.mats[key]
	}
	return cleaned
}

// FilterCircuits keeps the circuits still present in the cache,
// preserving their order.
func FilterCircuits(circuits []circuit.Circuit, cache *MatrixCache) []circuit.Circuit {
	out := make([]circuit.Circuit, 0, cache.Len())
	for _, ckt := range circuits {
		if _, ok := cache.Matrix(ckt.Key()); ok {
			out = append(out, ckt)
		}
	}
	return out
}

// vecPair keys one (native object, circuit) cache entry.
type vecPair struct {
	object  string
	circuit string
}

// VectorCache memoizes, for each (native object, circuit) pair, the
// effective vector produced by applying the circuit's transfer matrix to
// that native preparation (right action, column) or measurement effect
// (left action, row).
//
// Object keys derive from the native object's own parameter vector, so
// identical preparations or effects collapse to a single entry.
type VectorCache struct {
	role       Role
	objectKeys []string
	vecs       map[vecPair]*mat.VecDense
}

// Role returns which kind of fiducials this cache serves.
func (c *VectorCache) Role() Role { return c.role }

// ObjectKeys returns the native-object keys in insertion order.
func (c *VectorCache) ObjectKeys() []string {
	out := make([]string, len(c.objectKeys))
	copy(out, c.objectKeys)
	return out
}

// Vector returns the cached effective vector for a pair.
func (c *VectorCache) Vector(objectKey, circuitKey string) (*mat.VecDense, bool) {
	v, ok := c.vecs[vecPair{objectKey, circuitKey}]
	return v, ok
}

// Len returns the number of cached pairs.
func (c *VectorCache) Len() int { return len(c.vecs) }

// BuildPrepCache populates a preparation cache over the given circuits.
// When matrices is non-nil, transfer matrices come from it (every
// circuit must be present); otherwise they are recomputed per circuit.
func BuildPrepCache(m model.ProcessModel, circuits []circuit.Circuit, matrices *MatrixCache) (*VectorCache, error) {
	c := &VectorCache{role: RolePrep, vecs: make(map[vecPair]*mat.VecDense)}
	dim := m.Dimension()

	for _, prep := range m.Preps() {
		objKey := VectorKey(prep.Vector)
		if c.hasObject(objKey) {
			// identical preparation already cached
			continue
		}
		c.objectKeys = append(c.objectKeys, objKey)
		for _, ckt := range circuits {
			transfer, err := circuitMatrix(m, ckt, matrices)
			if err != nil {
				return nil, err
			}
			v := mat.NewVecDense(dim, nil)
			v.MulVec(transfer, prep.Vector)
			c.vecs[vecPair{objKey, ckt.Key()}] = v
		}
	}
	return c, nil
}

// BuildMeasCache populates a measurement cache over the given circuits.
// Complement effects are skipped: they are algebraically determined by
// the other effects of their POVM and would double count information.
func BuildMeasCache(m model.ProcessModel, circuits []circuit.Circuit, matrices *MatrixCache) (*VectorCache, error) {
	c := &VectorCache{role: RoleMeas, vecs: make(map[vecPair]*mat.VecDense)}
	dim := m.Dimension()

	for _, povm := range m.POVMs() {
		povmKey := povmParameterKey(povm)
		for _, effect := range povm.Effects {
			if effect.Complement {
				continue
			}
			objKey := povmKey + "/" + VectorKey(effect.Vector)
			if c.hasObject(objKey) {
				continue
			}
			c.objectKeys = append(c.objectKeys, objKey)
			for _, ckt := range circuits {
				transfer, err := circuitMatrix(m, ckt, matrices)
				if err != nil {
					return nil, err
				}
				// left action: row vector E^T * M, stored as a column
				v := mat.NewVecDense(dim, nil)
				v.MulVec(transfer.T(), effect.Vector)
				c.vecs[vecPair{objKey, ckt.Key()}] = v
			}
		}
	}
	return c, nil
}

func (c *VectorCache) hasObject(key string) bool {
	for _, k := range c.objectKeys {
		if k == key {
			return true
		}
	}
	return false
}

func circuitMatrix(m model.ProcessModel, ckt circuit.Circuit, matrices *MatrixCache) (*mat.Dense, error) {
	if matrices == nil {
		return m.Product(ckt)
	}
	transfer, ok := matrices.Matrix(ckt.Key())
	if !ok {
		return nil, fmt.Errorf("matrix cache is missing circuit %q", ckt.Key())
	}
	return transfer, nil
}

// VectorKey derives a stable bytes-like key from a parameter vector.
func VectorKey(v *mat.VecDense) string {
	buf := make([]byte, 8*v.Len())
	for i := 0; i < v.Len(); i++ {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v.AtVec(i)))
	}
	return string(buf)
}

// povmParameterKey concatenates the parameter vectors of a POVM's
// independent effects, giving the POVM its own stable identity.
func povmParameterKey(p model.POVM) string {
	key := ""
	for _, e := range p.Effects {
		if e.Complement {
			continue
		}
		key += VectorKey(e.Vector)
	}
	return key
}
