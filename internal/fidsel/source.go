package fidsel

import (
	"gonum.org/v1/gonum/mat"

	"github.com/qmetro/fidkit/internal/circuit"
	"github.com/qmetro/fidkit/internal/model"
)

// VectorSource yields the effective vector for a (native object,
// circuit) pair. The scorer is written against this contract so call
// sites never branch on whether a cache exists.
//
// Two implementations: CachedSource reads a pre-built VectorCache and
// treats a missing pair as a cache-construction bug; DirectSource
// recomputes from the model on every call.
type VectorSource interface {
	Role() Role
	ObjectKeys() []string
	Column(objectKey string, c circuit.Circuit) (*mat.VecDense, error)
}

// CachedSource serves vectors from a pre-built cache.
type CachedSource struct {
	cache *VectorCache
}

// NewCachedSource wraps a VectorCache.
func NewCachedSource(cache *VectorCache) *CachedSource {
	return &CachedSource{cache: cache}
}

// Role implements VectorSource.
func (s *CachedSource) Role() Role { return s.cache.Role() }

// ObjectKeys implements VectorSource.
func (s *CachedSource) ObjectKeys() []string { return s.cache.ObjectKeys() }

// Column implements VectorSource. A missing pair raises CacheMissError:
// silently recomputing would mask cache-construction bugs.
func (s *CachedSource) Column(objectKey string, c circuit.Circuit) (*mat.VecDense, error) {
	v, ok := s.cache.Vector(objectKey, c.Key())
	if !ok {
		return nil, &CacheMissError{
			Role:       s.cache.Role(),
			ObjectKey:  objectKey,
			CircuitKey: c.Key(),
		}
	}
	return v, nil
}

// DirectSource recomputes effective vectors from the model.
type DirectSource struct {
	model   model.ProcessModel
	role    Role
	keys    []string
	natives map[string]*mat.VecDense
}

// NewDirectSource enumerates the model's native objects for the role.
func NewDirectSource(m model.ProcessModel, role Role) *DirectSource {
	s := &DirectSource{
		model:   m,
		role:    role,
		natives: make(map[string]*mat.VecDense),
	}
	switch role {
	case RolePrep:
		for _, prep := range m.Preps() {
			s.addNative(VectorKey(prep.Vector), prep.Vector)
		}
	case RoleMeas:
		for _, povm := range m.POVMs() {
			povmKey := povmParameterKey(povm)
			for _, effect := range povm.Effects {
				if effect.Complement {
					continue
				}
				s.addNative(povmKey+"/"+VectorKey(effect.Vector), effect.Vector)
			}
		}
	}
	return s
}

func (s *DirectSource) addNative(key string, v *mat.VecDense) {
	if _, ok := s.natives[key]; ok {
		return
	}
	s.keys = append(s.keys, key)
	s.natives[key] = v
}

// Role implements VectorSource.
func (s *DirectSource) Role() Role { return s.role }

// ObjectKeys implements VectorSource.
func (s *DirectSource) ObjectKeys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Column implements VectorSource by composing the circuit product and
// applying it to the native vector.
func (s *DirectSource) Column(objectKey string, c circuit.Circuit) (*mat.VecDense, error) {
	native, ok := s.natives[objectKey]
	if !ok {
		return nil, &CacheMissError{Role: s.role, ObjectKey: objectKey, CircuitKey: c.Key()}
	}
	transfer, err := s.model.Product(c)
	if err != nil {
		return nil, err
	}
	v := mat.NewVecDense(s.model.Dimension(), nil)
	if s.role == RolePrep {
		v.MulVec(transfer, native)
	} else {
		v.MulVec(transfer.T(), native)
	}
	return v, nil
}
