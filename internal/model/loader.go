package model

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// document mirrors the YAML model file layout. Matrix values are
// row-major with dimension^2 entries.
type document struct {
	Name       string               `yaml:"name"`
	Dimension  int                  `yaml:"dimension"`
	Operations map[string][]float64 `yaml:"operations"`
	Preps      map[string][]float64 `yaml:"preps"`
	Povms      map[string]struct {
		Effects    map[string][]float64 `yaml:"effects"`
		Complement string               `yaml:"complement"`
	} `yaml:"povms"`
}

// LoadError reports a model-file problem with enough context to fix the
// file. It is a configuration error: never retried.
type LoadError struct {
	Path    string
	Field   string
	Message string
}

func (e *LoadError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("model file %s: %s: %s", e.Path, e.Field, e.Message)
	}
	return fmt.Sprintf("model file %s: %s", e.Path, e.Message)
}

// Load reads a YAML model file, validates it against the embedded CUE
// schema, and constructs an Explicit model.
//
// Validation happens in two layers: the CUE schema checks shape and
// types, then Go code checks the length constraints that depend on the
// declared dimension (dimension^2 matrix entries, length-dimension
// vectors, complement effect names resolving).
func Load(path string) (*Explicit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	return parse(path, raw)
}

func parse(path string, raw []byte) (*Explicit, error) {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	if err := validateSchema(generic); err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	return doc.build(path)
}

// validateSchema unifies the decoded document with #Model from the
// embedded schema, mirroring how concept specs are checked before use.
func validateSchema(generic any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Model"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}

	val := ctx.Encode(generic)
	if err := val.Err(); err != nil {
		return fmt.Errorf("cannot encode document: %w", err)
	}

	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func (d *document) build(path string) (*Explicit, error) {
	dim := d.Dimension
	wantMatrix := dim * dim

	ops := make(map[string]*mat.Dense, len(d.Operations))
	for label, values := range d.Operations {
		if len(values) != wantMatrix {
			return nil, &LoadError{
				Path:    path,
				Field:   fmt.Sprintf("operations.%s", label),
				Message: fmt.Sprintf("want %d values for a %dx%d matrix, got %d", wantMatrix, dim, dim, len(values)),
			}
		}
		ops[label] = mat.NewDense(dim, dim, append([]float64(nil), values...))
	}

	preps := make([]Prep, 0, len(d.Preps))
	for _, name := range sortedKeys(d.Preps) {
		values := d.Preps[name]
		if len(values) != dim {
			return nil, &LoadError{
				Path:    path,
				Field:   fmt.Sprintf("preps.%s", name),
				Message: fmt.Sprintf("want %d values, got %d", dim, len(values)),
			}
		}
		preps = append(preps, Prep{Name: name, Vector: mat.NewVecDense(dim, append([]float64(nil), values...))})
	}

	povmNames := make([]string, 0, len(d.Povms))
	for name := range d.Povms {
		povmNames = append(povmNames, name)
	}
	sort.Strings(povmNames)

	povms := make([]POVM, 0, len(d.Povms))
	for _, povmName := range povmNames {
		spec := d.Povms[povmName]
		if spec.Complement != "" {
			if _, ok := spec.Effects[spec.Complement]; !ok {
				return nil, &LoadError{
					Path:    path,
					Field:   fmt.Sprintf("povms.%s.complement", povmName),
					Message: fmt.Sprintf("names unknown effect %q", spec.Complement),
				}
			}
		}
		effects := make([]Effect, 0, len(spec.Effects))
		for _, effectName := range sortedKeys(spec.Effects) {
			values := spec.Effects[effectName]
			if len(values) != dim {
				return nil, &LoadError{
					Path:    path,
					Field:   fmt.Sprintf("povms.%s.effects.%s", povmName, effectName),
					Message: fmt.Sprintf("want %d values, got %d", dim, len(values)),
				}
			}
			effects = append(effects, Effect{
				Name:       effectName,
				Vector:     mat.NewVecDense(dim, append([]float64(nil), values...)),
				Complement: effectName == spec.Complement,
			})
		}
		povms = append(povms, POVM{Name: povmName, Effects: effects})
	}

	m, err := NewExplicit(d.Name, dim, ops, preps, povms)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	return m, nil
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
