// Package model defines what the pipeline needs from a classifier: fit on
// a feature matrix, predict labels for one. Optional capabilities expose
// per-feature importance and a serialized form for persistence.
package model

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
)

// Model is a trainable classifier. X has one row per document and one
// column per vocabulary term; it is either a *features.Sparse or a
// *mat.Dense depending on what the caller asked for.
type Model interface {
	Fit(X mat.Matrix, y []int) error
	Predict(X mat.Matrix) ([]int, error)
}

// Importancer is implemented by models that can score each feature
// column after training.
type Importancer interface {
	FeatureImportance() []float64
}

// Persistable is implemented by models that can be saved with the
// pipeline. Kind must match the name the model was registered under.
type Persistable interface {
	Model
	Kind() string
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// Factory returns an empty model ready for UnmarshalBinary.
type Factory func() Persistable

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a model kind loadable. It panics on duplicate or empty
// kinds, as it is meant to be called from init.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if kind == "" || f == nil {
		panic("model: Register with empty kind or nil factory")
	}
	if _, dup := registry[kind]; dup {
		panic("model: Register called twice for kind " + kind)
	}
	registry[kind] = f
}

// New returns an empty model of the registered kind.
func New(kind string) (Persistable, error) {
	registryMu.RLock()
	f, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("kind %q: %w", kind, internalerr.ErrUnknownModel)
	}
	return f(), nil
}

// Decode rebuilds a model from its kind and MarshalBinary output.
func Decode(kind string, blob []byte) (Persistable, error) {
	m, err := New(kind)
	if err != nil {
		return nil, err
	}
	if err := m.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("decode %s model: %w", kind, err)
	}
	return m, nil
}

// Kinds lists the registered kinds in sorted order.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// CheckTrainingInput validates the shapes handed to Fit.
func CheckTrainingInput(X mat.Matrix, y []int) (rows, cols int, err error) {
	if X == nil {
		return 0, 0, fmt.Errorf("nil feature matrix: %w", internalerr.ErrInvalidInput)
	}
	rows, cols = X.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, fmt.Errorf("empty feature matrix %dx%d: %w", rows, cols, internalerr.ErrNoData)
	}
	if rows != len(y) {
		return 0, 0, fmt.Errorf("%d rows vs %d labels: %w", rows, len(y), internalerr.ErrDimensionMismatch)
	}
	return rows, cols, nil
}
