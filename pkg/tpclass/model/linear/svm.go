// Package linear provides a one-vs-rest linear support vector machine
// trained with Pegasos stochastic sub-gradient descent. It accepts sparse
// or dense feature matrices and exposes its weights as feature importance.
package linear

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/model"
)

// Kind is the registry name of SVM.
const Kind = "linear_svm"

func init() {
	model.Register(Kind, func() model.Persistable { return New(Options{}) })
}

// Options tune training. Zero values select the defaults.
type Options struct {
	Lambda float64 // regularisation strength, default 0.01
	Epochs int     // passes over the data, default 50
	Seed   uint64  // shuffling seed
}

func (o Options) withDefaults() Options {
	if o.Lambda <= 0 {
		o.Lambda = 0.01
	}
	if o.Epochs <= 0 {
		o.Epochs = 50
	}
	return o
}

// SVM is a linear one-vs-rest classifier. The zero value is not usable;
// construct with New.
type SVM struct {
	opts    Options
	classes []int
	weights [][]float64 // one row per class, last element is the bias
}

var (
	_ model.Model       = (*SVM)(nil)
	_ model.Importancer = (*SVM)(nil)
	_ model.Persistable = (*SVM)(nil)
)

// New returns an untrained SVM.
func New(opts Options) *SVM {
	return &SVM{opts: opts.withDefaults()}
}

// Classes returns the labels seen during training in ascending order.
func (s *SVM) Classes() []int {
	return append([]int(nil), s.classes...)
}

// Fit trains one binary hinge-loss separator per class.
func (s *SVM) Fit(X mat.Matrix, y []int) error {
	rows, cols, err := model.CheckTrainingInput(X, y)
	if err != nil {
		return err
	}

	s.classes = distinct(y)
	s.weights = make([][]float64, len(s.classes))
	if len(s.classes) == 1 {
		s.weights[0] = make([]float64, cols+1)
		return nil
	}

	for k, class := range s.classes {
		rng := rand.New(rand.NewPCG(s.opts.Seed, uint64(k)))
		s.weights[k] = s.fitBinary(X, y, class, rows, cols, rng)
	}
	return nil
}

// fitBinary runs Pegasos for class versus the rest. w is kept as
// scale*v so the per-step shrink is O(1) on sparse rows.
func (s *SVM) fitBinary(X mat.Matrix, y []int, class, rows, cols int, rng *rand.Rand) []float64 {
	v := make([]float64, cols+1)
	scale := 1.0
	lambda := s.opts.Lambda

	t := 0
	for epoch := 0; epoch < s.opts.Epochs; epoch++ {
		for _, i := range rng.Perm(rows) {
			t++
			eta := 1 / (lambda * float64(t))

			target := -1.0
			if y[i] == class {
				target = 1
			}
			margin := target * scale * dotRow(X, i, v)

			scale *= 1 - eta*lambda
			if scale < 1e-9 {
				if scale > 0 {
					floats.Scale(scale, v)
				} else {
					clear(v)
				}
				scale = 1
			}

			if margin < 1 {
				step := eta * target / scale
				features.DoRowNonZero(X, i, func(j int, x float64) {
					v[j] += step * x
				})
				v[cols] += step
			}
		}
	}

	floats.Scale(scale, v)
	return v
}

// Predict returns the class whose separator scores each row highest.
func (s *SVM) Predict(X mat.Matrix) ([]int, error) {
	if len(s.classes) == 0 {
		return nil, fmt.Errorf("linear svm: %w", internalerr.ErrNotTrained)
	}
	rows, cols := X.Dims()
	if want := len(s.weights[0]) - 1; cols != want {
		return nil, fmt.Errorf("linear svm expects %d features, got %d: %w", want, cols, internalerr.ErrDimensionMismatch)
	}

	out := make([]int, rows)
	for i := range out {
		best, bestScore := 0, math.Inf(-1)
		for k, w := range s.weights {
			if score := dotRow(X, i, w); score > bestScore {
				best, bestScore = k, score
			}
		}
		out[i] = s.classes[best]
	}
	return out, nil
}

// DecisionFunction returns the raw per-class scores of each row.
func (s *SVM) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if len(s.classes) == 0 {
		return nil, fmt.Errorf("linear svm: %w", internalerr.ErrNotTrained)
	}
	rows, _ := X.Dims()
	out := mat.NewDense(rows, len(s.classes), nil)
	for i := 0; i < rows; i++ {
		for k, w := range s.weights {
			out.Set(i, k, dotRow(X, i, w))
		}
	}
	return out, nil
}

// FeatureImportance returns, per feature, the largest absolute weight any
// class separator assigns to it. Nil before training.
func (s *SVM) FeatureImportance() []float64 {
	if len(s.weights) == 0 {
		return nil
	}
	cols := len(s.weights[0]) - 1
	imp := make([]float64, cols)
	for _, w := range s.weights {
		for j := 0; j < cols; j++ {
			imp[j] = math.Max(imp[j], math.Abs(w[j]))
		}
	}
	return imp
}

// Kind implements model.Persistable.
func (s *SVM) Kind() string { return Kind }

type svmState struct {
	Lambda  float64     `json:"lambda"`
	Epochs  int         `json:"epochs"`
	Seed    uint64      `json:"seed"`
	Classes []int       `json:"classes"`
	Weights [][]float64 `json:"weights"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *SVM) MarshalBinary() ([]byte, error) {
	return json.Marshal(svmState{
		Lambda:  s.opts.Lambda,
		Epochs:  s.opts.Epochs,
		Seed:    s.opts.Seed,
		Classes: s.classes,
		Weights: s.weights,
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *SVM) UnmarshalBinary(data []byte) error {
	var st svmState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode linear svm: %w", err)
	}
	if len(st.Classes) != len(st.Weights) {
		return fmt.Errorf("linear svm: %d classes vs %d weight rows: %w",
			len(st.Classes), len(st.Weights), internalerr.ErrInvalidInput)
	}
	for _, w := range st.Weights {
		if len(w) != len(st.Weights[0]) || len(w) == 0 {
			return fmt.Errorf("linear svm: ragged weights: %w", internalerr.ErrInvalidInput)
		}
	}
	s.opts = Options{Lambda: st.Lambda, Epochs: st.Epochs, Seed: st.Seed}.withDefaults()
	s.classes = st.Classes
	s.weights = st.Weights
	return nil
}

// dotRow returns w·x_i + bias, with the bias stored as w's last element.
func dotRow(X mat.Matrix, i int, w []float64) float64 {
	sum := w[len(w)-1]
	features.DoRowNonZero(X, i, func(j int, x float64) {
		sum += w[j] * x
	})
	return sum
}

func distinct(y []int) []int {
	seen := make(map[int]struct{}, 4)
	var out []int
	for _, label := range y {
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	sort.Ints(out)
	return out
}
