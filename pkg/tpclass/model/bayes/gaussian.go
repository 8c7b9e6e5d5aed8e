// Package bayes provides a Gaussian naive Bayes classifier. It works on
// dense feature matrices only.
package bayes

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/model"
)

// Kind is the registry name of GaussianNB.
const Kind = "gaussian_nb"

// varSmoothing is the share of the largest feature variance added to every
// variance.
const varSmoothing = 1e-9

func init() {
	model.Register(Kind, func() model.Persistable { return New() })
}

// GaussianNB models each feature as an independent normal distribution
// per class.
type GaussianNB struct {
	classes []int
	priors  []float64   // log prior per class
	means   [][]float64 // class x feature
	vars    [][]float64 // class x feature, smoothed
}

var (
	_ model.Model       = (*GaussianNB)(nil)
	_ model.Persistable = (*GaussianNB)(nil)
)

// New returns an untrained classifier.
func New() *GaussianNB { return &GaussianNB{} }

// Classes returns the labels seen during training in ascending order.
func (g *GaussianNB) Classes() []int {
	return append([]int(nil), g.classes...)
}

func dense(X mat.Matrix) (*mat.Dense, error) {
	d, ok := X.(*mat.Dense)
	if !ok {
		return nil, fmt.Errorf("gaussian naive bayes got %T: %w", X, internalerr.ErrDenseRequired)
	}
	return d, nil
}

// Fit estimates class priors and per-feature means and variances.
func (g *GaussianNB) Fit(X mat.Matrix, y []int) error {
	d, err := dense(X)
	if err != nil {
		return err
	}
	rows, cols, err := model.CheckTrainingInput(d, y)
	if err != nil {
		return err
	}

	byClass := make(map[int][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	epsilon := varSmoothing * maxVariance(d, cols)
	if epsilon == 0 {
		epsilon = varSmoothing
	}

	g.classes = classes
	g.priors = make([]float64, len(classes))
	g.means = make([][]float64, len(classes))
	g.vars = make([][]float64, len(classes))

	for k, c := range classes {
		idx := byClass[c]
		g.priors[k] = math.Log(float64(len(idx)) / float64(rows))
		g.means[k] = make([]float64, cols)
		g.vars[k] = make([]float64, cols)

		values := make([]float64, len(idx))
		for j := 0; j < cols; j++ {
			for n, i := range idx {
				values[n] = d.At(i, j)
			}
			mean, variance := stat.PopMeanVariance(values, nil)
			g.means[k][j] = mean
			g.vars[k][j] = variance + epsilon
		}
	}
	return nil
}

func maxVariance(d *mat.Dense, cols int) float64 {
	var col []float64
	best := 0.0
	for j := 0; j < cols; j++ {
		col = mat.Col(col, j, d)
		if _, v := stat.PopMeanVariance(col, nil); v > best {
			best = v
		}
	}
	return best
}

// Predict returns the most probable class per row.
func (g *GaussianNB) Predict(X mat.Matrix) ([]int, error) {
	ll, err := g.jointLogLikelihood(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(ll))
	for i, row := range ll {
		out[i] = g.classes[floats.MaxIdx(row)]
	}
	return out, nil
}

// PredictLogProba returns per-class log posteriors, one row per sample,
// columns in Classes order.
func (g *GaussianNB) PredictLogProba(X mat.Matrix) (*mat.Dense, error) {
	ll, err := g.jointLogLikelihood(X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(ll), len(g.classes), nil)
	for i, row := range ll {
		norm := floats.LogSumExp(row)
		for k, v := range row {
			out.Set(i, k, v-norm)
		}
	}
	return out, nil
}

func (g *GaussianNB) jointLogLikelihood(X mat.Matrix) ([][]float64, error) {
	if len(g.classes) == 0 {
		return nil, fmt.Errorf("gaussian naive bayes: %w", internalerr.ErrNotTrained)
	}
	d, err := dense(X)
	if err != nil {
		return nil, err
	}
	rows, cols := d.Dims()
	if want := len(g.means[0]); cols != want {
		return nil, fmt.Errorf("gaussian naive bayes expects %d features, got %d: %w",
			want, cols, internalerr.ErrDimensionMismatch)
	}

	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		x := d.RawRowView(i)
		out[i] = make([]float64, len(g.classes))
		for k := range g.classes {
			ll := g.priors[k]
			mean, vars := g.means[k], g.vars[k]
			for j, v := range x {
				diff := v - mean[j]
				ll -= 0.5 * (math.Log(2*math.Pi*vars[j]) + diff*diff/vars[j])
			}
			out[i][k] = ll
		}
	}
	return out, nil
}

// Kind implements model.Persistable.
func (g *GaussianNB) Kind() string { return Kind }

type gaussianState struct {
	Classes []int       `json:"classes"`
	Priors  []float64   `json:"log_priors"`
	Means   [][]float64 `json:"means"`
	Vars    [][]float64 `json:"variances"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (g *GaussianNB) MarshalBinary() ([]byte, error) {
	return json.Marshal(gaussianState{
		Classes: g.classes,
		Priors:  g.priors,
		Means:   g.means,
		Vars:    g.vars,
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (g *GaussianNB) UnmarshalBinary(data []byte) error {
	var st gaussianState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode gaussian naive bayes: %w", err)
	}
	n := len(st.Classes)
	if n == 0 || len(st.Priors) != n || len(st.Means) != n || len(st.Vars) != n {
		return fmt.Errorf("gaussian naive bayes: inconsistent state: %w", internalerr.ErrInvalidInput)
	}
	for k := range st.Means {
		if len(st.Means[k]) != len(st.Means[0]) || len(st.Vars[k]) != len(st.Means[0]) {
			return fmt.Errorf("gaussian naive bayes: ragged parameters: %w", internalerr.ErrInvalidInput)
		}
	}
	g.classes, g.priors, g.means, g.vars = st.Classes, st.Priors, st.Means, st.Vars
	return nil
}
