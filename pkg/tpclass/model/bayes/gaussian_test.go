package bayes

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/model"
)

func clusters() (*mat.Dense, []int) {
	X := mat.NewDense(6, 2, []float64{
		1.0, 0.1,
		1.2, 0.0,
		0.9, 0.2,
		0.1, 1.0,
		0.0, 1.1,
		0.2, 0.8,
	})
	return X, []int{0, 0, 0, 1, 1, 1}
}

func TestGaussianNBFitPredict(t *testing.T) {
	X, y := clusters()
	nb := New()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	pred, err := nb.Predict(X)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := range y {
		if pred[i] != y[i] {
			t.Errorf("row %d predicted %d, want %d", i, pred[i], y[i])
		}
	}

	sample := mat.NewDense(1, 2, []float64{1.1, 0.05})
	pred, _ = nb.Predict(sample)
	if pred[0] != 0 {
		t.Errorf("sample predicted %d", pred[0])
	}
}

func TestGaussianNBLogProba(t *testing.T) {
	X, y := clusters()
	nb := New()
	if err := nb.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	lp, err := nb.PredictLogProba(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		sum := math.Exp(lp.At(i, 0)) + math.Exp(lp.At(i, 1))
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d probabilities sum to %v", i, sum)
		}
	}
}

func TestGaussianNBConstantFeatures(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 0, 1, 0, 1, 0, 1, 0})
	nb := New()
	if err := nb.Fit(X, []int{0, 1, 0, 1}); err != nil {
		t.Fatal(err)
	}
	pred, err := nb.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range pred {
		if p != 0 && p != 1 {
			t.Errorf("unexpected label %d", p)
		}
	}
}

func TestGaussianNBRequiresDense(t *testing.T) {
	s, err := features.NewSparse(2, 2, []int{0, 1, 2}, []int{0, 1}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	nb := New()
	if err := nb.Fit(s, []int{0, 1}); !errors.Is(err, internalerr.ErrDenseRequired) {
		t.Errorf("expected ErrDenseRequired, got %v", err)
	}

	X, y := clusters()
	if err := nb.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if _, err := nb.Predict(s); !errors.Is(err, internalerr.ErrDenseRequired) {
		t.Errorf("expected ErrDenseRequired on predict, got %v", err)
	}
}

func TestGaussianNBErrors(t *testing.T) {
	nb := New()
	if _, err := nb.Predict(mat.NewDense(1, 2, nil)); !errors.Is(err, internalerr.ErrNotTrained) {
		t.Errorf("expected ErrNotTrained, got %v", err)
	}
	X, y := clusters()
	if err := nb.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if _, err := nb.Predict(mat.NewDense(1, 3, nil)); !errors.Is(err, internalerr.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestGaussianNBPersistence(t *testing.T) {
	X, y := clusters()
	nb := New()
	if err := nb.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	blob, err := nb.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := model.Decode(Kind, blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	pred, err := restored.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := range y {
		if pred[i] != y[i] {
			t.Errorf("row %d: restored model predicted %d", i, pred[i])
		}
	}

	if err := New().UnmarshalBinary([]byte(`{"classes":[]}`)); err == nil {
		t.Error("expected error for empty state")
	}
}
