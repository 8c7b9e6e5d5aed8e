package linear

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/model"
)

// separable returns rows where class c has a strong value in column c and
// column 3 is always empty.
func separable(classes, perClass int) (*mat.Dense, []int) {
	rows := classes * perClass
	X := mat.NewDense(rows, 4, nil)
	y := make([]int, rows)
	for i := 0; i < rows; i++ {
		c := i % classes
		y[i] = c + 10
		X.Set(i, c, 1+float64(i%3)*0.1)
		X.Set(i, (c+1)%classes, 0.1)
	}
	return X, y
}

func toSparse(t *testing.T, d *mat.Dense) *features.Sparse {
	t.Helper()
	r, c := d.Dims()
	indptr := []int{0}
	var indices []int
	var data []float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := d.At(i, j); v != 0 {
				indices = append(indices, j)
				data = append(data, v)
			}
		}
		indptr = append(indptr, len(indices))
	}
	s, err := features.NewSparse(r, c, indptr, indices, data)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSVMSeparatesClasses(t *testing.T) {
	for _, classes := range []int{2, 3} {
		X, y := separable(classes, 6)
		for name, input := range map[string]mat.Matrix{"dense": X, "sparse": toSparse(t, X)} {
			svm := New(Options{Seed: 1})
			if err := svm.Fit(input, y); err != nil {
				t.Fatalf("%d classes %s: Fit: %v", classes, name, err)
			}
			pred, err := svm.Predict(input)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			for i := range y {
				if pred[i] != y[i] {
					t.Errorf("%d classes %s: row %d predicted %d, want %d", classes, name, i, pred[i], y[i])
				}
			}
		}
	}
}

func TestSVMSparseAndDenseAgree(t *testing.T) {
	X, y := separable(3, 5)
	a, b := New(Options{Seed: 4}), New(Options{Seed: 4})
	if err := a.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(toSparse(t, X), y); err != nil {
		t.Fatal(err)
	}
	ia, ib := a.FeatureImportance(), b.FeatureImportance()
	for j := range ia {
		if diff := ia[j] - ib[j]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("importance %d differs: %v vs %v", j, ia[j], ib[j])
		}
	}
}

func TestSVMImportance(t *testing.T) {
	X, y := separable(2, 8)
	svm := New(Options{})
	if svm.FeatureImportance() != nil {
		t.Error("expected nil importance before training")
	}
	if err := svm.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	imp := svm.FeatureImportance()
	if len(imp) != 4 {
		t.Fatalf("expected 4 importances, got %d", len(imp))
	}
	if imp[3] != 0 {
		t.Errorf("unused column has importance %v", imp[3])
	}
	if imp[0] <= imp[3] || imp[1] <= imp[3] {
		t.Errorf("informative columns not ranked above unused: %v", imp)
	}
}

func TestSVMSingleClass(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	svm := New(Options{})
	if err := svm.Fit(X, []int{5, 5}); err != nil {
		t.Fatal(err)
	}
	pred, err := svm.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if pred[0] != 5 || pred[1] != 5 {
		t.Errorf("pred = %v", pred)
	}
}

func TestSVMErrors(t *testing.T) {
	svm := New(Options{})
	if _, err := svm.Predict(mat.NewDense(1, 2, nil)); !errors.Is(err, internalerr.ErrNotTrained) {
		t.Errorf("expected ErrNotTrained, got %v", err)
	}
	X, y := separable(2, 2)
	if err := svm.Fit(X, y[:1]); !errors.Is(err, internalerr.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if err := svm.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if _, err := svm.Predict(mat.NewDense(1, 7, nil)); !errors.Is(err, internalerr.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSVMPersistence(t *testing.T) {
	X, y := separable(3, 4)
	svm := New(Options{Seed: 9})
	if err := svm.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	blob, err := svm.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := model.Decode(Kind, blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want, _ := svm.Predict(X)
	got, err := restored.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: restored %d, original %d", i, got[i], want[i])
		}
	}

	if err := New(Options{}).UnmarshalBinary([]byte(`{"classes":[1],"weights":[]}`)); err == nil {
		t.Error("expected error for inconsistent state")
	}
}

func TestSVMDecisionFunction(t *testing.T) {
	X, y := separable(2, 4)
	svm := New(Options{})
	if err := svm.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	scores, err := svm.DecisionFunction(X)
	if err != nil {
		t.Fatal(err)
	}
	r, c := scores.Dims()
	if r != 8 || c != 2 {
		t.Errorf("dims = %dx%d", r, c)
	}
}
