package evaluate

import (
	"errors"
	"math"
	"testing"

	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		truth []int
		pred  []int
		want  Scores
	}{
		{
			name:  "perfect",
			truth: []int{0, 1, 1, 0},
			pred:  []int{0, 1, 1, 0},
			want:  Scores{1, 1, 1},
		},
		{
			name:  "all wrong",
			truth: []int{0, 0, 1, 1},
			pred:  []int{1, 1, 0, 0},
			want:  Scores{0, 0, 0},
		},
		{
			// label 0: tp=2 fp=1 fn=0 -> p=2/3 r=1 f=0.8
			// label 1: tp=1 fp=0 fn=1 -> p=1 r=1/2 f=2/3
			name:  "mixed",
			truth: []int{0, 0, 1, 1},
			pred:  []int{0, 0, 0, 1},
			want:  Scores{(2.0/3 + 1) / 2, (1 + 0.5) / 2, (0.8 + 2.0/3) / 2},
		},
		{
			// label 2 never occurs in truth: p=0 r=0 f=0 but still averaged in
			name:  "predicted label absent from truth",
			truth: []int{1, 1},
			pred:  []int{1, 2},
			want:  Scores{(1 + 0) / 2.0, (0.5 + 0) / 2, (2.0 / 3) / 2},
		},
		{
			name:  "empty",
			truth: nil,
			pred:  nil,
			want:  Scores{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.truth, tt.pred)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if !approxEqual(got.Precision, tt.want.Precision) || !approxEqual(got.Recall, tt.want.Recall) || !approxEqual(got.FMeasure, tt.want.FMeasure) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeLengthMismatch(t *testing.T) {
	if _, err := Compute([]int{1}, []int{1, 2}); !errors.Is(err, internalerr.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestScoresValues(t *testing.T) {
	p, r, f := Scores{Precision: 0.1, Recall: 0.2, FMeasure: 0.3}.Values()
	if p != 0.1 || r != 0.2 || f != 0.3 {
		t.Errorf("Values = %v %v %v", p, r, f)
	}
}

func TestPerClassOrdered(t *testing.T) {
	per, err := PerClass([]int{3, 1, 2}, []int{3, 2, 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(per) != 3 || per[0].Label != 1 || per[1].Label != 2 || per[2].Label != 3 {
		t.Fatalf("unexpected order %+v", per)
	}
	if per[1].TruePositives != 1 || per[1].FalsePositives != 1 {
		t.Errorf("label 2 counts %+v", per[1])
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
