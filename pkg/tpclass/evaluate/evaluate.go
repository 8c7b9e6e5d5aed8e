// Package evaluate scores predicted labels against the truth.
package evaluate

import (
	"fmt"
	"sort"

	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
)

// Scores is the precision / recall / F-measure triple reported for a
// partition. Values are macro averages over the labels involved.
type Scores struct {
	Precision float64
	Recall    float64
	FMeasure  float64
}

// Values returns the triple in (precision, recall, F-measure) order.
func (s Scores) Values() (float64, float64, float64) {
	return s.Precision, s.Recall, s.FMeasure
}

func (s Scores) String() string {
	return fmt.Sprintf("precision=%.4f recall=%.4f f1=%.4f", s.Precision, s.Recall, s.FMeasure)
}

// ClassScores holds the per-label counts and scores behind a Scores value.
type ClassScores struct {
	Label          int
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Precision      float64
	Recall         float64
	FMeasure       float64
}

// Compute returns the macro-averaged scores of pred against truth. A
// label's precision, recall or F-measure is zero when its denominator is.
func Compute(truth, pred []int) (Scores, error) {
	per, err := PerClass(truth, pred)
	if err != nil {
		return Scores{}, err
	}
	if len(per) == 0 {
		return Scores{}, nil
	}

	var s Scores
	for _, c := range per {
		s.Precision += c.Precision
		s.Recall += c.Recall
		s.FMeasure += c.FMeasure
	}
	n := float64(len(per))
	s.Precision /= n
	s.Recall /= n
	s.FMeasure /= n
	return s, nil
}

// PerClass returns scores for every label in truth ∪ pred, ordered by label.
func PerClass(truth, pred []int) ([]ClassScores, error) {
	if len(truth) != len(pred) {
		return nil, fmt.Errorf("%d labels vs %d predictions: %w",
			len(truth), len(pred), internalerr.ErrDimensionMismatch)
	}

	counts := make(map[int]*ClassScores)
	get := func(label int) *ClassScores {
		c, ok := counts[label]
		if !ok {
			c = &ClassScores{Label: label}
			counts[label] = c
		}
		return c
	}

	for i := range truth {
		if truth[i] == pred[i] {
			get(truth[i]).TruePositives++
			continue
		}
		get(pred[i]).FalsePositives++
		get(truth[i]).FalseNegatives++
	}

	out := make([]ClassScores, 0, len(counts))
	for _, c := range counts {
		c.Precision = ratio(c.TruePositives, c.TruePositives+c.FalsePositives)
		c.Recall = ratio(c.TruePositives, c.TruePositives+c.FalseNegatives)
		if c.Precision+c.Recall > 0 {
			c.FMeasure = 2 * c.Precision * c.Recall / (c.Precision + c.Recall)
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
