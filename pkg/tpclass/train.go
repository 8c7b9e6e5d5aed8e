package tpclass

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/textpresso/tpclass/pkg/tpclass/dataset"
	"github.com/textpresso/tpclass/pkg/tpclass/evaluate"
	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/model"
)

// TrainClassifier fits m on the training partition's feature matrix,
// converted to a dense matrix when dense is set. On success m becomes the
// pipeline's model, bound to the current vocabulary snapshot.
func (c *Classifier) TrainClassifier(m model.Model, dense bool) error {
	start := time.Now()
	err := c.trainClassifier(m, dense)
	c.metrics.RecordOperation("train", start, err)
	return err
}

func (c *Classifier) trainClassifier(m model.Model, dense bool) error {
	if m == nil {
		return fmt.Errorf("train: nil model: %w", internalerr.ErrInvalidInput)
	}
	split, ok := c.state.(*dataset.Split)
	if !ok {
		return fmt.Errorf("train: %w", internalerr.ErrNotPartitioned)
	}
	if split.Training.Features == nil {
		return fmt.Errorf("train: %w", internalerr.ErrNoFeatures)
	}

	X := matrix(split.Training.Features, dense)
	if err := m.Fit(X, split.Training.Target()); err != nil {
		return fmt.Errorf("fit model: %w", err)
	}

	c.model = m
	c.trainedVocab = c.vocab

	rows, cols := X.Dims()
	c.log.Info().
		Str("model", fmt.Sprintf("%T", m)).
		Bool("dense", dense).
		Int("rows", rows).
		Int("columns", cols).
		Msg("classifier trained")
	return nil
}

// TestClassifier scores the trained model on the test partition, or on
// the training partition when onTraining is set.
func (c *Classifier) TestClassifier(onTraining, dense bool) (evaluate.Scores, error) {
	start := time.Now()
	scores, err := c.testClassifier(onTraining, dense)
	c.metrics.RecordOperation("test", start, err)
	return scores, err
}

func (c *Classifier) testClassifier(onTraining, dense bool) (evaluate.Scores, error) {
	if c.model == nil {
		return evaluate.Scores{}, fmt.Errorf("test: %w", internalerr.ErrNotTrained)
	}
	split, ok := c.state.(*dataset.Split)
	if !ok {
		return evaluate.Scores{}, fmt.Errorf("test: %w", internalerr.ErrNotPartitioned)
	}

	part, name := split.Test, "test"
	if onTraining {
		part, name = split.Training, "training"
	}
	if part.Features == nil {
		return evaluate.Scores{}, fmt.Errorf("test on %s set: %w", name, internalerr.ErrNoFeatures)
	}
	if c.vocab != c.trainedVocab {
		return evaluate.Scores{}, fmt.Errorf("test on %s set: %w", name, internalerr.ErrFeatureMismatch)
	}
	if part.Len() == 0 {
		return evaluate.Scores{}, fmt.Errorf("test on empty %s set: %w", name, internalerr.ErrNoData)
	}

	pred, err := c.model.Predict(matrix(part.Features, dense))
	if err != nil {
		return evaluate.Scores{}, fmt.Errorf("predict %s set: %w", name, err)
	}
	scores, err := evaluate.Compute(part.Target(), pred)
	if err != nil {
		return evaluate.Scores{}, err
	}

	c.log.Info().
		Str("set", name).
		Float64("precision", scores.Precision).
		Float64("recall", scores.Recall).
		Float64("f_measure", scores.FMeasure).
		Msg("classifier tested")
	return scores, nil
}

// matrix returns the form of s a model is handed.
func matrix(s *features.Sparse, dense bool) mat.Matrix {
	if dense {
		return s.ToDense()
	}
	return s
}
