package tpclass

import (
	"context"
	"fmt"
	"time"

	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/parser"
)

// FilePrediction is the outcome for one file of a batch.
type FilePrediction struct {
	Path  string
	Label int
	OK    bool  // false when the file could not be parsed
	Err   error // parse error when !OK
}

// BatchPrediction holds per-file outcomes in lexical path order.
type BatchPrediction struct {
	Files []FilePrediction
}

// AllSucceeded reports whether every file got a label.
func (b *BatchPrediction) AllSucceeded() bool {
	for _, f := range b.Files {
		if !f.OK {
			return false
		}
	}
	return true
}

// AnySucceeded reports whether at least one file got a label.
func (b *BatchPrediction) AnySucceeded() bool {
	for _, f := range b.Files {
		if f.OK {
			return true
		}
	}
	return false
}

// Labels returns the predicted labels, parallel to Flags. Entries for
// failed files are zero.
func (b *BatchPrediction) Labels() []int {
	out := make([]int, len(b.Files))
	for i, f := range b.Files {
		out[i] = f.Label
	}
	return out
}

// Flags returns the per-file success flags, parallel to Labels.
func (b *BatchPrediction) Flags() []bool {
	out := make([]bool, len(b.Files))
	for i, f := range b.Files {
		out[i] = f.OK
	}
	return out
}

// PredictFile classifies one file with the trained model. ok is false when
// the file cannot be parsed; err is reserved for unmet preconditions such
// as a missing model.
func (c *Classifier) PredictFile(path string, fileType parser.FileType, dense bool) (label int, ok bool, err error) {
	start := time.Now()
	defer func() { c.metrics.RecordOperation("predict", start, err) }()

	if c.model == nil {
		return 0, false, fmt.Errorf("predict: %w", internalerr.ErrNotTrained)
	}

	text, perr := c.parser.Parse(path, fileType)
	if perr != nil {
		c.log.Warn().Err(perr).Str("path", path).Msg("cannot parse file for prediction")
		c.metrics.RecordPrediction(false)
		return 0, false, nil
	}

	labels, err := c.predictTexts([]string{text}, dense)
	if err != nil {
		return 0, false, err
	}
	c.metrics.RecordPrediction(true)
	c.log.Debug().Str("path", path).Int("label", labels[0]).Msg("file classified")
	return labels[0], true, nil
}

// PredictFiles classifies every file of the given type directly inside
// dir (subdirectories are not descended).
func (c *Classifier) PredictFiles(ctx context.Context, dir string, fileType parser.FileType, dense bool) (_ *BatchPrediction, err error) {
	start := time.Now()
	defer func() { c.metrics.RecordOperation("predict_batch", start, err) }()

	if c.model == nil {
		return nil, fmt.Errorf("predict: %w", internalerr.ErrNotTrained)
	}
	if _, err := parser.ParseFileType(string(fileType)); err != nil {
		return nil, err
	}

	files, err := parser.ListFiles(dir, fileType, false)
	if err != nil {
		return nil, err
	}
	results, err := c.parseFiles(ctx, files, fileType)
	if err != nil {
		return nil, err
	}

	batch := &BatchPrediction{Files: make([]FilePrediction, len(files))}
	var (
		texts []string
		rows  []int
	)
	for i, res := range results {
		batch.Files[i] = FilePrediction{Path: files[i], Err: res.err}
		if res.err != nil {
			c.log.Warn().Err(res.err).Str("path", files[i]).Msg("cannot parse file for prediction")
			c.metrics.RecordPrediction(false)
			continue
		}
		texts = append(texts, res.text)
		rows = append(rows, i)
	}

	if len(texts) > 0 {
		labels, err := c.predictTexts(texts, dense)
		if err != nil {
			return nil, err
		}
		for k, i := range rows {
			batch.Files[i].Label = labels[k]
			batch.Files[i].OK = true
			c.metrics.RecordPrediction(true)
		}
	}

	c.log.Info().
		Str("dir", dir).
		Int("files", len(files)).
		Int("classified", len(texts)).
		Msg("batch prediction finished")
	return batch, nil
}

// predictTexts featurizes texts against the trained vocabulary and runs
// the model on them.
func (c *Classifier) predictTexts(texts []string, dense bool) ([]int, error) {
	docs := make([]features.Doc, len(texts))
	for i, t := range texts {
		docs[i] = features.Doc{Text: t}
	}
	X, err := c.extractor.Transform(c.trainedVocab, docs)
	if err != nil {
		return nil, fmt.Errorf("featurize: %w", err)
	}
	labels, err := c.model.Predict(matrix(X, dense))
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(labels) != len(texts) {
		return nil, fmt.Errorf("model returned %d labels for %d documents: %w",
			len(labels), len(texts), internalerr.ErrDimensionMismatch)
	}
	return labels, nil
}
