package tpclass

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/textpresso/tpclass/pkg/tpclass/config"
	"github.com/textpresso/tpclass/pkg/tpclass/dataset"
	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/model"
)

// GenerateTrainingAndTestSets partitions the documents, putting the given
// share of them in the training set. Called again, it reshuffles the union
// of both partitions. Feature matrices are dropped; the vocabulary is kept.
func (c *Classifier) GenerateTrainingAndTestSets(percentageTraining float64) error {
	start := time.Now()
	err := c.generateSets(percentageTraining)
	c.metrics.RecordOperation("split", start, err)
	return err
}

func (c *Classifier) generateSets(percentageTraining float64) error {
	rng := rand.New(rand.NewPCG(c.seed, c.splits))

	var (
		split *dataset.Split
		err   error
	)
	switch s := c.state.(type) {
	case *dataset.Dataset:
		split, err = dataset.NewSplit(s.Documents(), percentageTraining, rng)
	case *dataset.Split:
		split, err = s.Resplit(percentageTraining, rng)
	default:
		err = fmt.Errorf("split: %w", internalerr.ErrNoData)
	}
	if err != nil {
		return err
	}

	c.state = split
	c.splits++
	c.updateSizeGauges()

	c.log.Info().
		Float64("percentage_training", percentageTraining).
		Int("training", split.Training.Len()).
		Int("test", split.Test.Len()).
		Uint64("split", c.splits).
		Msg("training and test sets generated")
	return nil
}

// ExtractOptions controls ExtractFeatures.
type ExtractOptions struct {
	Config features.Config
	// FitVocabulary builds a new vocabulary from the training partition.
	FitVocabulary bool
	// TransformFeatures builds both partitions' feature matrices from the
	// active vocabulary.
	TransformFeatures bool
}

// DefaultExtractOptions fits and transforms with bag-of-words unigrams.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		Config:            features.DefaultConfig(),
		FitVocabulary:     true,
		TransformFeatures: true,
	}
}

// ExtractOptionsFromConfig fits and transforms with the configured
// extraction settings.
func ExtractOptionsFromConfig(cfg *config.Config) (ExtractOptions, error) {
	fc, err := cfg.FeatureConfig()
	if err != nil {
		return ExtractOptions{}, err
	}
	return ExtractOptions{Config: fc, FitVocabulary: true, TransformFeatures: true}, nil
}

// ExtractFeatures fits a vocabulary on the training partition and/or
// transforms both partitions into feature matrices. A transform-only call
// uses the settings the active vocabulary was fitted with.
func (c *Classifier) ExtractFeatures(opts ExtractOptions) error {
	start := time.Now()
	err := c.extractFeatures(opts)
	c.metrics.RecordOperation("extract", start, err)
	return err
}

func (c *Classifier) extractFeatures(opts ExtractOptions) error {
	split, ok := c.state.(*dataset.Split)
	if !ok {
		return fmt.Errorf("extract features: %w", internalerr.ErrNotPartitioned)
	}
	if split.Len() == 0 {
		return fmt.Errorf("extract features: %w", internalerr.ErrNoData)
	}
	if !opts.FitVocabulary && !opts.TransformFeatures {
		return fmt.Errorf("extract features: nothing to do: %w", internalerr.ErrInvalidInput)
	}

	trainingDocs := split.Training.FeatureDocs()

	if opts.FitVocabulary {
		v, err := c.extractor.Fit(opts.Config, trainingDocs)
		if err != nil {
			return fmt.Errorf("fit vocabulary: %w", err)
		}
		c.vocab = v
		split.ClearFeatures()
		c.log.Info().
			Str("tokenizer", opts.Config.Tokenizer.String()).
			Int("ngram_min", opts.Config.NgramMin).
			Int("ngram_max", opts.Config.NgramMax).
			Bool("lemmatization", opts.Config.Lemmatization).
			Int("top_n", opts.Config.TopN).
			Int("terms", v.Len()).
			Msg("vocabulary fitted")
	}

	if opts.TransformFeatures {
		if c.vocab == nil {
			return fmt.Errorf("transform features: %w", internalerr.ErrNoVocabulary)
		}
		if !opts.FitVocabulary && opts.Config != (features.Config{}) && opts.Config != c.vocab.Config() {
			c.log.Warn().
				Interface("requested", opts.Config).
				Interface("fitted", c.vocab.Config()).
				Msg("extraction settings differ from the fitted vocabulary; using the fitted settings")
		}

		v, err := c.extractor.Complete(c.vocab, trainingDocs)
		if err != nil {
			return fmt.Errorf("complete vocabulary: %w", err)
		}
		c.vocab = v

		train, err := c.extractor.Transform(v, trainingDocs)
		if err != nil {
			return fmt.Errorf("transform training set: %w", err)
		}
		test, err := c.extractor.Transform(v, split.Test.FeatureDocs())
		if err != nil {
			return fmt.Errorf("transform test set: %w", err)
		}
		split.Training.Features = train
		split.Test.Features = test

		c.log.Info().
			Int("training_rows", split.Training.Len()).
			Int("test_rows", split.Test.Len()).
			Int("columns", v.Len()).
			Int("training_nnz", train.NNZ()).
			Msg("features extracted")
	}

	c.updateSizeGauges()
	return nil
}

// RemoveFeatures drops terms from the active vocabulary and returns how
// many were removed. Unknown terms are ignored. Feature matrices are
// cleared when the vocabulary changes.
func (c *Classifier) RemoveFeatures(terms ...string) (int, error) {
	if c.vocab == nil {
		return 0, fmt.Errorf("remove features: %w", internalerr.ErrNoVocabulary)
	}

	normalized := make([]string, 0, len(terms))
	var unknown []string
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if !c.vocab.Contains(t) {
			unknown = append(unknown, t)
			continue
		}
		normalized = append(normalized, t)
	}
	if len(unknown) > 0 {
		c.log.Warn().Strs("terms", unknown).Msg("ignoring terms not in the vocabulary")
	}

	next, removed := c.vocab.Without(normalized...)
	if removed > 0 {
		c.vocab = next
		c.clearFeatures()
		c.updateSizeGauges()
		c.log.Info().Int("removed", removed).Int("terms", next.Len()).Msg("features removed")
	}
	return removed, nil
}

// AddFeatures appends terms to the active vocabulary and returns how many
// were new. Feature matrices are cleared when the vocabulary changes; the
// new terms' document frequencies are counted on the next transform.
func (c *Classifier) AddFeatures(terms ...string) (int, error) {
	if c.vocab == nil {
		return 0, fmt.Errorf("add features: %w", internalerr.ErrNoVocabulary)
	}

	next, added := c.vocab.With(terms...)
	if added > 0 {
		c.vocab = next
		c.clearFeatures()
		c.updateSizeGauges()
		c.log.Info().Int("added", added).Int("terms", next.Len()).Msg("features added")
	}
	return added, nil
}

// FeatureScore pairs a vocabulary term with its importance.
type FeatureScore struct {
	Term  string
	Score float64
}

// FeaturesWithImportance lists the active vocabulary in column order with
// the model's importance score for each term. Scores are zero when the
// model does not report importance or was trained on another vocabulary.
func (c *Classifier) FeaturesWithImportance() ([]FeatureScore, error) {
	if c.vocab == nil {
		return nil, fmt.Errorf("feature importance: %w", internalerr.ErrNoVocabulary)
	}

	out := make([]FeatureScore, c.vocab.Len())
	for i := range out {
		out[i].Term = c.vocab.Term(i)
	}

	imp, ok := c.model.(model.Importancer)
	if !ok || c.trainedVocab != c.vocab {
		return out, nil
	}
	weights := imp.FeatureImportance()
	if len(weights) != len(out) {
		c.log.Warn().Int("weights", len(weights)).Int("terms", len(out)).Msg("model importance does not match vocabulary")
		return out, nil
	}
	for i, w := range weights {
		out[i].Score = w
	}
	return out, nil
}
