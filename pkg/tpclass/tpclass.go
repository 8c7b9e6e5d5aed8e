// Package tpclass builds, trains, evaluates and applies document
// classifiers over scientific articles (PDF and Textpresso CAS files).
//
// A Classifier moves through a fixed lifecycle: documents are ingested
// per category, split into training and test partitions, turned into
// feature matrices, used to train a model, and finally scored or used to
// predict the category of new files. The whole pipeline can be saved to
// and loaded from a single SQLite file.
package tpclass

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/textpresso/tpclass/internal/logger"
	"github.com/textpresso/tpclass/internal/metrics"
	"github.com/textpresso/tpclass/pkg/tpclass/config"
	"github.com/textpresso/tpclass/pkg/tpclass/dataset"
	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/ingest"
	"github.com/textpresso/tpclass/pkg/tpclass/lexicon"
	"github.com/textpresso/tpclass/pkg/tpclass/model"
	"github.com/textpresso/tpclass/pkg/tpclass/parser"
	"github.com/textpresso/tpclass/pkg/tpclass/stoplist"
)

// Classifier is the pipeline facade. It is not safe for concurrent use.
type Classifier struct {
	parser    parser.Parser
	tokenizer *ingest.Tokenizer
	lexicon   *lexicon.Lexicon
	extractor *features.Extractor
	log       zerolog.Logger
	metrics   *metrics.Metrics
	seed      uint64
	workers   int

	state  dataset.State // nil until the first ingestion
	splits uint64        // number of splits performed; advances the shuffle seed

	vocab        *features.Vocabulary // active snapshot
	model        model.Model
	trainedVocab *features.Vocabulary // snapshot the model was fitted against
}

// Options configures a Classifier
type Options struct {
	// Parser reads document files. It is called from several goroutines
	// at once. Defaults to parser.DocumentParser.
	Parser parser.Parser
	// Tokenizer supplies the stoplist. Defaults to the English stoplist.
	// A loaded pipeline uses its saved stoplist instead.
	Tokenizer *ingest.Tokenizer
	// Lexicon is used when extraction asks for lemmatization. Defaults
	// to the built-in lemma table. A loaded pipeline uses its saved
	// lexicon instead.
	Lexicon *lexicon.Lexicon
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
	// Registerer receives the pipeline metrics. Defaults to a private
	// registry.
	Registerer prometheus.Registerer
	// Seed drives partition shuffling.
	Seed uint64
	// Workers bounds concurrent file parsing. Defaults to GOMAXPROCS.
	Workers int
}

// New creates an empty Classifier.
func New(opts Options) *Classifier {
	if opts.Parser == nil {
		opts.Parser = &parser.DocumentParser{}
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = ingest.NewTokenizer(stoplist.NewEnglish())
	}
	if opts.Lexicon == nil {
		opts.Lexicon = lexicon.New()
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	return &Classifier{
		parser:    opts.Parser,
		tokenizer: opts.Tokenizer,
		lexicon:   opts.Lexicon,
		extractor: features.NewExtractor(opts.Tokenizer, opts.Lexicon),
		log:       logger.Component(log, "classifier"),
		metrics:   metrics.NewMetrics(opts.Registerer),
		seed:      opts.Seed,
		workers:   opts.Workers,
	}
}

// NewFromConfig creates a Classifier from a loaded configuration. Fields
// already set in opts take precedence over the configuration.
func NewFromConfig(cfg *config.Config, opts Options) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	comp, err := cfg.Loader().Load()
	if err != nil {
		return nil, err
	}

	if opts.Tokenizer == nil {
		opts.Tokenizer = comp.Tokenizer
	}
	if opts.Lexicon == nil {
		opts.Lexicon = comp.Lexicon
	}
	if opts.Logger == nil {
		opts.Logger = &comp.Logger
	}
	if opts.Seed == 0 {
		opts.Seed = cfg.Split.Seed
	}
	if opts.Workers == 0 {
		opts.Workers = cfg.Workers
	}
	return New(opts), nil
}

// State returns the document state: nil before any ingestion, a
// *dataset.Dataset before splitting, a *dataset.Split afterwards.
func (c *Classifier) State() dataset.State { return c.state }

// Dataset returns the raw dataset while the pipeline is unpartitioned.
func (c *Classifier) Dataset() (*dataset.Dataset, bool) {
	ds, ok := c.state.(*dataset.Dataset)
	return ds, ok
}

// Split returns the training and test partitions once they exist.
func (c *Classifier) Split() (*dataset.Split, bool) {
	s, ok := c.state.(*dataset.Split)
	return s, ok
}

// Vocabulary returns the active vocabulary snapshot, or nil before fitting.
func (c *Classifier) Vocabulary() *features.Vocabulary { return c.vocab }

// TrainedVocabulary returns the snapshot the current model was trained
// against, or nil before training.
func (c *Classifier) TrainedVocabulary() *features.Vocabulary { return c.trainedVocab }

// Model returns the trained model, or nil.
func (c *Classifier) Model() model.Model { return c.model }

// Seed returns the partition shuffling seed.
func (c *Classifier) Seed() uint64 { return c.seed }

// setAnalysis replaces the stoplist and lexicon terms are produced with.
func (c *Classifier) setAnalysis(tok *ingest.Tokenizer, lex *lexicon.Lexicon) {
	c.tokenizer = tok
	c.lexicon = lex
	c.extractor = features.NewExtractor(tok, lex)
}

func (c *Classifier) clearFeatures() {
	if s, ok := c.state.(*dataset.Split); ok {
		s.ClearFeatures()
	}
}

func (c *Classifier) updateSizeGauges() {
	switch s := c.state.(type) {
	case *dataset.Dataset:
		c.metrics.SetDatasetSizes(s.Len(), 0, 0)
	case *dataset.Split:
		c.metrics.SetDatasetSizes(0, s.Training.Len(), s.Test.Len())
	default:
		c.metrics.SetDatasetSizes(0, 0, 0)
	}
	if c.vocab != nil {
		c.metrics.VocabularySize.Set(float64(c.vocab.Len()))
	} else {
		c.metrics.VocabularySize.Set(0)
	}
}
