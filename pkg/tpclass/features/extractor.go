package features

import (
	"fmt"
	"math"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/textpresso/tpclass/pkg/tpclass/ingest"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/lexicon"
)

const (
	defaultCacheTTL        = 30 * time.Minute
	defaultCleanupInterval = time.Hour
)

// Doc is a unit of text to featurize. Key identifies immutable content and
// enables caching of analyzed terms; an empty Key disables caching.
type Doc struct {
	Key  string
	Text string
}

// Extractor fits vocabularies and turns documents into feature matrices.
type Extractor struct {
	tokenizer  *ingest.Tokenizer
	lemmatizer *ingest.Tokenizer
	cache      *cache.Cache
}

// NewExtractor creates an extractor. tokenizer supplies the stoplist;
// lex is used when a Config asks for lemmatization (nil selects the
// built-in lexicon).
func NewExtractor(tokenizer *ingest.Tokenizer, lex *lexicon.Lexicon) *Extractor {
	if tokenizer == nil {
		tokenizer = ingest.NewTokenizer(nil)
	}
	if lex == nil {
		lex = lexicon.New()
	}
	return &Extractor{
		tokenizer:  tokenizer.WithLexicon(nil),
		lemmatizer: tokenizer.WithLexicon(lex),
		cache:      cache.New(defaultCacheTTL, defaultCleanupInterval),
	}
}

// Flush drops all cached analyses.
func (e *Extractor) Flush() {
	e.cache.Flush()
}

func (e *Extractor) analyzer(cfg Config) (*ingest.Analyzer, error) {
	tok := e.tokenizer
	if cfg.Lemmatization {
		tok = e.lemmatizer
	}
	return ingest.NewAnalyzer(tok, cfg.NgramMin, cfg.NgramMax)
}

// terms returns the analyzed terms of doc. The returned slice is shared
// with the cache and must not be modified.
func (e *Extractor) terms(cfg Config, a *ingest.Analyzer, doc Doc) []string {
	if doc.Key == "" {
		return a.Analyze(doc.Text)
	}
	key := e.cacheKey(cfg, doc.Key)
	if cached, found := e.cache.Get(key); found {
		return cached.([]string)
	}
	terms := a.Analyze(doc.Text)
	e.cache.Set(key, terms, cache.DefaultExpiration)
	return terms
}

// cacheKey covers everything that changes the terms of a document: the
// analysis settings and the current stoplist and lexicon contents.
func (e *Extractor) cacheKey(cfg Config, docKey string) string {
	var lexVersion uint64
	if cfg.Lemmatization {
		lexVersion = e.lemmatizer.Lexicon().Version()
	}
	return fmt.Sprintf("%s|%d|%d|%s", cfg.analysisKey(), e.tokenizer.Stoplist().Version(), lexVersion, docKey)
}

// Fit builds a vocabulary from docs (the training partition) under cfg.
func (e *Extractor) Fit(cfg Config, docs []Doc) (*Vocabulary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("fit vocabulary: %w", internalerr.ErrNoData)
	}
	a, err := e.analyzer(cfg)
	if err != nil {
		return nil, err
	}

	counter := newTermCounter()
	for _, d := range docs {
		counter.addDocument(e.terms(cfg, a, d))
	}

	terms := counter.selectTerms(cfg.TopN)
	df := make([]int, len(terms))
	for i, t := range terms {
		df[i] = counter.df[t]
	}
	return newVocabulary(cfg, terms, df, counter.n), nil
}

// Complete counts document frequencies for pending terms against docs
// (the training partition) and returns the completed snapshot. A vocabulary
// with nothing pending is returned unchanged.
func (e *Extractor) Complete(v *Vocabulary, docs []Doc) (*Vocabulary, error) {
	if !v.Pending() {
		return v, nil
	}
	a, err := e.analyzer(v.config)
	if err != nil {
		return nil, err
	}

	df := append([]int(nil), v.df...)
	for i := range df {
		if df[i] == pendingDF {
			df[i] = 0
		}
	}
	for _, d := range docs {
		seen := make(map[int]struct{})
		for _, t := range e.terms(v.config, a, d) {
			j, ok := v.index[t]
			if !ok || v.df[j] != pendingDF {
				continue
			}
			if _, dup := seen[j]; dup {
				continue
			}
			seen[j] = struct{}{}
			df[j]++
		}
	}
	return newVocabulary(v.config, v.Terms(), df, v.nDocs), nil
}

// Transform builds one matrix row per doc over v's columns, using the
// Config pinned to v.
func (e *Extractor) Transform(v *Vocabulary, docs []Doc) (*Sparse, error) {
	a, err := e.analyzer(v.config)
	if err != nil {
		return nil, err
	}
	b := newSparseBuilder(v.Len(), len(docs))
	for _, d := range docs {
		b.addRow(e.weigh(v, e.terms(v.config, a, d)))
	}
	return b.build(), nil
}

// TransformText featurizes a single text that is not part of any
// partition. Nothing is cached and the vocabulary is left untouched.
func (e *Extractor) TransformText(v *Vocabulary, text string) (*Sparse, error) {
	return e.Transform(v, []Doc{{Text: text}})
}

func (e *Extractor) weigh(v *Vocabulary, terms []string) map[int]float64 {
	row := make(map[int]float64)
	for _, t := range terms {
		if j, ok := v.index[t]; ok {
			row[j]++
		}
	}
	if v.config.Tokenizer != TFIDF {
		return row
	}

	var norm float64
	for j, c := range row {
		w := c * v.IDF(j)
		row[j] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for j := range row {
			row[j] /= norm
		}
	}
	return row
}
