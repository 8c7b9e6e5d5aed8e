package features

import (
	"fmt"
	"math"
	"strings"

	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
)

// pendingDF marks a term whose document frequency is not yet known.
const pendingDF = -1

// Vocabulary is an immutable mapping from term to column index, together
// with the extraction Config it was fitted under. Edits return a new
// snapshot; indices are always dense and contiguous.
type Vocabulary struct {
	config Config
	terms  []string
	index  map[string]int
	df     []int
	nDocs  int
}

// VocabularyState is the exported form of a Vocabulary used for persistence.
type VocabularyState struct {
	Config  Config
	Terms   []string
	DocFreq []int // -1 for terms added after fitting and not yet counted
	NumDocs int
}

func newVocabulary(cfg Config, terms []string, df []int, nDocs int) *Vocabulary {
	index := make(map[string]int, len(terms))
	for i, t := range terms {
		index[t] = i
	}
	return &Vocabulary{
		config: cfg,
		terms:  terms,
		index:  index,
		df:     df,
		nDocs:  nDocs,
	}
}

// NewVocabularyFromState rebuilds a vocabulary from persisted state.
func NewVocabularyFromState(s VocabularyState) (*Vocabulary, error) {
	if len(s.Terms) != len(s.DocFreq) {
		return nil, fmt.Errorf("vocabulary has %d terms but %d frequencies: %w",
			len(s.Terms), len(s.DocFreq), internalerr.ErrInvalidInput)
	}
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	terms := make([]string, len(s.Terms))
	copy(terms, s.Terms)
	df := make([]int, len(s.DocFreq))
	copy(df, s.DocFreq)

	v := newVocabulary(s.Config, terms, df, s.NumDocs)
	if len(v.index) != len(terms) {
		return nil, fmt.Errorf("vocabulary has duplicate terms: %w", internalerr.ErrInvalidInput)
	}
	return v, nil
}

// State exports the vocabulary for persistence.
func (v *Vocabulary) State() VocabularyState {
	return VocabularyState{
		Config:  v.config,
		Terms:   v.Terms(),
		DocFreq: append([]int(nil), v.df...),
		NumDocs: v.nDocs,
	}
}

// Len returns the number of terms (the feature matrix column count).
func (v *Vocabulary) Len() int { return len(v.terms) }

// Config returns the extraction settings pinned to this vocabulary.
func (v *Vocabulary) Config() Config { return v.config }

// Terms returns the terms in index order.
func (v *Vocabulary) Terms() []string {
	return append([]string(nil), v.terms...)
}

// Term returns the term at column i.
func (v *Vocabulary) Term(i int) string { return v.terms[i] }

// Index returns the column of term.
func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Contains reports whether term is in the vocabulary.
func (v *Vocabulary) Contains(term string) bool {
	_, ok := v.index[term]
	return ok
}

// Pending reports whether some terms still need their document frequency
// counted against the training documents.
func (v *Vocabulary) Pending() bool {
	for _, d := range v.df {
		if d == pendingDF {
			return true
		}
	}
	return false
}

// IDF returns the smoothed inverse document frequency of column i:
// ln((1+n)/(1+df)) + 1.
func (v *Vocabulary) IDF(i int) float64 {
	df := v.df[i]
	if df < 0 {
		df = 0
	}
	return math.Log(float64(1+v.nDocs)/float64(1+df)) + 1
}

// Without returns a snapshot lacking the given terms, re-indexed densely,
// and how many terms were actually removed. Unknown terms are ignored.
func (v *Vocabulary) Without(terms ...string) (*Vocabulary, int) {
	drop := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if v.Contains(t) {
			drop[t] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return v, 0
	}

	kept := make([]string, 0, len(v.terms)-len(drop))
	df := make([]int, 0, len(v.terms)-len(drop))
	for i, t := range v.terms {
		if _, ok := drop[t]; ok {
			continue
		}
		kept = append(kept, t)
		df = append(df, v.df[i])
	}
	return newVocabulary(v.config, kept, df, v.nDocs), len(drop)
}

// With returns a snapshot with the given terms appended after the existing
// ones, and how many were new. Terms are lowercased and trimmed; their
// document frequencies are pending until Extractor.Complete runs.
func (v *Vocabulary) With(terms ...string) (*Vocabulary, int) {
	next := v.Terms()
	df := append([]int(nil), v.df...)
	seen := make(map[string]struct{}, len(terms))

	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || v.Contains(t) {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		next = append(next, t)
		df = append(df, pendingDF)
	}
	if len(seen) == 0 {
		return v, 0
	}
	return newVocabulary(v.config, next, df, v.nDocs), len(seen)
}
