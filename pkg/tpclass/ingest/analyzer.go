package ingest

import (
	"fmt"
	"strings"
)

// Analyzer turns raw document text into the terms used as features:
// text → tokenization (+ lemmatization) → n-grams
type Analyzer struct {
	tokenizer *Tokenizer
	ngramMin  int
	ngramMax  int
}

// NewAnalyzer creates an analyzer emitting n-grams for every n in
// [ngramMin, ngramMax].
func NewAnalyzer(tokenizer *Tokenizer, ngramMin, ngramMax int) (*Analyzer, error) {
	if ngramMin < 1 || ngramMax < ngramMin {
		return nil, fmt.Errorf("invalid n-gram range (%d, %d)", ngramMin, ngramMax)
	}
	return &Analyzer{
		tokenizer: tokenizer,
		ngramMin:  ngramMin,
		ngramMax:  ngramMax,
	}, nil
}

// Analyze runs text through the tokenizer and expands the tokens to n-grams.
func (a *Analyzer) Analyze(text string) []string {
	tokens := a.tokenizer.Tokenize(text)
	return Ngrams(tokens, a.ngramMin, a.ngramMax)
}

// Ngrams returns all n-grams of tokens for n in [minN, maxN], shortest
// first, each joined by a single space.
func Ngrams(tokens []string, minN, maxN int) []string {
	if minN == 1 && maxN == 1 {
		out := make([]string, len(tokens))
		copy(out, tokens)
		return out
	}

	var out []string
	for n := minN; n <= maxN; n++ {
		if n > len(tokens) {
			break
		}
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 {
				out = append(out, tokens[i])
				continue
			}
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
