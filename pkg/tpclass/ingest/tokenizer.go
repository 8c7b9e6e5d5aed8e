package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/textpresso/tpclass/pkg/tpclass/lexicon"
	"github.com/textpresso/tpclass/pkg/tpclass/stoplist"
)

// Tokenizer handles text tokenization and normalization
type Tokenizer struct {
	stops   *stoplist.Manager
	lexicon *lexicon.Lexicon // Optional: for lemmatization
}

// NewTokenizer creates a new tokenizer with the given stoplist.
// A nil stoplist filters nothing.
func NewTokenizer(stops *stoplist.Manager) *Tokenizer {
	if stops == nil {
		stops = stoplist.NewManager(nil)
	}
	return &Tokenizer{stops: stops}
}

// Lexicon returns the lexicon used for lemmatization, if any.
func (t *Tokenizer) Lexicon() *lexicon.Lexicon {
	return t.lexicon
}

// WithLexicon returns a tokenizer sharing the same stoplist with lex as
// its lexicon. Passing nil yields a tokenizer that does not lemmatize.
func (t *Tokenizer) WithLexicon(lex *lexicon.Lexicon) *Tokenizer {
	return &Tokenizer{stops: t.stops, lexicon: lex}
}

// Stoplist returns the stopword manager.
func (t *Tokenizer) Stoplist() *stoplist.Manager {
	return t.stops
}

// Tokenize splits text into normalized tokens, removing stopwords.
// Text is NFKC-normalized first so PDF ligatures (ﬁ, ﬂ) fold into plain letters.
// If a lexicon is set, tokens are lemmatized.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	for _, r := range norm.NFKC.String(text) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			if current.Len() > 0 {
				word := t.processToken(current.String())
				if word != "" {
					tokens = append(tokens, word)
				}
				current.Reset()
			}
		}
	}

	// Don't forget the last token
	if current.Len() > 0 {
		word := t.processToken(current.String())
		if word != "" {
			tokens = append(tokens, word)
		}
	}

	return tokens
}

// processToken applies cleaning, lemmatization, and stopword filtering.
func (t *Tokenizer) processToken(token string) string {
	word := cleanToken(token)
	if word == "" || len(word) <= 1 {
		return ""
	}

	// Pure-numeric tokens (page numbers, years, figure refs) carry no
	// class signal. Mixed tokens like "unc-86" or "daf-2" are kept.
	if isNumericOnly(word) {
		return ""
	}

	if t.lexicon != nil {
		word = t.lexicon.Lemmatize(word)
	}

	if t.stops.IsStop(word) {
		return ""
	}

	return word
}

// cleanToken strips leading/trailing hyphens and normalizes consecutive hyphens
func cleanToken(token string) string {
	token = strings.Trim(token, "-")

	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}

	return token
}

// isNumericOnly returns true if the token contains only digits and hyphens.
func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}
