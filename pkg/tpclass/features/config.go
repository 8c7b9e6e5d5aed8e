package features

import (
	"fmt"
	"strings"

	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
)

// TokenizerType selects how term occurrences are weighted.
type TokenizerType int

const (
	// BOW weights terms by raw occurrence counts (bag of words).
	BOW TokenizerType = iota
	// TFIDF weights counts by smoothed inverse document frequency and
	// L2-normalizes each row.
	TFIDF
)

func (t TokenizerType) String() string {
	switch t {
	case BOW:
		return "bow"
	case TFIDF:
		return "tfidf"
	default:
		return fmt.Sprintf("tokenizer(%d)", int(t))
	}
}

// ParseTokenizerType parses "bow" or "tfidf" (case-insensitive).
func ParseTokenizerType(s string) (TokenizerType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bow", "":
		return BOW, nil
	case "tfidf", "tf-idf":
		return TFIDF, nil
	}
	return BOW, fmt.Errorf("tokenizer type %q: %w", s, internalerr.ErrInvalidConfig)
}

// MarshalText implements encoding.TextMarshaler.
func (t TokenizerType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TokenizerType) UnmarshalText(b []byte) error {
	parsed, err := ParseTokenizerType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Config describes how documents are turned into feature vectors.
type Config struct {
	Tokenizer     TokenizerType
	NgramMin      int
	NgramMax      int
	Lemmatization bool
	TopN          int // 0 keeps every fitted term
}

// DefaultConfig returns bag-of-words unigrams without lemmatization.
func DefaultConfig() Config {
	return Config{
		Tokenizer: BOW,
		NgramMin:  1,
		NgramMax:  1,
	}
}

// Validate checks the n-gram window, weighting and cap.
func (c Config) Validate() error {
	if c.NgramMin < 1 || c.NgramMax < c.NgramMin {
		return fmt.Errorf("n-gram range (%d, %d): %w", c.NgramMin, c.NgramMax, internalerr.ErrInvalidInput)
	}
	if c.Tokenizer != BOW && c.Tokenizer != TFIDF {
		return fmt.Errorf("%s: %w", c.Tokenizer, internalerr.ErrInvalidInput)
	}
	if c.TopN < 0 {
		return fmt.Errorf("top n %d: %w", c.TopN, internalerr.ErrInvalidInput)
	}
	return nil
}

// analysisKey identifies the settings that change which terms a text
// produces. Weighting and the top-n cap do not.
func (c Config) analysisKey() string {
	return fmt.Sprintf("%d:%d:%t", c.NgramMin, c.NgramMax, c.Lemmatization)
}
