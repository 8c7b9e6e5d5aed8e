package ingest

import (
	"strings"
	"testing"

	"github.com/textpresso/tpclass/pkg/tpclass/lexicon"
	"github.com/textpresso/tpclass/pkg/tpclass/stoplist"
)

func TestTokenizerBasic(t *testing.T) {
	tokenizer := NewTokenizer(stoplist.NewManager([]string{"the", "a", "and", "of"}))

	tokens := tokenizer.Tokenize("The quick brown fox jumps over the lazy dog")

	for _, tok := range tokens {
		if tok == "the" {
			t.Error("Stopword 'the' should be filtered")
		}
	}

	expected := []string{"quick", "brown", "fox", "jumps", "over", "lazy", "dog"}
	if len(tokens) != len(expected) {
		t.Fatalf("Expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i := range expected {
		if tokens[i] != expected[i] {
			t.Errorf("token %d = %q, want %q", i, tokens[i], expected[i])
		}
	}
}

func TestTokenizerNilStoplist(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tokens := tokenizer.Tokenize("the worm")
	if len(tokens) != 2 {
		t.Errorf("nil stoplist should keep every token, got %v", tokens)
	}
}

func TestTokenizerGeneNames(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tokens := tokenizer.Tokenize("Mutations in unc-86 and daf-2 (1998) --")

	want := map[string]bool{"unc-86": true, "daf-2": true}
	for _, tok := range tokens {
		delete(want, tok)
		if tok == "1998" {
			t.Error("pure numeric tokens should be dropped")
		}
	}
	if len(want) != 0 {
		t.Errorf("gene names should survive tokenization, missing %v in %v", want, tokens)
	}
}

func TestTokenizerCaseNormalization(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	for _, tok := range tokenizer.Tokenize("BERT Caenorhabditis ELEGANS") {
		if tok != strings.ToLower(tok) {
			t.Errorf("Token %s should be lowercased", tok)
		}
	}
}

func TestTokenizerLigatures(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tokens := tokenizer.Tokenize("ﬁbroblast ﬂuorescence")
	if len(tokens) != 2 || tokens[0] != "fibroblast" || tokens[1] != "fluorescence" {
		t.Errorf("ligatures should be folded, got %v", tokens)
	}
}

func TestTokenizerSingleCharacters(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tokens := tokenizer.Tokenize("a b c de")
	if len(tokens) != 1 || tokens[0] != "de" {
		t.Errorf("single characters should be dropped, got %v", tokens)
	}
}

func TestTokenizerLemmatization(t *testing.T) {
	base := NewTokenizer(stoplist.NewManager([]string{"datum"}))
	lemmatizing := base.WithLexicon(lexicon.New())

	plain := base.Tokenize("worms mice")
	if plain[0] != "worms" || plain[1] != "mice" {
		t.Errorf("base tokenizer should not lemmatize, got %v", plain)
	}

	lemmas := lemmatizing.Tokenize("worms mice")
	if lemmas[0] != "worm" || lemmas[1] != "mouse" {
		t.Errorf("lemmatizing tokenizer got %v", lemmas)
	}

	if base.Lexicon() != nil {
		t.Error("WithLexicon should not modify the receiver")
	}
}

func TestTokenizerEmpty(t *testing.T) {
	tokenizer := NewTokenizer(stoplist.NewEnglish())

	if tokens := tokenizer.Tokenize(""); len(tokens) != 0 {
		t.Errorf("empty text should produce no tokens, got %v", tokens)
	}
	if tokens := tokenizer.Tokenize("!@#$%^&*()_+=[]{}|;':\",./<>?"); len(tokens) != 0 {
		t.Errorf("special characters should produce no tokens, got %v", tokens)
	}
}
