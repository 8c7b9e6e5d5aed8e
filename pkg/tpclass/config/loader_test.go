package config

import (
	"bytes"
	"testing"

	"github.com/textpresso/tpclass/internal/logger"
)

func TestLoaderAllEmpty(t *testing.T) {
	loader := Loader{}

	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}

	if comp.Tokenizer == nil {
		t.Error("Should have tokenizer")
	}
	if !comp.Stoplist.IsStop("the") {
		t.Error("Default stoplist should be the English list")
	}
	if comp.Lexicon == nil || comp.Lexicon.Lemmatize("mice") != "mouse" {
		t.Error("Default lexicon should carry the built-in table")
	}
}

func TestLoaderNonExistentStoplist(t *testing.T) {
	loader := Loader{StoplistPath: "/nonexistent/stoplist.yaml"}
	if _, err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent stoplist")
	}
}

func TestLoaderNonExistentLexicon(t *testing.T) {
	loader := Loader{LexiconPath: "/nonexistent/lemmas.yaml"}
	if _, err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent lexicon")
	}
}

func TestLoaderWithFiles(t *testing.T) {
	dir := t.TempDir()
	stopPath := writeFile(t, dir, "stoplist.yaml", "terms: [cell, protein]\n")
	lexPath := writeFile(t, dir, "lemmas.yaml", `lemmas:
  - lemma: rnai
    forms: [rnais]
`)

	var buf bytes.Buffer
	loader := Loader{
		StoplistPath: stopPath,
		LexiconPath:  lexPath,
		Logging:      logger.Config{Level: "warn", Output: &buf},
	}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !comp.Stoplist.IsStop("cell") || comp.Stoplist.IsStop("the") {
		t.Error("custom stoplist should replace the English list")
	}
	if comp.Lexicon.Lemmatize("rnais") != "rnai" {
		t.Error("custom lemma not loaded")
	}
	if got := comp.Tokenizer.Tokenize("The protein binds cell membranes"); len(got) != 3 {
		t.Errorf("Tokenize = %v", got)
	}

	comp.Logger.Info().Msg("suppressed")
	comp.Logger.Warn().Msg("shown")
	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Errorf("logger level not applied: %q", buf.String())
	}
}

func TestConfigLoader(t *testing.T) {
	cfg := Default()
	cfg.Stoplist = "/a/stop.yaml"
	cfg.Logging.Caller = true
	l := cfg.Loader()
	if l.StoplistPath != "/a/stop.yaml" || !l.Logging.WithCaller || l.Logging.Level != "info" {
		t.Errorf("Loader = %+v", l)
	}
}
