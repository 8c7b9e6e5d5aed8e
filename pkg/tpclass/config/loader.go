package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/textpresso/tpclass/internal/logger"
	"github.com/textpresso/tpclass/pkg/tpclass/ingest"
	"github.com/textpresso/tpclass/pkg/tpclass/lexicon"
	"github.com/textpresso/tpclass/pkg/tpclass/stoplist"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	StoplistPath string
	LexiconPath  string
	Logging      logger.Config
}

// Components holds all loaded configuration components
type Components struct {
	Stoplist  *stoplist.Manager
	Lexicon   *lexicon.Lexicon
	Tokenizer *ingest.Tokenizer
	Logger    zerolog.Logger
}

// Loader returns a Loader for the files the configuration names.
func (c *Config) Loader() *Loader {
	return &Loader{
		StoplistPath: c.Stoplist,
		LexiconPath:  c.Lexicon,
		Logging: logger.Config{
			Level:      c.Logging.Level,
			Pretty:     c.Logging.Pretty,
			WithCaller: c.Logging.Caller,
		},
	}
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	if l.StoplistPath != "" {
		sl, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Stoplist = stoplist.NewManager(sl.Terms)
	} else {
		comp.Stoplist = stoplist.NewEnglish()
	}

	if l.LexiconPath != "" {
		lex, err := lexicon.LoadFromYAML(l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicon = lex
	} else {
		comp.Lexicon = lexicon.New()
	}

	comp.Tokenizer = ingest.NewTokenizer(comp.Stoplist)
	comp.Logger = logger.New(l.Logging)

	return comp, nil
}
