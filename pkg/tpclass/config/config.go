// Package config loads the YAML pipeline configuration and the stoplist
// and lexicon files it points to.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
)

// Config is the top-level pipeline configuration.
type Config struct {
	Logging    Logging    `yaml:"logging"`
	Stoplist   string     `yaml:"stoplist"` // optional; default English list
	Lexicon    string     `yaml:"lexicon"`  // optional; built-in lemma table
	Extraction Extraction `yaml:"extraction"`
	Split      Split      `yaml:"split"`
	Workers    int        `yaml:"workers"`
}

// Logging configures the structured logger.
type Logging struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
	Caller bool   `yaml:"caller"`
}

// Extraction mirrors features.Config in YAML form.
type Extraction struct {
	Tokenizer     string `yaml:"tokenizer"`
	NgramRange    []int  `yaml:"ngram_range"`
	Lemmatization bool   `yaml:"lemmatization"`
	TopN          int    `yaml:"top_n"`
}

// Split holds partitioning defaults.
type Split struct {
	PercentageTraining float64 `yaml:"percentage_training"`
	Seed               uint64  `yaml:"seed"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Logging: Logging{Level: "info"},
		Extraction: Extraction{
			Tokenizer:  features.BOW.String(),
			NgramRange: []int{1, 1},
		},
		Split:   Split{PercentageTraining: 0.8},
		Workers: 4,
	}
}

// Load reads a YAML configuration on top of Default. Relative stoplist
// and lexicon paths are resolved against the configuration file's
// directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.Stoplist = resolve(dir, cfg.Stoplist)
	cfg.Lexicon = resolve(dir, cfg.Lexicon)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := c.FeatureConfig(); err != nil {
		return err
	}
	if p := c.Split.PercentageTraining; p <= 0 || p > 1 {
		return fmt.Errorf("split.percentage_training %v not in (0,1]: %w", p, internalerr.ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d: %w", c.Workers, internalerr.ErrInvalidConfig)
	}
	return nil
}

// FeatureConfig converts the extraction section.
func (c *Config) FeatureConfig() (features.Config, error) {
	e := c.Extraction
	tok, err := features.ParseTokenizerType(e.Tokenizer)
	if err != nil {
		return features.Config{}, fmt.Errorf("extraction.tokenizer: %w", err)
	}
	if len(e.NgramRange) != 2 {
		return features.Config{}, fmt.Errorf("extraction.ngram_range needs two values, got %v: %w",
			e.NgramRange, internalerr.ErrInvalidConfig)
	}

	fc := features.Config{
		Tokenizer:     tok,
		NgramMin:      e.NgramRange[0],
		NgramMax:      e.NgramRange[1],
		Lemmatization: e.Lemmatization,
		TopN:          e.TopN,
	}
	if err := fc.Validate(); err != nil {
		return features.Config{}, fmt.Errorf("extraction: %v: %w", err, internalerr.ErrInvalidConfig)
	}
	return fc, nil
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}
