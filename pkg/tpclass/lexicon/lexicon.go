package lexicon

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon maps inflected word forms to their lemma.
//
// Lookup order for Lemmatize:
//  1. explicit forms registered with AddLemmaGroup (or loaded from YAML)
//  2. the built-in irregular table (mice -> mouse, loci -> locus)
//  3. regular English plural suffix rules, when enabled
type Lexicon struct {
	// lemma -> all forms (including the lemma itself)
	// Example: "mouse" -> ["mouse", "mice"]
	lemmas map[string][]string

	// form -> lemma
	reverseIndex map[string]string

	rules   bool
	version uint64
}

// Group is a lemma with its forms, lemma first.
type Group struct {
	Lemma string   `json:"lemma" yaml:"lemma"`
	Forms []string `json:"forms" yaml:"forms"`
}

// State is the complete content of a lexicon, built-in forms included.
type State struct {
	Rules  bool
	Groups []Group
}

// New creates a lexicon holding the built-in irregular forms with suffix
// rules enabled.
func New() *Lexicon {
	l := &Lexicon{
		lemmas:       make(map[string][]string),
		reverseIndex: make(map[string]string),
		rules:        true,
	}
	for lemma, forms := range irregular {
		l.AddLemmaGroup(lemma, forms)
	}
	return l
}

// LoadFromYAML loads lemma mappings from a YAML file on top of the
// built-in table.
//
// Expected format:
//
//	rules: true
//	lemmas:
//	  - lemma: mouse
//	    forms: [mice]
//	  - lemma: rnai
//	    forms: [rnais, rna-interference]
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		Rules  *bool   `yaml:"rules"`
		Lemmas []Group `yaml:"lemmas"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	lex := New()
	if config.Rules != nil {
		lex.rules = *config.Rules
	}
	for _, entry := range config.Lemmas {
		lex.AddLemmaGroup(entry.Lemma, entry.Forms)
	}

	return lex, nil
}

// FromState rebuilds a lexicon from State output. Only the groups in s are
// registered; the built-in table is not added again.
func FromState(s State) *Lexicon {
	l := &Lexicon{
		lemmas:       make(map[string][]string, len(s.Groups)),
		reverseIndex: make(map[string]string),
		rules:        s.Rules,
	}
	for _, g := range s.Groups {
		l.AddLemmaGroup(g.Lemma, g.Forms)
	}
	return l
}

// State returns the lexicon content with groups ordered by lemma.
func (l *Lexicon) State() State {
	s := State{Rules: l.rules, Groups: make([]Group, 0, len(l.lemmas))}
	for lemma, forms := range l.lemmas {
		s.Groups = append(s.Groups, Group{Lemma: lemma, Forms: append([]string(nil), forms...)})
	}
	sort.Slice(s.Groups, func(i, j int) bool { return s.Groups[i].Lemma < s.Groups[j].Lemma })
	return s
}

// Version changes every time the lexicon is edited.
func (l *Lexicon) Version() uint64 {
	return l.version
}

// SetRules toggles the regular suffix rules.
func (l *Lexicon) SetRules(enabled bool) {
	l.rules = enabled
	l.version++
}

// AddLemmaGroup registers forms for a lemma. The lemma is always its own
// form. Re-adding a lemma replaces its previous forms.
func (l *Lexicon) AddLemmaGroup(lemma string, forms []string) {
	lemma = strings.ToLower(lemma)

	if oldForms, exists := l.lemmas[lemma]; exists {
		for _, f := range oldForms {
			delete(l.reverseIndex, f)
		}
	}

	normalized := make([]string, 0, len(forms)+1)
	seen := make(map[string]bool)

	normalized = append(normalized, lemma)
	seen[lemma] = true

	for _, f := range forms {
		f = strings.ToLower(f)
		if !seen[f] {
			normalized = append(normalized, f)
			seen[f] = true
		}
	}

	l.lemmas[lemma] = normalized
	for _, f := range normalized {
		l.reverseIndex[f] = lemma
	}
	l.version++
}

// Lemmatize returns the lemma of a lowercase token.
//
// Examples:
//   - Lemmatize("mice") -> "mouse"
//   - Lemmatize("worms") -> "worm"
//   - Lemmatize("studies") -> "study"
//   - Lemmatize("elegans") -> "elegans"
func (l *Lexicon) Lemmatize(token string) string {
	if lemma, ok := l.reverseIndex[token]; ok {
		return lemma
	}
	if !l.rules {
		return token
	}
	return stripPlural(token)
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() Stats {
	total := 0
	for _, forms := range l.lemmas {
		total += len(forms)
	}
	return Stats{
		Lemmas: len(l.lemmas),
		Forms:  total,
		Rules:  l.rules,
	}
}

// Stats holds statistics about lexicon contents.
type Stats struct {
	Lemmas int
	Forms  int
	Rules  bool
}
