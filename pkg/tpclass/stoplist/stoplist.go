package stoplist

import (
	"sort"
	"strings"
)

// Manager holds the stopword set used during tokenization
type Manager struct {
	stops   map[string]struct{}
	version uint64
}

// NewManager creates a new stoplist manager
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]struct{}, len(initialStops))
	for _, s := range initialStops {
		stops[strings.ToLower(s)] = struct{}{}
	}
	return &Manager{stops: stops}
}

// NewEnglish creates a manager seeded with the built-in English stopwords
func NewEnglish() *Manager {
	return NewManager(English)
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Add adds tokens to the stoplist
func (m *Manager) Add(tokens ...string) {
	for _, t := range tokens {
		m.stops[strings.ToLower(t)] = struct{}{}
	}
	m.version++
}

// Remove removes tokens from the stoplist
func (m *Manager) Remove(tokens ...string) {
	for _, t := range tokens {
		delete(m.stops, strings.ToLower(t))
	}
	m.version++
}

// Version changes every time the stoplist is edited.
func (m *Manager) Version() uint64 {
	return m.version
}

// Len returns the number of stopwords
func (m *Manager) Len() int {
	return len(m.stops)
}

// All returns all stopwords in lexical order
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Clone returns an independent copy of the manager
func (m *Manager) Clone() *Manager {
	return NewManager(m.All())
}
