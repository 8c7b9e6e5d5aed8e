package features

import "sort"

// termCounter maintains term and document frequencies over a corpus
type termCounter struct {
	n  int            // total number of documents
	df map[string]int // documents containing each term
	tf map[string]int // total occurrences of each term
}

func newTermCounter() *termCounter {
	return &termCounter{
		df: make(map[string]int),
		tf: make(map[string]int),
	}
}

// addDocument updates counts for one document's terms (with repeats)
func (c *termCounter) addDocument(terms []string) {
	c.n++

	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		c.tf[t]++
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		c.df[t]++
	}
}

// selectTerms returns the fitted terms in lexical order, keeping only the
// topN most frequent when topN > 0. Ties are broken lexically.
func (c *termCounter) selectTerms(topN int) []string {
	terms := make([]string, 0, len(c.tf))
	for t := range c.tf {
		terms = append(terms, t)
	}

	if topN > 0 && topN < len(terms) {
		sort.Slice(terms, func(i, j int) bool {
			if c.tf[terms[i]] != c.tf[terms[j]] {
				return c.tf[terms[i]] > c.tf[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:topN]
	}

	sort.Strings(terms)
	return terms
}
