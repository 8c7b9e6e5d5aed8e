package lexicon

import "strings"

// irregular plurals common in biomedical text
var irregular = map[string][]string{
	"mouse":      {"mice"},
	"child":      {"children"},
	"foot":       {"feet"},
	"tooth":      {"teeth"},
	"man":        {"men"},
	"woman":      {"women"},
	"analysis":   {"analyses"},
	"hypothesis": {"hypotheses"},
	"thesis":     {"theses"},
	"basis":      {"bases"},
	"bacterium":  {"bacteria"},
	"criterion":  {"criteria"},
	"phenomenon": {"phenomena"},
	"larva":      {"larvae"},
	"nucleus":    {"nuclei"},
	"fungus":     {"fungi"},
	"locus":      {"loci"},
	"stimulus":   {"stimuli"},
	"appendix":   {"appendices"},
	"index":      {"indices"},
	"matrix":     {"matrices"},
	"vertex":     {"vertices"},
	"species":    nil,
	"series":     nil,
	"elegans":    nil,
}

// stripPlural applies regular English plural rules. Words that only look
// plural (-ss, -us, -is) are left alone.
func stripPlural(w string) string {
	if len(w) <= 3 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ss"),
		strings.HasSuffix(w, "us"),
		strings.HasSuffix(w, "is"),
		strings.HasSuffix(w, "ous"):
		return w
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses"),
		strings.HasSuffix(w, "ches"),
		strings.HasSuffix(w, "shes"),
		strings.HasSuffix(w, "xes"),
		strings.HasSuffix(w, "zes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}
