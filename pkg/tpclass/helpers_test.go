package tpclass

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/parser"
)

const (
	labelNeuro = 0
	labelAging = 1
)

var (
	agingTexts = []string{
		"Insulin signaling through daf-2 extends lifespan and longevity of aging worms.",
		"Dauer formation and daf-16 activity control longevity during aging.",
		"Reduced insulin signaling increases lifespan; daf-2 mutants show extended longevity.",
		"Caloric restriction slows aging and extends lifespan via daf-16.",
		"Longevity assays reveal lifespan extension in daf-2 insulin receptor mutants.",
		"Aging worms with dauer daf-16 activation display longevity and stress resistance.",
	}
	neuroTexts = []string{
		"Axon guidance defects disrupt synapse formation in motor neurons.",
		"Sensory neurons release neurotransmitter at the synapse to drive behavior.",
		"Neuronal migration and axon outgrowth require guidance receptors.",
		"Synaptic vesicle release in neurons shapes locomotion behavior.",
		"Sensory axon regeneration depends on neurotransmitter signaling at synapses.",
		"Neurons form synapse connections that control chemotaxis behavior.",
	}
)

// writeCAS writes a gzipped CAS XMI file holding sofa as document text.
func writeCAS(t *testing.T, path, sofa string) {
	t.Helper()
	doc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<xmi:XMI xmlns:xmi="http://www.omg.org/XMI" xmlns:cas="http:///uima/cas.ecore">` +
		`<cas:Sofa xmi:id="1" sofaNum="1" sofaID="_InitialView" mimeType="text" sofaString="` +
		html.EscapeString(sofa) + `"/></xmi:XMI>`

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(doc)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeCorrupt(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("definitely not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// corpus lays out one directory per category and returns their paths.
func corpus(t *testing.T) (aging, neuro string) {
	t.Helper()
	root := t.TempDir()
	aging = filepath.Join(root, "aging")
	neuro = filepath.Join(root, "neuro")
	for i, text := range agingTexts {
		writeCAS(t, filepath.Join(aging, fmt.Sprintf("aging_%02d.tpcas.gz", i)), text)
	}
	for i, text := range neuroTexts {
		writeCAS(t, filepath.Join(neuro, fmt.Sprintf("neuro_%02d.tpcas.gz", i)), text)
	}
	return aging, neuro
}

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	return New(Options{Seed: 7, Workers: 2})
}

// ingested returns a classifier holding both categories of the corpus.
func ingested(t *testing.T) *Classifier {
	t.Helper()
	aging, neuro := corpus(t)
	c := newTestClassifier(t)
	if _, err := c.AddClassifiedDocsToDataset(context.Background(), aging, parser.CASPDF, labelAging, false); err != nil {
		t.Fatalf("ingest aging: %v", err)
	}
	if _, err := c.AddClassifiedDocsToDataset(context.Background(), neuro, parser.CASPDF, labelNeuro, false); err != nil {
		t.Fatalf("ingest neuro: %v", err)
	}
	return c
}

// extracted returns an ingested, split classifier with TF-IDF features.
func extracted(t *testing.T) *Classifier {
	t.Helper()
	c := ingested(t)
	if err := c.GenerateTrainingAndTestSets(0.75); err != nil {
		t.Fatalf("split: %v", err)
	}
	opts := DefaultExtractOptions()
	opts.Config.Tokenizer = features.TFIDF
	if err := c.ExtractFeatures(opts); err != nil {
		t.Fatalf("extract: %v", err)
	}
	return c
}
