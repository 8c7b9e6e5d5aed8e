package dataset

import (
	"crypto/rand"
	"sort"

	"github.com/oklog/ulid/v2"

	"github.com/textpresso/tpclass/pkg/tpclass/features"
)

// Document is one labeled document of the corpus.
type Document struct {
	ID      string // ULID assigned at ingestion
	Seq     int    // insertion sequence, stable across splits
	Content string
	Label   int
	Source  string // file the content was parsed from
}

// FeatureDoc returns the document as input for feature extraction.
func (d Document) FeatureDoc() features.Doc {
	return features.Doc{Key: d.ID, Text: d.Content}
}

// State is the pipeline's document state. It is either a *Dataset
// (unpartitioned) or a *Split (training and test partitions), never both.
type State interface {
	// Len returns the total number of documents held.
	Len() int
	// Documents returns every document in insertion order.
	Documents() []Document

	isState()
}

// Dataset is the raw, unpartitioned collection of labeled documents.
type Dataset struct {
	docs    []Document
	nextSeq int
	entropy *ulid.MonotonicEntropy
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Restore rebuilds a dataset from previously ingested documents.
func Restore(docs []Document) *Dataset {
	d := New()
	d.docs = sortedBySeq(docs)
	for _, doc := range d.docs {
		if doc.Seq >= d.nextSeq {
			d.nextSeq = doc.Seq + 1
		}
	}
	return d
}

func (*Dataset) isState() {}

// Add appends a document and returns it with its assigned ID and sequence.
func (d *Dataset) Add(content string, label int, source string) Document {
	doc := Document{
		ID:      ulid.MustNew(ulid.Now(), d.entropy).String(),
		Seq:     d.nextSeq,
		Content: content,
		Label:   label,
		Source:  source,
	}
	d.nextSeq++
	d.docs = append(d.docs, doc)
	return doc
}

// Len returns the number of documents.
func (d *Dataset) Len() int { return len(d.docs) }

// Documents returns a copy of the documents in insertion order.
func (d *Dataset) Documents() []Document {
	return append([]Document(nil), d.docs...)
}

// Data returns the raw contents, parallel to Target.
func (d *Dataset) Data() []string { return contents(d.docs) }

// Target returns the labels, parallel to Data.
func (d *Dataset) Target() []int { return labels(d.docs) }

// Partition is one side of a split, with its feature matrix once extracted.
type Partition struct {
	Documents []Document
	Features  *features.Sparse
}

// Len returns the number of documents.
func (p *Partition) Len() int { return len(p.Documents) }

// Data returns the raw contents, parallel to Target.
func (p *Partition) Data() []string { return contents(p.Documents) }

// Target returns the labels, parallel to Data.
func (p *Partition) Target() []int { return labels(p.Documents) }

// FeatureDocs returns the documents as feature extraction input.
func (p *Partition) FeatureDocs() []features.Doc {
	out := make([]features.Doc, len(p.Documents))
	for i, d := range p.Documents {
		out[i] = d.FeatureDoc()
	}
	return out
}

// Split holds disjoint training and test partitions.
type Split struct {
	Training *Partition
	Test     *Partition
}

func (*Split) isState() {}

// Len returns the total number of documents in both partitions.
func (s *Split) Len() int { return s.Training.Len() + s.Test.Len() }

// Documents returns the union of both partitions in insertion order.
func (s *Split) Documents() []Document {
	all := make([]Document, 0, s.Len())
	all = append(all, s.Training.Documents...)
	all = append(all, s.Test.Documents...)
	return sortedBySeq(all)
}

// ClearFeatures drops both partitions' feature matrices.
func (s *Split) ClearFeatures() {
	s.Training.Features = nil
	s.Test.Features = nil
}

// HasFeatures reports whether both partitions carry a feature matrix.
func (s *Split) HasFeatures() bool {
	return s.Training.Features != nil && s.Test.Features != nil
}

func sortedBySeq(docs []Document) []Document {
	out := append([]Document(nil), docs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func contents(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content
	}
	return out
}

func labels(docs []Document) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		out[i] = d.Label
	}
	return out
}
