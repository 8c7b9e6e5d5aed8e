// Package store persists complete pipeline snapshots.
package store

import (
	"context"
	"fmt"

	"github.com/textpresso/tpclass/pkg/tpclass/dataset"
	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/lexicon"
)

// Store is the interface for saving and loading pipeline snapshots
type Store interface {
	Close() error

	// SaveSnapshot replaces whatever the store held.
	SaveSnapshot(ctx context.Context, s Snapshot) error
	// LoadSnapshot returns the saved snapshot, or false when the store is empty.
	LoadSnapshot(ctx context.Context) (Snapshot, bool, error)
}

// Snapshot is everything needed to rebuild a pipeline.
type Snapshot struct {
	Partitioned bool

	// Documents holds the unpartitioned dataset in insertion order.
	Documents []dataset.Document
	// Training and Test hold the partitions in row order.
	Training []dataset.Document
	Test     []dataset.Document

	TrainingFeatures *features.Sparse
	TestFeatures     *features.Sparse

	Vocabulary        *features.VocabularyState
	TrainedVocabulary *features.VocabularyState
	// TrainedIsActive is set when the model was trained on the active
	// vocabulary snapshot; TrainedVocabulary is then nil.
	TrainedIsActive bool

	Model *ModelBlob

	// Analysis is nil only for snapshots that predate it; loaders then
	// fall back to their own stoplist and lexicon.
	Analysis *Analysis

	Seed   uint64
	Splits uint64
}

// ModelBlob is a serialized model tagged with its registry kind.
type ModelBlob struct {
	Kind string
	Data []byte
}

// Analysis is the text analysis vocabulary terms were produced with.
type Analysis struct {
	Stopwords []string
	Lexicon   lexicon.State
}

// Partition names used when storing documents and matrices.
const (
	PartitionNone     = ""
	PartitionTraining = "training"
	PartitionTest     = "test"
)

// Validate checks the snapshot's internal consistency.
func (s Snapshot) Validate() error {
	if s.Partitioned && len(s.Documents) > 0 {
		return fmt.Errorf("partitioned snapshot carries a raw dataset: %w", internalerr.ErrInvalidInput)
	}
	if !s.Partitioned && (len(s.Training) > 0 || len(s.Test) > 0) {
		return fmt.Errorf("unpartitioned snapshot carries partitions: %w", internalerr.ErrInvalidInput)
	}
	if err := checkRows(s.TrainingFeatures, len(s.Training), PartitionTraining); err != nil {
		return err
	}
	if err := checkRows(s.TestFeatures, len(s.Test), PartitionTest); err != nil {
		return err
	}
	trained := s.TrainedVocabulary != nil || s.TrainedIsActive
	if trained != (s.Model != nil) {
		return fmt.Errorf("model and trained vocabulary must be saved together: %w", internalerr.ErrInvalidInput)
	}
	if s.TrainedIsActive && s.Vocabulary == nil {
		return fmt.Errorf("trained vocabulary marked active but none saved: %w", internalerr.ErrInvalidInput)
	}
	return nil
}

func checkRows(m *features.Sparse, want int, name string) error {
	if m == nil {
		return nil
	}
	if r, _ := m.Dims(); r != want {
		return fmt.Errorf("%s matrix has %d rows for %d documents: %w", name, r, want, internalerr.ErrDimensionMismatch)
	}
	return nil
}

// Clone returns a deep copy. Feature matrices are immutable and shared.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Documents = cloneDocs(s.Documents)
	out.Training = cloneDocs(s.Training)
	out.Test = cloneDocs(s.Test)
	out.Vocabulary = cloneVocabulary(s.Vocabulary)
	out.TrainedVocabulary = cloneVocabulary(s.TrainedVocabulary)
	if s.Model != nil {
		out.Model = &ModelBlob{Kind: s.Model.Kind, Data: append([]byte(nil), s.Model.Data...)}
	}
	if s.Analysis != nil {
		a := Analysis{
			Stopwords: append([]string(nil), s.Analysis.Stopwords...),
			Lexicon:   lexicon.State{Rules: s.Analysis.Lexicon.Rules},
		}
		for _, g := range s.Analysis.Lexicon.Groups {
			a.Lexicon.Groups = append(a.Lexicon.Groups, lexicon.Group{Lemma: g.Lemma, Forms: append([]string(nil), g.Forms...)})
		}
		out.Analysis = &a
	}
	return out
}

func cloneDocs(docs []dataset.Document) []dataset.Document {
	if docs == nil {
		return nil
	}
	return append([]dataset.Document(nil), docs...)
}

func cloneVocabulary(v *features.VocabularyState) *features.VocabularyState {
	if v == nil {
		return nil
	}
	out := *v
	out.Terms = append([]string(nil), v.Terms...)
	out.DocFreq = append([]int(nil), v.DocFreq...)
	return &out
}
