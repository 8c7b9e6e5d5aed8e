package tpclass

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/textpresso/tpclass/pkg/tpclass/dataset"
	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/ingest"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/lexicon"
	"github.com/textpresso/tpclass/pkg/tpclass/model"
	"github.com/textpresso/tpclass/pkg/tpclass/stoplist"
	"github.com/textpresso/tpclass/pkg/tpclass/store"
	"github.com/textpresso/tpclass/pkg/tpclass/store/sqlite"

	// Reference models are registered so saved pipelines using them load.
	_ "github.com/textpresso/tpclass/pkg/tpclass/model/bayes"
	_ "github.com/textpresso/tpclass/pkg/tpclass/model/linear"
)

// SaveToFile writes the whole pipeline to a single SQLite file. The file is
// written next to path and renamed over it once complete, so a failed save
// leaves any earlier file at path untouched.
func (c *Classifier) SaveToFile(ctx context.Context, path string) (err error) {
	start := time.Now()
	defer func() { c.metrics.RecordOperation("save", start, err) }()

	snap, err := c.snapshot()
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", tmp, err)
	}
	if err := writeSnapshotFile(ctx, tmp, snap); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	c.log.Info().Str("path", path).Msg("pipeline saved")
	return nil
}

func writeSnapshotFile(ctx context.Context, path string, snap store.Snapshot) error {
	st, err := sqlite.OpenSQLite(ctx, path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := st.SaveSnapshot(ctx, snap); err != nil {
		st.Close()
		return err
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// LoadFromFile rebuilds a pipeline saved with SaveToFile. opts supplies
// the non-persisted collaborators (parser, logger, metrics, workers); the
// saved stoplist and lexicon take precedence over opts.Tokenizer and
// opts.Lexicon.
func LoadFromFile(ctx context.Context, path string, opts Options) (*Classifier, error) {
	// Opening a missing path would create an empty database.
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	st, err := sqlite.OpenSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer st.Close()

	c, err := LoadFrom(ctx, st, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	c.log.Info().Str("path", path).Msg("pipeline loaded")
	return c, nil
}

// SaveTo writes the pipeline to any snapshot store.
func (c *Classifier) SaveTo(ctx context.Context, st store.Store) error {
	snap, err := c.snapshot()
	if err != nil {
		return err
	}
	return st.SaveSnapshot(ctx, snap)
}

// LoadFrom rebuilds a pipeline from a snapshot store.
func LoadFrom(ctx context.Context, st store.Store, opts Options) (*Classifier, error) {
	snap, ok, err := st.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no saved pipeline: %w", internalerr.ErrNoData)
	}

	c := New(opts)
	if err := c.restore(snap); err != nil {
		return nil, err
	}
	c.updateSizeGauges()
	return c, nil
}

func (c *Classifier) snapshot() (store.Snapshot, error) {
	snap := store.Snapshot{
		Seed:   c.seed,
		Splits: c.splits,
		Analysis: &store.Analysis{
			Stopwords: c.tokenizer.Stoplist().All(),
			Lexicon:   c.lexicon.State(),
		},
	}

	switch s := c.state.(type) {
	case *dataset.Dataset:
		snap.Documents = s.Documents()
	case *dataset.Split:
		snap.Partitioned = true
		snap.Training = s.Training.Documents
		snap.Test = s.Test.Documents
		snap.TrainingFeatures = s.Training.Features
		snap.TestFeatures = s.Test.Features
	}

	if c.vocab != nil {
		v := c.vocab.State()
		snap.Vocabulary = &v
	}

	if c.model != nil {
		p, ok := c.model.(model.Persistable)
		if !ok {
			return store.Snapshot{}, fmt.Errorf("save %T: %w", c.model, internalerr.ErrModelNotPersistable)
		}
		data, err := p.MarshalBinary()
		if err != nil {
			return store.Snapshot{}, fmt.Errorf("encode %s model: %w", p.Kind(), err)
		}
		snap.Model = &store.ModelBlob{Kind: p.Kind(), Data: data}

		if c.trainedVocab == c.vocab {
			snap.TrainedIsActive = true
		} else {
			v := c.trainedVocab.State()
			snap.TrainedVocabulary = &v
		}
	}
	return snap, nil
}

func (c *Classifier) restore(snap store.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	c.seed = snap.Seed
	c.splits = snap.Splits

	if a := snap.Analysis; a != nil {
		c.setAnalysis(ingest.NewTokenizer(stoplist.NewManager(a.Stopwords)), lexicon.FromState(a.Lexicon))
		c.log.Debug().
			Int("stopwords", len(a.Stopwords)).
			Int("lemmas", len(a.Lexicon.Groups)).
			Msg("saved text analysis restored")
	}

	if snap.Vocabulary != nil {
		v, err := features.NewVocabularyFromState(*snap.Vocabulary)
		if err != nil {
			return fmt.Errorf("restore vocabulary: %w", err)
		}
		c.vocab = v
	}

	switch {
	case snap.Partitioned:
		split := &dataset.Split{
			Training: &dataset.Partition{Documents: snap.Training, Features: snap.TrainingFeatures},
			Test:     &dataset.Partition{Documents: snap.Test, Features: snap.TestFeatures},
		}
		for _, m := range []*features.Sparse{snap.TrainingFeatures, snap.TestFeatures} {
			if m == nil {
				continue
			}
			if _, cols := m.Dims(); c.vocab == nil || cols != c.vocab.Len() {
				return fmt.Errorf("restore features: matrix columns do not match vocabulary: %w", internalerr.ErrDimensionMismatch)
			}
		}
		c.state = split
	case len(snap.Documents) > 0:
		c.state = dataset.Restore(snap.Documents)
	}

	if snap.Model != nil {
		m, err := model.Decode(snap.Model.Kind, snap.Model.Data)
		if err != nil {
			return fmt.Errorf("restore model: %w", err)
		}
		c.model = m
		if snap.TrainedIsActive {
			c.trainedVocab = c.vocab
		} else {
			v, err := features.NewVocabularyFromState(*snap.TrainedVocabulary)
			if err != nil {
				return fmt.Errorf("restore trained vocabulary: %w", err)
			}
			c.trainedVocab = v
		}
	}
	return nil
}
