package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/textpresso/tpclass/pkg/tpclass/dataset"
	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/lexicon"
	"github.com/textpresso/tpclass/pkg/tpclass/store"
)

func partitionedSnapshot(t *testing.T) store.Snapshot {
	t.Helper()
	training := []dataset.Document{
		{ID: "01A", Seq: 2, Content: "daf-16 lifespan", Label: 1, Source: "/data/b.tpcas.gz"},
		{ID: "01B", Seq: 0, Content: "neuron axon", Label: 0, Source: "/data/a.tpcas.gz"},
	}
	test := []dataset.Document{
		{ID: "01C", Seq: 1, Content: "insulin pathway", Label: 1},
	}
	trainX, err := features.NewSparse(2, 3, []int{0, 2, 3}, []int{0, 2, 1}, []float64{0.6, 0.8, 1})
	if err != nil {
		t.Fatal(err)
	}
	testX, err := features.NewSparse(1, 3, []int{0, 0}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg := features.Config{Tokenizer: features.TFIDF, NgramMin: 1, NgramMax: 2, Lemmatization: true, TopN: 3}
	return store.Snapshot{
		Partitioned:      true,
		Training:         training,
		Test:             test,
		TrainingFeatures: trainX,
		TestFeatures:     testX,
		Vocabulary: &features.VocabularyState{
			Config: cfg, Terms: []string{"axon", "daf-16", "lifespan", "insulin"}, DocFreq: []int{1, 1, 1, -1}, NumDocs: 2,
		},
		TrainedVocabulary: &features.VocabularyState{
			Config: cfg, Terms: []string{"axon", "daf-16", "lifespan"}, DocFreq: []int{1, 1, 1}, NumDocs: 2,
		},
		Model: &store.ModelBlob{Kind: "linear_svm", Data: []byte(`{"w":[1,2]}`)},
		Analysis: &store.Analysis{
			Stopwords: []string{"and", "figure", "the"},
			Lexicon: lexicon.State{Groups: []lexicon.Group{
				{Lemma: "mouse", Forms: []string{"mouse", "mice"}},
				{Lemma: "rnai", Forms: []string{"rnai", "rnais", "rna-interference"}},
				{Lemma: "species", Forms: []string{"species"}},
			}},
		},
		Seed:   1<<63 + 5,
		Splits: 3,
	}
}

func TestSQLiteSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "pipeline.db")

	st, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	want := partitionedSnapshot(t)
	if err := st.SaveSnapshot(ctx, want); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st, err = OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	got, ok, err := st.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if !ok {
		t.Fatal("snapshot should be found")
	}

	if !got.Partitioned || got.Seed != want.Seed || got.Splits != want.Splits {
		t.Errorf("meta mismatch: %+v", got)
	}
	if !reflect.DeepEqual(got.Training, want.Training) {
		t.Errorf("training docs: got %+v, want %+v", got.Training, want.Training)
	}
	if !reflect.DeepEqual(got.Test, want.Test) {
		t.Errorf("test docs: got %+v, want %+v", got.Test, want.Test)
	}
	if len(got.Documents) != 0 {
		t.Errorf("unexpected raw documents %v", got.Documents)
	}
	if !reflect.DeepEqual(features.ToDense(got.TrainingFeatures), features.ToDense(want.TrainingFeatures)) {
		t.Error("training matrix differs")
	}
	if r, c := got.TestFeatures.Dims(); r != 1 || c != 3 || got.TestFeatures.NNZ() != 0 {
		t.Errorf("test matrix %dx%d nnz=%d", r, c, got.TestFeatures.NNZ())
	}
	if !reflect.DeepEqual(got.Vocabulary, want.Vocabulary) {
		t.Errorf("active vocabulary: got %+v, want %+v", got.Vocabulary, want.Vocabulary)
	}
	if !reflect.DeepEqual(got.TrainedVocabulary, want.TrainedVocabulary) {
		t.Errorf("trained vocabulary: got %+v", got.TrainedVocabulary)
	}
	if got.Model == nil || got.Model.Kind != "linear_svm" || string(got.Model.Data) != `{"w":[1,2]}` {
		t.Errorf("model blob: %+v", got.Model)
	}
	if !reflect.DeepEqual(got.Analysis, want.Analysis) {
		t.Errorf("analysis: got %+v, want %+v", got.Analysis, want.Analysis)
	}
}

func TestSQLiteSnapshotWithoutAnalysis(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "plain.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	snap := partitionedSnapshot(t)
	snap.Analysis = nil
	if err := st.SaveSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}
	got, ok, err := st.LoadSnapshot(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot = %v, %v", ok, err)
	}
	if got.Analysis != nil {
		t.Errorf("analysis %+v appeared from nowhere", got.Analysis)
	}
}

func TestSQLiteEmptyStore(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer st.Close()

	if _, ok, err := st.LoadSnapshot(ctx); err != nil || ok {
		t.Errorf("LoadSnapshot on empty store = %v, %v", ok, err)
	}
}

func TestSQLiteSaveReplaces(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "replace.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer st.Close()

	if err := st.SaveSnapshot(ctx, partitionedSnapshot(t)); err != nil {
		t.Fatal(err)
	}
	raw := store.Snapshot{
		Documents: []dataset.Document{{ID: "01Z", Seq: 0, Content: "only", Label: 4}},
		Seed:      7,
	}
	if err := st.SaveSnapshot(ctx, raw); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, ok, err := st.LoadSnapshot(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot = %v, %v", ok, err)
	}
	if got.Partitioned || len(got.Documents) != 1 || len(got.Training) != 0 {
		t.Errorf("old state leaked: %+v", got)
	}
	if got.Vocabulary != nil || got.Model != nil || got.TrainingFeatures != nil {
		t.Errorf("stale vocabulary/model/matrix survived: %+v", got)
	}
}

func TestSQLiteRejectsInconsistentSnapshot(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "bad.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	snap := partitionedSnapshot(t)
	snap.Test = nil
	if err := st.SaveSnapshot(ctx, snap); !errors.Is(err, internalerr.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	snap = partitionedSnapshot(t)
	snap.Model = nil
	if err := st.SaveSnapshot(ctx, snap); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
