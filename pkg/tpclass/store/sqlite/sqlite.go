package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/textpresso/tpclass/pkg/tpclass/dataset"
	"github.com/textpresso/tpclass/pkg/tpclass/features"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/lexicon"
	"github.com/textpresso/tpclass/pkg/tpclass/store"
)

// formatVersion is bumped whenever the schema changes incompatibly.
const formatVersion = "2"

const (
	vocabActive  = "active"
	vocabTrained = "trained"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a single-file snapshot database.
// The rollback journal is used instead of WAL so a saved pipeline is one
// self-contained file.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=DELETE"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS meta (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	seq INTEGER PRIMARY KEY,
	id TEXT UNIQUE NOT NULL,
	part TEXT NOT NULL,
	position INTEGER NOT NULL,
	label INTEGER NOT NULL,
	source TEXT,
	content TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS matrices (
	part TEXT PRIMARY KEY,
	n_rows INTEGER NOT NULL,
	n_cols INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS matrix_entries (
	part TEXT NOT NULL,
	row_idx INTEGER NOT NULL,
	col_idx INTEGER NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY(part, row_idx, col_idx),
	FOREIGN KEY(part) REFERENCES matrices(part) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS vocabularies (
	name TEXT PRIMARY KEY,
	config TEXT NOT NULL,
	num_docs INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS vocabulary_terms (
	name TEXT NOT NULL,
	idx INTEGER NOT NULL,
	term TEXT NOT NULL,
	df INTEGER NOT NULL,
	PRIMARY KEY(name, idx),
	FOREIGN KEY(name) REFERENCES vocabularies(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS stopwords (
	word TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS lemma_forms (
	lemma TEXT NOT NULL,
	position INTEGER NOT NULL,
	form TEXT NOT NULL,
	PRIMARY KEY(lemma, position)
);

CREATE TABLE IF NOT EXISTS model (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	kind TEXT NOT NULL,
	blob BLOB NOT NULL
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveSnapshot replaces the stored snapshot in one transaction.
func (s *sqliteStore) SaveSnapshot(ctx context.Context, snap store.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"matrix_entries", "matrices", "vocabulary_terms", "vocabularies", "documents", "stopwords", "lemma_forms", "model", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	meta := map[string]string{
		"format_version":    formatVersion,
		"partitioned":       strconv.FormatBool(snap.Partitioned),
		"trained_is_active": strconv.FormatBool(snap.TrainedIsActive),
		"seed":              strconv.FormatUint(snap.Seed, 10),
		"splits":            strconv.FormatUint(snap.Splits, 10),
		"analysis":          strconv.FormatBool(snap.Analysis != nil),
	}
	if snap.Analysis != nil {
		meta["lexicon_rules"] = strconv.FormatBool(snap.Analysis.Lexicon.Rules)
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (name, value) VALUES (?, ?)`, k, v); err != nil {
			return err
		}
	}

	if err := insertDocuments(ctx, tx, store.PartitionNone, snap.Documents); err != nil {
		return err
	}
	if err := insertDocuments(ctx, tx, store.PartitionTraining, snap.Training); err != nil {
		return err
	}
	if err := insertDocuments(ctx, tx, store.PartitionTest, snap.Test); err != nil {
		return err
	}

	if err := insertMatrix(ctx, tx, store.PartitionTraining, snap.TrainingFeatures); err != nil {
		return err
	}
	if err := insertMatrix(ctx, tx, store.PartitionTest, snap.TestFeatures); err != nil {
		return err
	}

	if err := insertVocabulary(ctx, tx, vocabActive, snap.Vocabulary); err != nil {
		return err
	}
	if err := insertVocabulary(ctx, tx, vocabTrained, snap.TrainedVocabulary); err != nil {
		return err
	}

	if err := insertAnalysis(ctx, tx, snap.Analysis); err != nil {
		return err
	}

	if snap.Model != nil {
		if _, err := tx.ExecContext(ctx, `INSERT INTO model (id, kind, blob) VALUES (1, ?, ?)`,
			snap.Model.Kind, snap.Model.Data); err != nil {
			return fmt.Errorf("insert model: %w", err)
		}
	}

	return tx.Commit()
}

func insertAnalysis(ctx context.Context, tx *sql.Tx, a *store.Analysis) error {
	if a == nil {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO stopwords (word) VALUES (?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, w := range a.Stopwords {
		if _, err := stmt.ExecContext(ctx, w); err != nil {
			return fmt.Errorf("insert stopword %q: %w", w, err)
		}
	}

	forms, err := tx.PrepareContext(ctx, `INSERT INTO lemma_forms (lemma, position, form) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer forms.Close()
	for _, g := range a.Lexicon.Groups {
		// Position 0 is the lemma itself so groups without extra forms survive.
		if _, err := forms.ExecContext(ctx, g.Lemma, 0, g.Lemma); err != nil {
			return fmt.Errorf("insert lemma %q: %w", g.Lemma, err)
		}
		pos := 1
		for _, f := range g.Forms {
			if f == g.Lemma {
				continue
			}
			if _, err := forms.ExecContext(ctx, g.Lemma, pos, f); err != nil {
				return fmt.Errorf("insert form %q of %q: %w", f, g.Lemma, err)
			}
			pos++
		}
	}
	return nil
}

func insertDocuments(ctx context.Context, tx *sql.Tx, partition string, docs []dataset.Document) error {
	if len(docs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO documents (seq, id, part, position, label, source, content)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for pos, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.Seq, d.ID, partition, pos, d.Label, d.Source, d.Content); err != nil {
			return fmt.Errorf("insert document %s: %w", d.ID, err)
		}
	}
	return nil
}

func insertMatrix(ctx context.Context, tx *sql.Tx, partition string, m *features.Sparse) error {
	if m == nil {
		return nil
	}
	rows, cols := m.Dims()
	if _, err := tx.ExecContext(ctx, `INSERT INTO matrices (part, n_rows, n_cols) VALUES (?, ?, ?)`,
		partition, rows, cols); err != nil {
		return fmt.Errorf("insert %s matrix: %w", partition, err)
	}
	if m.NNZ() == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO matrix_entries (part, row_idx, col_idx, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var insertErr error
	for i := 0; i < rows && insertErr == nil; i++ {
		m.DoRowNonZero(i, func(i, j int, v float64) {
			if insertErr != nil {
				return
			}
			if _, err := stmt.ExecContext(ctx, partition, i, j, v); err != nil {
				insertErr = fmt.Errorf("insert %s matrix entry (%d,%d): %w", partition, i, j, err)
			}
		})
	}
	return insertErr
}

func insertVocabulary(ctx context.Context, tx *sql.Tx, name string, v *features.VocabularyState) error {
	if v == nil {
		return nil
	}
	cfg, err := json.Marshal(v.Config)
	if err != nil {
		return fmt.Errorf("encode %s vocabulary config: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO vocabularies (name, config, num_docs) VALUES (?, ?, ?)`,
		name, string(cfg), v.NumDocs); err != nil {
		return fmt.Errorf("insert %s vocabulary: %w", name, err)
	}
	if len(v.Terms) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vocabulary_terms (name, idx, term, df) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, term := range v.Terms {
		if _, err := stmt.ExecContext(ctx, name, i, term, v.DocFreq[i]); err != nil {
			return fmt.Errorf("insert %s vocabulary term %q: %w", name, term, err)
		}
	}
	return nil
}

// LoadSnapshot reads the stored snapshot. An empty database yields false.
func (s *sqliteStore) LoadSnapshot(ctx context.Context) (store.Snapshot, bool, error) {
	meta, err := s.loadMeta(ctx)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	version, ok := meta["format_version"]
	if !ok {
		return store.Snapshot{}, false, nil
	}
	if version != formatVersion {
		return store.Snapshot{}, false, fmt.Errorf("snapshot format %q, want %q: %w",
			version, formatVersion, internalerr.ErrInvalidInput)
	}

	var snap store.Snapshot
	if snap.Partitioned, err = strconv.ParseBool(meta["partitioned"]); err != nil {
		return store.Snapshot{}, false, fmt.Errorf("meta partitioned: %w", err)
	}
	if snap.TrainedIsActive, err = strconv.ParseBool(meta["trained_is_active"]); err != nil {
		return store.Snapshot{}, false, fmt.Errorf("meta trained_is_active: %w", err)
	}
	if snap.Seed, err = strconv.ParseUint(meta["seed"], 10, 64); err != nil {
		return store.Snapshot{}, false, fmt.Errorf("meta seed: %w", err)
	}
	if snap.Splits, err = strconv.ParseUint(meta["splits"], 10, 64); err != nil {
		return store.Snapshot{}, false, fmt.Errorf("meta splits: %w", err)
	}

	if snap.Documents, err = s.loadDocuments(ctx, store.PartitionNone); err != nil {
		return store.Snapshot{}, false, err
	}
	if snap.Training, err = s.loadDocuments(ctx, store.PartitionTraining); err != nil {
		return store.Snapshot{}, false, err
	}
	if snap.Test, err = s.loadDocuments(ctx, store.PartitionTest); err != nil {
		return store.Snapshot{}, false, err
	}

	if snap.TrainingFeatures, err = s.loadMatrix(ctx, store.PartitionTraining); err != nil {
		return store.Snapshot{}, false, err
	}
	if snap.TestFeatures, err = s.loadMatrix(ctx, store.PartitionTest); err != nil {
		return store.Snapshot{}, false, err
	}

	if snap.Vocabulary, err = s.loadVocabulary(ctx, vocabActive); err != nil {
		return store.Snapshot{}, false, err
	}
	if snap.TrainedVocabulary, err = s.loadVocabulary(ctx, vocabTrained); err != nil {
		return store.Snapshot{}, false, err
	}

	if meta["analysis"] == "true" {
		rules, err := strconv.ParseBool(meta["lexicon_rules"])
		if err != nil {
			return store.Snapshot{}, false, fmt.Errorf("meta lexicon_rules: %w", err)
		}
		if snap.Analysis, err = s.loadAnalysis(ctx, rules); err != nil {
			return store.Snapshot{}, false, err
		}
	}

	var blob store.ModelBlob
	err = s.db.QueryRowContext(ctx, `SELECT kind, blob FROM model WHERE id = 1`).Scan(&blob.Kind, &blob.Data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return store.Snapshot{}, false, fmt.Errorf("load model: %w", err)
	default:
		snap.Model = &blob
	}

	if err := snap.Validate(); err != nil {
		return store.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *sqliteStore) loadAnalysis(ctx context.Context, rules bool) (*store.Analysis, error) {
	a := &store.Analysis{Stopwords: []string{}, Lexicon: lexicon.State{Rules: rules}}

	rows, err := s.db.QueryContext(ctx, `SELECT word FROM stopwords ORDER BY word`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		a.Stopwords = append(a.Stopwords, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	forms, err := s.db.QueryContext(ctx, `SELECT lemma, form FROM lemma_forms ORDER BY lemma, position`)
	if err != nil {
		return nil, err
	}
	defer forms.Close()
	for forms.Next() {
		var lemma, form string
		if err := forms.Scan(&lemma, &form); err != nil {
			return nil, err
		}
		groups := a.Lexicon.Groups
		if n := len(groups); n == 0 || groups[n-1].Lemma != lemma {
			a.Lexicon.Groups = append(groups, lexicon.Group{Lemma: lemma})
		}
		g := &a.Lexicon.Groups[len(a.Lexicon.Groups)-1]
		g.Forms = append(g.Forms, form)
	}
	return a, forms.Err()
}

func (s *sqliteStore) loadMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func (s *sqliteStore) loadDocuments(ctx context.Context, partition string) ([]dataset.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT seq, id, label, source, content
FROM documents
WHERE part = ?
ORDER BY position`, partition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []dataset.Document
	for rows.Next() {
		var (
			d      dataset.Document
			source sql.NullString
		)
		if err := rows.Scan(&d.Seq, &d.ID, &d.Label, &source, &d.Content); err != nil {
			return nil, err
		}
		d.Source = source.String
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *sqliteStore) loadMatrix(ctx context.Context, partition string) (*features.Sparse, error) {
	var nRows, nCols int
	err := s.db.QueryRowContext(ctx, `SELECT n_rows, n_cols FROM matrices WHERE part = ?`, partition).Scan(&nRows, &nCols)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT row_idx, col_idx, value
FROM matrix_entries
WHERE part = ?
ORDER BY row_idx, col_idx`, partition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indptr := make([]int, nRows+1)
	var (
		indices []int
		data    []float64
	)
	for rows.Next() {
		var (
			i, j int
			v    float64
		)
		if err := rows.Scan(&i, &j, &v); err != nil {
			return nil, err
		}
		if i < 0 || i >= nRows {
			return nil, fmt.Errorf("%s matrix row %d out of range: %w", partition, i, internalerr.ErrDimensionMismatch)
		}
		indptr[i+1]++
		indices = append(indices, j)
		data = append(data, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := 0; i < nRows; i++ {
		indptr[i+1] += indptr[i]
	}
	return features.NewSparse(nRows, nCols, indptr, indices, data)
}

func (s *sqliteStore) loadVocabulary(ctx context.Context, name string) (*features.VocabularyState, error) {
	var (
		cfgJSON string
		v       features.VocabularyState
	)
	err := s.db.QueryRowContext(ctx, `SELECT config, num_docs FROM vocabularies WHERE name = ?`, name).Scan(&cfgJSON, &v.NumDocs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &v.Config); err != nil {
		return nil, fmt.Errorf("decode %s vocabulary config: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT term, df FROM vocabulary_terms WHERE name = ? ORDER BY idx`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	v.Terms = []string{}
	v.DocFreq = []int{}
	for rows.Next() {
		var (
			term string
			df   int
		)
		if err := rows.Scan(&term, &df); err != nil {
			return nil, err
		}
		v.Terms = append(v.Terms, term)
		v.DocFreq = append(v.DocFreq, df)
	}
	return &v, rows.Err()
}
