package tpclass

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/textpresso/tpclass/pkg/tpclass/dataset"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/parser"
)

// IngestReport summarizes one AddClassifiedDocsToDataset call.
type IngestReport struct {
	Added  int
	Failed []FileError
}

// FileError records a file that could not be parsed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// AddClassifiedDocsToDataset parses the file at path, or every file of the
// given type under the directory at path, and adds the texts to the
// dataset labeled with category. Files that cannot be parsed are skipped
// and listed in the report. Documents cannot be added once the dataset has
// been split.
func (c *Classifier) AddClassifiedDocsToDataset(ctx context.Context, path string, fileType parser.FileType, category int, recursive bool) (IngestReport, error) {
	start := time.Now()
	report, err := c.addClassifiedDocs(ctx, path, fileType, category, recursive)
	c.metrics.RecordOperation("ingest", start, err)
	return report, err
}

func (c *Classifier) addClassifiedDocs(ctx context.Context, path string, fileType parser.FileType, category int, recursive bool) (IngestReport, error) {
	var report IngestReport

	if _, ok := c.state.(*dataset.Split); ok {
		return report, fmt.Errorf("add documents: %w", internalerr.ErrPartitioned)
	}
	if _, err := parser.ParseFileType(string(fileType)); err != nil {
		return report, err
	}

	files, err := parser.ListFiles(path, fileType, recursive)
	if err != nil {
		return report, err
	}

	results, err := c.parseFiles(ctx, files, fileType)
	if err != nil {
		return report, err
	}

	ds, ok := c.state.(*dataset.Dataset)
	if !ok {
		ds = dataset.New()
		c.state = ds
	}

	for i, res := range results {
		if res.err != nil {
			c.log.Warn().Err(res.err).Str("path", files[i]).Msg("skipping unparseable file")
			c.metrics.ParseFailures.WithLabelValues(string(fileType)).Inc()
			report.Failed = append(report.Failed, FileError{Path: files[i], Err: res.err})
			continue
		}
		doc := ds.Add(res.text, category, files[i])
		c.log.Debug().Str("path", files[i]).Str("id", doc.ID).Int("category", category).Msg("document added")
		report.Added++
	}
	c.metrics.DocumentsIngested.WithLabelValues(string(fileType)).Add(float64(report.Added))
	c.updateSizeGauges()

	c.log.Info().
		Str("path", path).
		Str("file_type", string(fileType)).
		Int("category", category).
		Int("added", report.Added).
		Int("failed", len(report.Failed)).
		Int("total", ds.Len()).
		Msg("documents ingested")
	return report, nil
}

type parseResult struct {
	text string
	err  error
}

// parseFiles parses files with at most c.workers in flight. Results are
// returned in the order of files; per-file errors are kept in the result.
func (c *Classifier) parseFiles(ctx context.Context, files []string, fileType parser.FileType) ([]parseResult, error) {
	results := make([]parseResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := c.parser.Parse(file, fileType)
			results[i] = parseResult{text: text, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
