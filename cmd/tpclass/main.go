package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/textpresso/tpclass/pkg/tpclass"
	"github.com/textpresso/tpclass/pkg/tpclass/config"
	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
	"github.com/textpresso/tpclass/pkg/tpclass/model"
	"github.com/textpresso/tpclass/pkg/tpclass/parser"
)

// category is one labeled input directory.
type category struct {
	label int
	path  string
}

// categoryFlag collects repeated -category label=path flags.
type categoryFlag []category

func (c *categoryFlag) String() string {
	parts := make([]string, len(*c))
	for i, cat := range *c {
		parts[i] = fmt.Sprintf("%d=%s", cat.label, cat.path)
	}
	return strings.Join(parts, ",")
}

func (c *categoryFlag) Set(v string) error {
	label, path, ok := strings.Cut(v, "=")
	if !ok || path == "" {
		return fmt.Errorf("want label=path, got %q", v)
	}
	n, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil {
		return fmt.Errorf("label %q: %w", label, err)
	}
	*c = append(*c, category{label: n, path: path})
	return nil
}

type trainOptions struct {
	configPath string
	modelPath  string
	fileType   parser.FileType
	kind       string
	dense      bool
	recursive  bool
	categories []category
}

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file (optional)")
		modelPath  = flag.String("model", "", "Pipeline file to write or read (required)")
		fileType   = flag.String("type", string(parser.CASPDF), "Document file type: pdf, cas_pdf, cas_xml")
		kind       = flag.String("kind", "linear_svm", "Model to train: "+strings.Join(model.Kinds(), ", "))
		dense      = flag.Bool("dense", false, "Hand the model dense matrices")
		recursive  = flag.Bool("recursive", false, "Descend into category subdirectories")
		predictDir = flag.String("predict", "", "Classify the files in this directory with a saved pipeline")
		categories categoryFlag
	)
	flag.Var(&categories, "category", "Training documents as label=path (repeatable)")
	flag.Parse()

	if *modelPath == "" {
		log.Fatal("--model required")
	}
	ft, err := parser.ParseFileType(*fileType)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	if *predictDir != "" {
		if err := predict(ctx, os.Stdout, *configPath, *modelPath, *predictDir, ft, *dense); err != nil {
			log.Fatal(err)
		}
		return
	}

	if len(categories) == 0 {
		log.Fatal("at least one --category required")
	}
	err = train(ctx, os.Stdout, trainOptions{
		configPath: *configPath,
		modelPath:  *modelPath,
		fileType:   ft,
		kind:       *kind,
		dense:      *dense,
		recursive:  *recursive,
		categories: categories,
	})
	if err != nil {
		log.Fatal(err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(path)
}

// train runs the whole pipeline over the labeled directories, reports
// scores on both partitions and saves the result.
func train(ctx context.Context, out io.Writer, opts trainOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := tpclass.NewFromConfig(cfg, tpclass.Options{})
	if err != nil {
		return fmt.Errorf("build classifier: %w", err)
	}

	for _, cat := range opts.categories {
		report, err := c.AddClassifiedDocsToDataset(ctx, cat.path, opts.fileType, cat.label, opts.recursive)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", cat.path, err)
		}
		fmt.Fprintf(out, "category %d: %d documents, %d unreadable\n", cat.label, report.Added, len(report.Failed))
	}

	if err := c.GenerateTrainingAndTestSets(cfg.Split.PercentageTraining); err != nil {
		return err
	}
	extract, err := tpclass.ExtractOptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := c.ExtractFeatures(extract); err != nil {
		return err
	}

	m, err := model.New(opts.kind)
	if err != nil {
		return err
	}
	if err := c.TrainClassifier(m, opts.dense); err != nil {
		return err
	}

	for _, onTraining := range []bool{true, false} {
		scores, err := c.TestClassifier(onTraining, opts.dense)
		name := "test"
		if onTraining {
			name = "training"
		}
		switch {
		case err == nil:
			fmt.Fprintf(out, "%s set: %s\n", name, scores)
		case errors.Is(err, internalerr.ErrNoData):
			fmt.Fprintf(out, "%s set: empty\n", name)
		default:
			return err
		}
	}

	if err := c.SaveToFile(ctx, opts.modelPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "saved %s\n", opts.modelPath)
	return nil
}

// predict prints one "path<TAB>label" line per file, with "-" for files
// that could not be read.
// predict classifies dir with a saved pipeline. The configuration supplies
// logging and parallelism; the stoplist and lexicon come from the pipeline
// file.
func predict(ctx context.Context, out io.Writer, configPath, modelPath, dir string, ft parser.FileType, dense bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	comp, err := cfg.Loader().Load()
	if err != nil {
		return err
	}
	c, err := tpclass.LoadFromFile(ctx, modelPath, tpclass.Options{Logger: &comp.Logger, Workers: cfg.Workers})
	if err != nil {
		return err
	}
	batch, err := c.PredictFiles(ctx, dir, ft, dense)
	if err != nil {
		return err
	}
	for _, f := range batch.Files {
		if !f.OK {
			fmt.Fprintf(out, "%s\t-\n", f.Path)
			continue
		}
		fmt.Fprintf(out, "%s\t%d\n", f.Path, f.Label)
	}
	return nil
}
