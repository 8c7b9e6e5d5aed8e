package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Pipeline state preconditions
	ErrNoData          = errors.New("no data: dataset is empty or not set")
	ErrNotPartitioned  = errors.New("dataset has not been split into training and test sets")
	ErrPartitioned     = errors.New("dataset has already been split into training and test sets")
	ErrNoVocabulary    = errors.New("no vocabulary: features have not been fitted")
	ErrNoFeatures      = errors.New("no features: extract features first")
	ErrNotTrained      = errors.New("classifier has not been trained")
	ErrFeatureMismatch = errors.New("feature matrix does not match the trained vocabulary")

	// Parsing
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyDocument       = errors.New("document has no text")

	// Models
	ErrDenseRequired       = errors.New("model requires dense input")
	ErrDimensionMismatch   = errors.New("dimension mismatch")
	ErrModelNotPersistable = errors.New("model cannot be persisted")
	ErrUnknownModel        = errors.New("unknown model kind")
)
