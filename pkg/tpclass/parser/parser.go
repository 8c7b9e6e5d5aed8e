// Package parser extracts raw text from the document formats the
// classifier is trained on: PDF files and Textpresso CAS files (gzipped
// XMI) converted from either PDF or publisher XML.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
)

// FileType selects the parser applied to a file.
type FileType string

const (
	// PDF is a PDF article; text is extracted page by page.
	PDF FileType = "pdf"
	// CASPDF is a CAS file whose sofa text was extracted from a PDF.
	CASPDF FileType = "cas_pdf"
	// CASXML is a CAS file whose sofa text was converted from publisher
	// XML and may still carry markup.
	CASXML FileType = "cas_xml"
)

// ParseFileType validates a file type tag.
func ParseFileType(s string) (FileType, error) {
	ft := FileType(strings.ToLower(strings.TrimSpace(s)))
	switch ft {
	case PDF, CASPDF, CASXML:
		return ft, nil
	}
	return "", fmt.Errorf("%q: %w", s, internalerr.ErrUnsupportedFileType)
}

// Extensions returns the file name suffixes enumerated for the type.
func (ft FileType) Extensions() []string {
	switch ft {
	case PDF:
		return []string{".pdf"}
	case CASPDF, CASXML:
		return []string{".tpcas.gz", ".tpcas"}
	}
	return nil
}

// Matches reports whether name carries one of the type's extensions.
func (ft FileType) Matches(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range ft.Extensions() {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Parser turns a file into raw document text.
type Parser interface {
	Parse(path string, fileType FileType) (string, error)
}

// DocumentParser is the default Parser for PDF and CAS files.
type DocumentParser struct{}

var _ Parser = (*DocumentParser)(nil)

// Parse dispatches to the correct parser based on fileType. Files that
// yield no text fail with ErrEmptyDocument.
func (dp *DocumentParser) Parse(path string, fileType FileType) (string, error) {
	var (
		text string
		err  error
	)
	switch fileType {
	case PDF:
		text, err = dp.parsePDF(path)
	case CASPDF:
		text, err = dp.parseCAS(path, false)
	case CASXML:
		text, err = dp.parseCAS(path, true)
	default:
		return "", fmt.Errorf("%q: %w", fileType, internalerr.ErrUnsupportedFileType)
	}
	if err != nil {
		return "", err
	}

	text = CleanText(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", path, internalerr.ErrEmptyDocument)
	}
	return text, nil
}

var (
	controlRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
)

// CleanText removes control characters (except newlines and tabs),
// collapses runs of spaces per line and squeezes blank lines.
func CleanText(text string) string {
	text = controlRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")

	text = newlineRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
