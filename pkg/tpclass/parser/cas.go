package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/net/html"

	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
)

// parseCAS reads the document text (the sofa string) of a CAS XMI file,
// gunzipping it when the name ends in .gz. With stripMarkup the sofa is
// treated as markup and reduced to its text content.
func (dp *DocumentParser) parseCAS(path string, stripMarkup bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open cas %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("gunzip cas %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	sofa, err := readSofa(r)
	if err != nil {
		return "", fmt.Errorf("parse cas %s: %w", path, err)
	}
	if stripMarkup {
		sofa = markupText(sofa)
	}
	return sofa, nil
}

// readSofa returns the sofaString attribute of the first Sofa element.
func readSofa(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("no sofa element: %w", internalerr.ErrEmptyDocument)
		}
		if err != nil {
			return "", err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Sofa" {
			continue
		}
		for _, attr := range se.Attr {
			if attr.Name.Local == "sofaString" {
				return attr.Value, nil
			}
		}
	}
}

// markupText drops tags from XML/HTML-ish text and keeps the character
// data, separating text nodes with spaces.
func markupText(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.StartTagToken:
			if name, _ := z.TagName(); isSkippedTag(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isSkippedTag(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := strings.TrimSpace(string(z.Text()))
			if text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		}
	}
}

func isSkippedTag(name string) bool {
	switch name {
	case "script", "style", "xref", "object-id":
		return true
	}
	return false
}
