// Package textextract converts uploaded document bytes into plain text.
package textextract

import (
	"fmt"
	"path/filepath"
	"strings"

	"borderdesk/internal/domain"
)

// KindFromFilename derives the file kind from the filename's extension, case-insensitively.
func KindFromFilename(filename string) (domain.FileKind, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	kind, ok := domain.AllowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, filepath.Ext(filename))
	}
	return kind, nil
}

// Extractor implements port.TextExtractor.
type Extractor struct{}

// New creates a text Extractor.
func New() *Extractor {
	return &Extractor{}
}

// ExtractDocument resolves the document's kind from its filename and extracts its
// text. An unsupported extension fails before the content is read.
func (e *Extractor) ExtractDocument(doc domain.RawDocument) (string, error) {
	kind, err := KindFromFilename(doc.Filename)
	if err != nil {
		return "", err
	}
	return e.Extract(doc.Content, kind)
}

// Extract converts content of the given kind into plain text.
func (e *Extractor) Extract(content []byte, kind domain.FileKind) (string, error) {
	switch kind {
	case domain.FileKindPDF:
		return extractPDF(content)
	case domain.FileKindDOCX:
		return extractDOCX(content)
	case domain.FileKindText:
		return extractText(content)
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, kind)
	}
}

func failure(kind domain.FileKind, err error) error {
	return &domain.ExtractionError{Kind: kind, Err: err}
}
