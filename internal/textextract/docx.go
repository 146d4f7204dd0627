package textextract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"borderdesk/internal/domain"
)

const (
	wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	documentPart  = "word/document.xml"
)

// extractDOCX joins paragraph texts from word/document.xml with newlines, in
// document order.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", failure(domain.FileKindDOCX, fmt.Errorf("opening archive: %w", err))
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", failure(domain.FileKindDOCX, fmt.Errorf("missing %s", documentPart))
	}

	rc, err := part.Open()
	if err != nil {
		return "", failure(domain.FileKindDOCX, fmt.Errorf("opening %s: %w", documentPart, err))
	}
	defer func() { _ = rc.Close() }()

	paragraphs, err := readParagraphs(rc)
	if err != nil {
		return "", failure(domain.FileKindDOCX, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

func readParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inPara     bool
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "p":
				if inPara {
					paragraphs = append(paragraphs, current.String())
				}
				inPara = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}
