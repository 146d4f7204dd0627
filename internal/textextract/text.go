package textextract

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"borderdesk/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractText decodes content as UTF-8. Invalid sequences are a failure, not
// replaced.
func extractText(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return "", failure(domain.FileKindText, errors.New("content is not valid UTF-8"))
	}
	return string(content), nil
}
