package textextract

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"

	"borderdesk/internal/domain"
)

// extractPDF joins the text of every page with newlines, in page order. Pages
// without extractable text (image-only scans, undecodable streams) contribute
// an empty line.
func extractPDF(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = failure(domain.FileKindPDF, fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", failure(domain.FileKindPDF, err)
	}

	n := reader.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, pageText(reader, i))
	}
	return strings.Join(pages, "\n"), nil
}

func pageText(reader *pdf.Reader, num int) string {
	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	txt, err := page.GetPlainText(nil)
	if err != nil {
		log.Printf("textextract.extractPDF: page %d has no extractable text: %v", num, err)
		return ""
	}
	return strings.TrimSpace(txt)
}
