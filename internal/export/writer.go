// Package export renders manifest commodities as CSV or XLSX for review.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"borderdesk/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the header row; one row is written per commodity.
var columns = []string{
	"Manifest ID",
	"Manifest Type",
	"Status",
	"Shipment Control Number",
	"Shipment Type",
	"Province of Loading",
	"Shipper Name",
	"Consignee Name",
	"Line",
	"Description",
	"Quantity",
	"Packaging Unit",
	"Weight",
	"Weight Unit",
	"Created At",
}

// Writer wraps csv.Writer for exporting manifests as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteManifests writes one row per commodity of every manifest.
func (w *Writer) WriteManifests(manifests []domain.Manifest) error {
	for i := range manifests {
		for _, row := range manifestRows(&manifests[i]) {
			if err := w.csv.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// manifestRows converts a manifest to rows. A manifest whose data cannot be
// decoded, or that has no commodities, still yields a single metadata row.
func manifestRows(m *domain.Manifest) [][]string {
	meta := make([]string, len(columns))
	meta[0] = m.ID.String()
	meta[1] = m.ManifestType
	meta[2] = string(m.Status)
	meta[14] = m.CreatedAt.UTC().Format(time.RFC3339)

	var md domain.ManifestData
	if len(m.Data) == 0 || json.Unmarshal(m.Data, &md) != nil {
		return [][]string{meta}
	}

	s := md.Shipment
	meta[3] = s.ShipmentControlNumber
	meta[4] = s.Type
	meta[5] = s.ProvinceOfLoading
	meta[6] = s.Shipper.Name
	meta[7] = s.Consignee.Name

	if len(md.Commodities) == 0 {
		return [][]string{meta}
	}

	rows := make([][]string, 0, len(md.Commodities))
	for i, c := range md.Commodities {
		row := make([]string, len(columns))
		copy(row, meta)
		row[8] = strconv.Itoa(i + 1)
		row[9] = c.Description
		row[10] = formatNumber(c.Quantity)
		row[11] = c.PackagingUnit
		row[12] = formatNumber(c.Weight)
		row[13] = c.WeightUnit
		rows = append(rows, row)
	}
	return rows
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for Content-Disposition.
// Format: {sanitized_name}_{YYYY-MM-DD}.{ext}
func BuildFilename(name string, format Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(name), now.Format("2006-01-02"), format)
}
