package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"borderdesk/internal/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx", case-insensitively. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

const sheetName = "Commodities"

// WriteXLSX renders the same rows as the CSV export into a workbook.
func WriteXLSX(manifests []domain.Manifest) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("export.WriteXLSX: renaming sheet: %w", err)
	}

	if err := writeRow(f, 1, columns); err != nil {
		return nil, err
	}
	row := 2
	for i := range manifests {
		for _, r := range manifestRows(&manifests[i]) {
			if err := writeRow(f, row, r); err != nil {
				return nil, err
			}
			row++
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "D", "D", 24)
	_ = f.SetColWidth(sheetName, "G", "H", 28)
	_ = f.SetColWidth(sheetName, "J", "J", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export.WriteXLSX: writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("export.WriteXLSX: row %d: %w", row, err)
	}
	return nil
}
