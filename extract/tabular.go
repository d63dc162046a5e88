// CLAUDE:SUMMARY CSV strategy — encoding-fallback decode, row/column metadata, bounded aligned preview.
package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// previewRows bounds the rendered preview regardless of input size, keeping
// extracted text manageable for very large tables.
const previewRows = 10

// CSVStrategy parses delimited tabular files. The rendered text is a
// fixed-format summary — a counts header, the column list, and an aligned
// preview of the first previewRows data rows — never the whole table.
//
// XLSX is aliased onto this strategy at reduced fidelity: the zip container
// fails the encoding candidates and yields a decode error.
//
// Metadata schema: rows (int, data rows excluding the header), columns (int),
// encoding (string, resolved candidate), error (string, on failure).
type CSVStrategy struct {
	Logger *slog.Logger
}

// Extract implements Strategy.
func (s *CSVStrategy) Extract(ctx context.Context, path string) *Result {
	result := newResult(map[string]any{
		"rows":     0,
		"columns":  0,
		"encoding": "utf-8",
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return result.fail(fmt.Errorf("read csv: %w", err))
	}

	text, encName, err := decodeWithFallback(data)
	if err != nil {
		return result.fail(fmt.Errorf("decode csv: %w", err))
	}
	result.Metadata["encoding"] = encName

	rdr := csv.NewReader(strings.NewReader(text))
	rdr.FieldsPerRecord = -1 // ragged rows are data problems, not parse errors
	records, err := rdr.ReadAll()
	if err != nil {
		return result.fail(fmt.Errorf("parse csv: %w", err))
	}
	if len(records) == 0 {
		return result.fail(fmt.Errorf("csv file has no records"))
	}

	header := records[0]
	dataRows := records[1:]
	result.Metadata["rows"] = len(dataRows)
	result.Metadata["columns"] = len(header)

	preview := dataRows
	if len(preview) > previewRows {
		preview = preview[:previewRows]
	}

	parts := []string{
		fmt.Sprintf("CSV Table with %d rows and %d columns:", len(dataRows), len(header)),
		"Columns: " + strings.Join(header, ", "),
		"Data preview:",
		renderAligned(header, preview),
	}
	result.Text = strings.Join(parts, sectionSep)
	return result
}

// renderAligned renders header + rows as space-padded columns.
func renderAligned(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	measure := func(rec []string) {
		for i, cell := range rec {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
	}

	var sb strings.Builder
	writeRow := func(rec []string) {
		for i, cell := range rec {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(cell)
			// Pad all but the last cell to its column width.
			if i < len(rec)-1 {
				for p := len(cell); p < widths[i]; p++ {
					sb.WriteByte(' ')
				}
			}
		}
		sb.WriteByte('\n')
	}
	writeRow(header)
	for _, row := range rows {
		writeRow(row)
	}
	return strings.TrimRight(sb.String(), "\n")
}
