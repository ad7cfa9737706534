// =============================================================================
// Packing List Ingest - Grid Reader
// =============================================================================
//
// This module turns uploaded tabular files into a rectangular-ish grid of
// nullable strings for the tabular parser. It plays the role of the
// spreadsheet-reading collaborator:
//   - XLSX is read with excelize; cell values come back formatted, so dates
//     arrive as strings
//   - CSV is read with encoding/csv using the same lenient settings as the
//     legacy CSV importer (variable field count, lazy quotes)
//   - blank rows are skipped in both cases
//
// An empty or whitespace-only cell becomes nil.
//
// =============================================================================

package grid

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// GRID STRUCTURE
// =============================================================================

// Grid is rows of nullable cells. Rows may have different lengths.
type Grid [][]*string

// FromStrings builds a Grid, mapping blank cells to nil. Blank rows are kept;
// use it for fixtures and for callers that have already filtered rows.
func FromStrings(rows [][]string) Grid {
	g := make(Grid, len(rows))
	for i, row := range rows {
		g[i] = toCells(row)
	}
	return g
}

// Cell returns the cell at (row, col), or nil when out of range or blank.
func (g Grid) Cell(row, col int) *string {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return nil
	}
	return g[row][col]
}

// Text returns the trimmed cell text, "" when nil.
func (g Grid) Text(row, col int) string {
	c := g.Cell(row, col)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(*c)
}

// Width returns the number of cells in row.
func (g Grid) Width(row int) int {
	if row < 0 || row >= len(g) {
		return 0
	}
	return len(g[row])
}

// =============================================================================
// READER OPTIONS
// =============================================================================

// Options controls how tabular files are read.
type Options struct {
	// SheetName selects the XLSX sheet. Default: the first sheet.
	SheetName string

	// Delimiter is the CSV field separator. Accepts "," "tab" "|" ";".
	// Default: ","
	Delimiter string
}

// =============================================================================
// XLSX
// =============================================================================

// ReadXLSX reads the configured sheet of an XLSX document.
func ReadXLSX(data []byte, opts Options) (Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheetName := opts.SheetName
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %q: %w", sheetName, err)
	}

	return fromRows(rows), nil
}

// =============================================================================
// CSV
// =============================================================================

// ReadCSV reads a delimited text document.
func ReadCSV(data []byte, opts Options) (Grid, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	configureReader(reader, opts)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return fromRows(rows), nil
}

// configureReader applies the delimiter and the lenient parsing settings.
func configureReader(reader *csv.Reader, opts Options) {
	switch opts.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		reader.Comma = ','
	}

	// Packing lists put header blocks and item tables in one sheet, so the
	// field count varies from row to row.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// fromRows converts raw rows, skipping blank ones.
func fromRows(rows [][]string) Grid {
	g := make(Grid, 0, len(rows))
	for _, row := range rows {
		if isRowEmpty(row) {
			continue
		}
		g = append(g, toCells(row))
	}
	return g
}

func toCells(row []string) []*string {
	cells := make([]*string, len(row))
	for i, v := range row {
		if strings.TrimSpace(v) == "" {
			continue
		}
		v := v
		cells[i] = &v
	}
	return cells
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
