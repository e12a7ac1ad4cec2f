// =============================================================================
// FeliCa Ledger - XLSX Sheet Parser
// =============================================================================
//
// Reads worksheets into header-keyed rows, the same shape csvparser returns,
// so spreadsheet and CSV station datasets share one loader.
//
// SHEET LAYOUT (configurable via Layout):
//
//   | Row 1 | headers                  |
//   | Row 2 | first data row           |
//   | ...   |                          |
//
// Sheets whose name starts with "_" are skipped by ParseWorkbook.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheets is returned for workbooks without a usable sheet.
var ErrNoSheets = errors.New("workbook has no sheets")

// =============================================================================
// LAYOUT
// =============================================================================

// Layout locates the header row and the data rows.
type Layout struct {
	// HeaderRow is the 0-based header row index. Default: 0 (Row 1).
	HeaderRow int

	// DataStartRow is the 0-based first data row. Default: HeaderRow+1.
	DataStartRow int
}

// DefaultLayout returns headers on row 1 and data from row 2.
func DefaultLayout() Layout {
	return Layout{HeaderRow: 0, DataStartRow: 1}
}

// =============================================================================
// SHEET
// =============================================================================

// Sheet is one parsed worksheet.
type Sheet struct {
	Name    string
	Headers []string

	// Rows maps header to cell value. Empty rows are skipped.
	Rows []map[string]string

	// RowNumbers holds the 1-based spreadsheet row of each entry in Rows.
	RowNumbers []int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile opens path and parses its first sheet.
func ParseFile(path string, layout Layout) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return parseFirst(f, layout)
}

// Parse reads a workbook from r and parses its first sheet.
func Parse(r io.Reader, layout Layout) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return parseFirst(f, layout)
}

func parseFirst(f *excelize.File, layout Layout) (*Sheet, error) {
	name := f.GetSheetName(0)
	if name == "" {
		return nil, ErrNoSheets
	}
	return parseSheet(f, name, layout)
}

// ParseWorkbook parses every sheet not prefixed with "_", in workbook order.
func ParseWorkbook(path string, layout Layout) ([]*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sheets []*Sheet
	for _, name := range f.GetSheetList() {
		if strings.HasPrefix(name, "_") {
			continue
		}

		sheet, err := parseSheet(f, name, layout)
		if err != nil {
			return nil, fmt.Errorf("error parsing sheet '%s': %w", name, err)
		}
		sheets = append(sheets, sheet)
	}

	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	return sheets, nil
}

func parseSheet(f *excelize.File, name string, layout Layout) (*Sheet, error) {
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	sheet := &Sheet{Name: name}
	if layout.HeaderRow >= len(rows) {
		return sheet, nil
	}

	sheet.Headers = cleanHeaders(rows[layout.HeaderRow])

	start := layout.DataStartRow
	if start <= layout.HeaderRow {
		start = layout.HeaderRow + 1
	}

	for i := start; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		values := make(map[string]string, len(sheet.Headers))
		for col, header := range sheet.Headers {
			if col < len(row) {
				values[header] = strings.TrimSpace(row[col])
			} else {
				values[header] = ""
			}
		}

		sheet.Rows = append(sheet.Rows, values)
		sheet.RowNumbers = append(sheet.RowNumbers, i+1)
	}

	return sheet, nil
}

func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
