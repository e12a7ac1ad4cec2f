// =============================================================================
// FeliCa Ledger - CSV Parser
// =============================================================================
//
// Reads delimited text files into header-keyed rows. Used for the station
// reference dataset, which is usually exported from a spreadsheet:
//   - UTF-8 byte order mark on the first header is stripped
//   - '#' comment lines are skipped
//   - rows may be ragged; missing cells read as ""
//
// Two entry points:
//   - Parse / ParseFile load everything into a Data value
//   - StreamingParser hands out one row at a time
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const utf8BOM = "\ufeff"

// ErrEmpty is returned for input without a header row.
var ErrEmpty = errors.New("csv input is empty")

// =============================================================================
// SETTINGS
// =============================================================================

// Settings controls how the input is tokenised.
type Settings struct {
	// Delimiter is the field separator. Accepts a single character or one of
	// "tab", "pipe", "semicolon". Default: ",".
	Delimiter string

	// HeaderRows is the number of header rows merged into column names.
	// Default: 1.
	HeaderRows int

	// Comment is the line comment prefix. Zero disables comments.
	Comment rune
}

// DefaultSettings returns comma separated, one header row, '#' comments.
func DefaultSettings() Settings {
	return Settings{Delimiter: ",", HeaderRows: 1, Comment: '#'}
}

func (s Settings) withDefaults() Settings {
	if s.HeaderRows <= 0 {
		s.HeaderRows = 1
	}
	if s.Delimiter == "" {
		s.Delimiter = ","
	}
	return s
}

// =============================================================================
// DATA
// =============================================================================

// Data is a fully parsed CSV input.
type Data struct {
	// Headers are the merged, cleaned column names.
	Headers []string

	// Rows maps header to cell value, one map per non-empty data row.
	Rows []map[string]string

	// Source is the file path, or "" for readers.
	Source string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile opens path and parses it with settings.
func ParseFile(path string, settings Settings) (*Data, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := Parse(file, settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	data.Source = path
	return data, nil
}

// Parse reads all rows from r.
func Parse(r io.Reader, settings Settings) (*Data, error) {
	p, err := NewStreamingParser(r, settings)
	if err != nil {
		return nil, err
	}

	data := &Data{Headers: p.Headers()}
	for p.Next() {
		data.Rows = append(data.Rows, p.Row())
	}
	if err := p.Err(); err != nil {
		return nil, err
	}

	return data, nil
}

func newReader(r io.Reader, settings Settings) *csv.Reader {
	reader := csv.NewReader(bufio.NewReader(r))

	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "pipe", "PIPE":
		reader.Comma = '|'
	case "semicolon":
		reader.Comma = ';'
	default:
		reader.Comma = []rune(settings.Delimiter)[0]
	}

	reader.Comment = settings.Comment
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader
}

// mergeHeaders joins the non-empty cells of each column across header rows.
//
//   Row 1: "Station", "",     "Code"
//   Row 2: "Name",    "Kana", "(hex)"
//   =>     "Station Name", "Kana", "Code (hex)"
func mergeHeaders(rows [][]string) []string {
	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range rows {
			if col < len(row) {
				if v := strings.TrimSpace(row[col]); v != "" {
					parts = append(parts, v)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers)
}

// cleanHeaders trims names, drops a leading BOM and names blank columns
// Column_N.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(strings.TrimPrefix(header, utf8BOM))
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

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser yields one row at a time.
//
//   p, err := csvparser.NewStreamingParser(r, csvparser.DefaultSettings())
//   if err != nil {
//       return err
//   }
//   for p.Next() {
//       row := p.Row()
//   }
//   return p.Err()
type StreamingParser struct {
	reader     *csv.Reader
	headers    []string
	currentRow map[string]string
	line       int
	err        error
}

// NewStreamingParser reads the header rows from r.
func NewStreamingParser(r io.Reader, settings Settings) (*StreamingParser, error) {
	settings = settings.withDefaults()
	p := &StreamingParser{reader: newReader(r, settings)}

	headerRows := make([][]string, 0, settings.HeaderRows)
	for i := 0; i < settings.HeaderRows; i++ {
		row, err := p.reader.Read()
		if err == io.EOF {
			if i == 0 {
				return nil, ErrEmpty
			}
			return nil, fmt.Errorf("unexpected end of input in header row %d", i+1)
		}
		if err != nil {
			return nil, fmt.Errorf("error reading header row %d: %w", i+1, err)
		}
		headerRows = append(headerRows, row)
	}

	p.headers = mergeHeaders(headerRows)
	return p, nil
}

// Next advances to the next non-empty row.
func (p *StreamingParser) Next() bool {
	for p.err == nil {
		row, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading record: %w", err)
			return false
		}

		p.line, _ = p.reader.FieldPos(0)
		if isRowEmpty(row) {
			continue
		}

		p.currentRow = make(map[string]string, len(p.headers))
		for i, header := range p.headers {
			if i < len(row) {
				p.currentRow[header] = strings.TrimSpace(row[i])
			} else {
				p.currentRow[header] = ""
			}
		}
		return true
	}
	return false
}

// Row returns the current row.
func (p *StreamingParser) Row() map[string]string {
	return p.currentRow
}

// Headers returns the merged header names.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// Line returns the input line of the current row, 1-based.
func (p *StreamingParser) Line() int {
	return p.line
}

// Err returns the first read error.
func (p *StreamingParser) Err() error {
	return p.err
}
