package stations

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/felica-ledger/internal/csvparser"
	"github.com/ginjaninja78/felica-ledger/internal/xlsxparser"
)

// LoadCSV reads a delimited station dataset with the Headers columns.
func LoadCSV(path string, settings csvparser.Settings) (*Table, LoadStats, error) {
	data, err := csvparser.ParseFile(path, settings)
	if err != nil {
		return nil, LoadStats{}, err
	}
	if err := requireHeaders(data.Headers); err != nil {
		return nil, LoadStats{}, fmt.Errorf("%s: %w", path, err)
	}

	table := NewTable()
	var stats LoadStats
	addRows(table, &stats, data.Rows)
	return table, stats, nil
}

// LoadXLSX reads every sheet of a station workbook. Sheets without the
// dataset headers are ignored.
func LoadXLSX(path string) (*Table, LoadStats, error) {
	sheets, err := xlsxparser.ParseWorkbook(path, xlsxparser.DefaultLayout())
	if err != nil {
		return nil, LoadStats{}, err
	}

	table := NewTable()
	var stats LoadStats
	matched := 0

	for _, sheet := range sheets {
		if requireHeaders(sheet.Headers) != nil {
			continue
		}
		matched++
		addRows(table, &stats, sheet.Rows)
	}

	if matched == 0 {
		return nil, LoadStats{}, fmt.Errorf("%s: no sheet has the station dataset headers", path)
	}
	return table, stats, nil
}

// LoadJSONFile opens path and calls LoadJSON.
func LoadJSONFile(path string) (*Table, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to open station file: %w", err)
	}
	defer f.Close()

	table, stats, err := LoadJSON(f)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", path, err)
	}
	return table, stats, nil
}

// Load picks a loader by file extension: .json, .csv, .tsv or .xlsx.
func Load(path string) (*Table, LoadStats, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return LoadJSONFile(path)
	case ".csv":
		return LoadCSV(path, csvparser.DefaultSettings())
	case ".tsv":
		settings := csvparser.DefaultSettings()
		settings.Delimiter = "tab"
		return LoadCSV(path, settings)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, LoadStats{}, fmt.Errorf("unsupported station file type %q", ext)
	}
}

func requireHeaders(headers []string) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	for _, h := range []string{HeaderArea, HeaderLine, HeaderStation, HeaderName} {
		if !present[h] {
			return fmt.Errorf("missing column %q", h)
		}
	}
	return nil
}
