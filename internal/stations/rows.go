package stations

import (
	"fmt"
	"strconv"
	"strings"
)

// Column headers of the CSV and XLSX station datasets. All codes are hex.
const (
	HeaderArea     = "地区コード(16進)"
	HeaderLine     = "線区コード(16進)"
	HeaderStation  = "駅順コード(16進)"
	HeaderCompany  = "会社名"
	HeaderLineName = "線区名"
	HeaderName     = "駅名"
	HeaderRemark   = "備考"

	// HeaderRomanji is optional.
	HeaderRomanji = "ローマ字"
)

// Headers lists the dataset columns in file order.
var Headers = []string{HeaderArea, HeaderLine, HeaderStation, HeaderCompany, HeaderLineName, HeaderName, HeaderRemark}

func parseHexCode(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, fmt.Errorf("empty code")
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid hex code %q: %w", s, err)
	}
	return int(v), nil
}

// entryFromRow converts one header-keyed row.
func entryFromRow(row map[string]string) (Entry, error) {
	area, err := parseHexCode(row[HeaderArea])
	if err != nil {
		return Entry{}, fmt.Errorf("area: %w", err)
	}
	line, err := parseHexCode(row[HeaderLine])
	if err != nil {
		return Entry{}, fmt.Errorf("line: %w", err)
	}
	station, err := parseHexCode(row[HeaderStation])
	if err != nil {
		return Entry{}, fmt.Errorf("station: %w", err)
	}

	e := Entry{
		Company:     row[HeaderCompany],
		Line:        row[HeaderLineName],
		Name:        row[HeaderName],
		RomanjiName: row[HeaderRomanji],
		Remark:      ParseRemark(row[HeaderRemark]),
	}
	e.Key.Area, e.Key.Line, e.Key.Station = area, line, station
	return e, nil
}

// addRows loads rows into table, counting skips and duplicates.
func addRows(table *Table, stats *LoadStats, rows []map[string]string) {
	for _, row := range rows {
		e, err := entryFromRow(row)
		if err != nil {
			stats.Skipped++
			continue
		}
		if table.Add(e) {
			stats.Loaded++
		} else {
			stats.Duplicates++
		}
	}
}
