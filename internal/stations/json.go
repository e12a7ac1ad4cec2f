package stations

import (
	"encoding/json"
	"fmt"
	"io"
)

// jsonStation is one element of stationcodes.json. areaCode is decimal;
// lineCode and stationCode are hex strings.
type jsonStation struct {
	AreaCode    *int    `json:"areaCode"`
	LineCode    *string `json:"lineCode"`
	StationCode *string `json:"stationCode"`
	Company     string  `json:"company"`
	Line        string  `json:"line"`
	StationName string  `json:"stationName"`
	RomanjiName string  `json:"romanjiName,omitempty"`
}

// LoadJSON reads a stationcodes.json array. Elements with a missing or
// unparsable code are skipped.
func LoadJSON(r io.Reader) (*Table, LoadStats, error) {
	var raw []jsonStation
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to decode station JSON: %w", err)
	}

	table := NewTable()
	var stats LoadStats

	for _, s := range raw {
		if s.AreaCode == nil || s.LineCode == nil || s.StationCode == nil {
			stats.Skipped++
			continue
		}

		line, err := parseHexCode(*s.LineCode)
		if err != nil {
			stats.Skipped++
			continue
		}
		station, err := parseHexCode(*s.StationCode)
		if err != nil {
			stats.Skipped++
			continue
		}

		entry := Entry{
			Company:     s.Company,
			Line:        s.Line,
			Name:        s.StationName,
			RomanjiName: s.RomanjiName,
		}
		entry.Key.Area = *s.AreaCode
		entry.Key.Line = line
		entry.Key.Station = station

		if table.Add(entry) {
			stats.Loaded++
		} else {
			stats.Duplicates++
		}
	}

	return table, stats, nil
}
