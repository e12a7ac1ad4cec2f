// =============================================================================
// FeliCa Ledger - Station Reference Table
// =============================================================================
//
// In-memory lookup from (area, line, station) to station metadata. Loaded
// once and read-only afterwards; safe for concurrent Resolve calls.
//
// Codes are stored in the same integer domain the decoder produces, so the
// hex strings of the source datasets are normalised at load time.
//
// =============================================================================

package stations

import (
	"sort"

	"github.com/ginjaninja78/felica-ledger/internal/types"
)

// Entry is one station of the reference dataset.
type Entry struct {
	Key         types.StationKey
	Company     string
	Line        string
	Name        string
	RomanjiName string
	Remark      Remark
}

// LoadStats counts what a loader did with the input rows.
type LoadStats struct {
	Loaded     int
	Skipped    int
	Duplicates int
}

// Table is the station lookup table.
type Table struct {
	entries map[types.StationKey]Entry
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[types.StationKey]Entry)}
}

// Add inserts e. The first entry for a key wins; Add reports false for
// duplicates.
func (t *Table) Add(e Entry) bool {
	if _, exists := t.entries[e.Key]; exists {
		return false
	}
	t.entries[e.Key] = e
	return true
}

// Merge adds every entry of other that t does not have yet and returns the
// number added.
func (t *Table) Merge(other *Table) int {
	added := 0
	for _, e := range other.Entries() {
		if t.Add(e) {
			added++
		}
	}
	return added
}

// Lookup returns the entry for key.
func (t *Table) Lookup(key types.StationKey) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[key]
	return e, ok
}

// Resolve returns the station name for a decoded code triple. A nil table
// resolves nothing.
func (t *Table) Resolve(area, line, station int) (string, bool) {
	e, ok := t.Lookup(types.StationKey{Area: area, Line: line, Station: station})
	if !ok || e.Name == "" {
		return "", false
	}
	return e.Name, true
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns all entries ordered by area, line, station.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}

	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.Area != b.Area {
			return a.Area < b.Area
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Station < b.Station
	})
	return out
}
