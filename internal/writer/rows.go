// =============================================================================
// FeliCa Ledger - Ledger Rows
// =============================================================================
//
// Flattens a snapshot into display rows shared by every output format.
// Kind-specific display rules live here:
//
//   | kind    | title   | subtitle   | category  |
//   |---------|---------|------------|-----------|
//   | Train   | Train   | ¥|delta|   | transport |
//   | Bus     | Bus     | ¥|delta|   | transport |
//   | Retail  | Shop    | ¥|delta|   | shopping  |
//   | Charge  | Card    | ¥|delta|   | charge    |
//   | Unknown | Unknown | 0xNN       | unknown   |
//
// The delta keeps its sign in the Delta column; only the subtitle shows the
// magnitude.
//
// =============================================================================

package writer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ginjaninja78/felica-ledger/internal/classifier"
	"github.com/ginjaninja78/felica-ledger/internal/scanner"
	"github.com/ginjaninja78/felica-ledger/internal/types"
)

// Descriptor is the short display form of a transaction.
type Descriptor struct {
	Title    string
	Subtitle string
	Category string
}

// Describe returns the display descriptor of tx.
func Describe(tx types.Transaction) Descriptor {
	amount := ""
	if delta, ok := tx.Delta(); ok {
		if delta < 0 {
			delta = -delta
		}
		amount = fmt.Sprintf("¥%d", delta)
	}

	switch k := tx.Kind.(type) {
	case types.Train:
		return Descriptor{Title: "Train", Subtitle: amount, Category: "transport"}
	case types.Bus:
		return Descriptor{Title: "Bus", Subtitle: amount, Category: "transport"}
	case types.Retail:
		return Descriptor{Title: "Shop", Subtitle: amount, Category: "shopping"}
	case types.Charge:
		return Descriptor{Title: "Card", Subtitle: amount, Category: "charge"}
	case types.Unknown:
		return Descriptor{Title: "Unknown", Subtitle: fmt.Sprintf("0x%02X", k.RawCode), Category: "unknown"}
	default:
		return Descriptor{Title: "Unknown", Category: "unknown"}
	}
}

// Row is one transaction flattened to strings and numbers.
type Row struct {
	Index       int    `json:"index"`
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Category    string `json:"category"`
	MachineType string `json:"machineType"`
	MachineCode string `json:"machineCode"`
	ProcessType string `json:"processType"`
	ProcessCode string `json:"processCode"`
	Station     string `json:"station,omitempty"`
	StationCode string `json:"stationCode,omitempty"`
	TripRole    string `json:"tripRole"`
	Balance     int    `json:"balance"`

	// PreviousBalance and Delta are nil when unknown.
	PreviousBalance *int `json:"previousBalance"`
	Delta           *int `json:"delta"`
}

// NewRow flattens the transaction at ledger position index.
func NewRow(index int, tx types.Transaction) Row {
	d := Describe(tx)
	row := Row{
		Index:       index,
		Date:        tx.Date.String(),
		Kind:        tx.KindTag().String(),
		Title:       d.Title,
		Subtitle:    d.Subtitle,
		Category:    d.Category,
		MachineType: classifier.MachineTitle(tx.MachineTypeCode),
		MachineCode: fmt.Sprintf("0x%02X", tx.MachineTypeCode),
		ProcessType: classifier.ProcessTitle(tx.ProcessTypeCode),
		ProcessCode: fmt.Sprintf("0x%02X", tx.ProcessTypeCode),
		TripRole:    tx.TripRole.String(),
		Balance:     int(tx.Balance),
	}

	if tx.Station != nil {
		row.Station = tx.Station.DisplayName()
		row.StationCode = tx.Station.Key().String()
	}
	if tx.PreviousBalance != nil {
		prev := int(*tx.PreviousBalance)
		row.PreviousBalance = &prev
	}
	if delta, ok := tx.Delta(); ok {
		row.Delta = &delta
	}

	return row
}

// Columns are the tabular headers matching Row.Values.
var Columns = []string{
	"Index", "Date", "Kind", "Title", "Subtitle", "Category",
	"Machine Type", "Machine Code", "Process Type", "Process Code",
	"Station", "Station Code", "Trip Role", "Balance", "Previous Balance", "Delta",
}

// Values returns the row in Columns order.
func (r Row) Values() []string {
	return []string{
		strconv.Itoa(r.Index), r.Date, r.Kind, r.Title, r.Subtitle, r.Category,
		r.MachineType, r.MachineCode, r.ProcessType, r.ProcessCode,
		r.Station, r.StationCode, r.TripRole, strconv.Itoa(r.Balance),
		optionalInt(r.PreviousBalance), optionalInt(r.Delta),
	}
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// Document is everything an output format writes for one scan.
type Document struct {
	Source    string    `json:"source"`
	ScanID    string    `json:"scanId"`
	ScannedAt time.Time `json:"scannedAt"`
	Balance   int       `json:"balance"`
	Rows      []Row     `json:"transactions"`
}

// NewDocument builds a document from a snapshot. source names the dump or
// device the scan came from.
func NewDocument(snap *scanner.Snapshot, source string) Document {
	doc := Document{
		Source:    source,
		ScanID:    snap.ID,
		ScannedAt: snap.ScannedAt,
		Balance:   int(snap.Balance),
		Rows:      make([]Row, len(snap.Ledger)),
	}
	for i, tx := range snap.Ledger {
		doc.Rows[i] = NewRow(i, tx)
	}
	return doc
}
