// =============================================================================
// FeliCa Ledger - Trip Reconstructor
// =============================================================================
//
// Gate records do not say whether they are an entry or an exit. Roles are
// inferred from alternation alone, walking the ledger oldest-first:
//
//   AwaitingEntry --station record--> Entry, AwaitingExit
//   AwaitingExit  --station record--> Exit,  AwaitingEntry
//   any state     --other record----> NotApplicable, state unchanged
//
// Ending in AwaitingExit is valid: the card was read mid-journey.
//
// =============================================================================

package ledger

import (
	"github.com/ginjaninja78/felica-ledger/internal/types"
)

// Resolver looks up a station name by its code triple.
type Resolver interface {
	Resolve(area, line, station int) (string, bool)
}

// TripState is the alternation state threaded through the fold.
type TripState int

const (
	AwaitingEntry TripState = iota
	AwaitingExit
)

// String returns the state name.
func (s TripState) String() string {
	if s == AwaitingExit {
		return "awaiting-exit"
	}
	return "awaiting-entry"
}

// Step tags one transaction and returns the next state.
func Step(state TripState, tx types.Transaction) (TripState, types.Transaction) {
	if !tx.HasStation() {
		tx.TripRole = types.TripNotApplicable
		return state, tx
	}

	if state == AwaitingEntry {
		tx.TripRole = types.TripEntry
		return AwaitingExit, tx
	}

	tx.TripRole = types.TripExit
	return AwaitingEntry, tx
}

// AssignTripRoles folds Step over a chronological (oldest-first) ledger.
// It returns a new ledger and the terminal state.
func AssignTripRoles(chronological types.Ledger) (types.Ledger, TripState) {
	out := make(types.Ledger, len(chronological))
	state := AwaitingEntry

	for i, tx := range chronological {
		state, out[i] = Step(state, tx)
	}

	return out, state
}

// Reconstruct assigns trip roles to a most-recent-first ledger, attaches
// station names from resolver and returns the result most-recent-first.
// A nil resolver leaves every name empty.
func Reconstruct(ledger types.Ledger, resolver Resolver) types.Ledger {
	tagged, _ := AssignTripRoles(ledger.Reversed())

	for i := range tagged {
		tagged[i] = enrich(tagged[i], resolver)
	}

	return tagged.Reversed()
}

// enrich replaces the station with a named copy. Unresolved stations keep
// an empty name.
func enrich(tx types.Transaction, resolver Resolver) types.Transaction {
	if !tx.HasStation() || resolver == nil {
		return tx
	}

	named := *tx.Station
	named.StationName = ""
	if name, ok := resolver.Resolve(named.AreaCode, named.LineCode, named.StationCode); ok {
		named.StationName = name
	}

	tx.Station = &named
	if _, ok := tx.Kind.(types.Train); ok {
		tx.Kind = types.Train{Station: named}
	}
	return tx
}
