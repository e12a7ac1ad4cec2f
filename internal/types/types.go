// =============================================================================
// FeliCa Ledger - Shared Types
// =============================================================================
//
// This package contains the data model shared by the decoder, classifier,
// ledger builder, trip reconstructor and every writer. Keeping it in one
// leaf package avoids import cycles between those modules.
//
// =============================================================================

package types

import (
	"fmt"
	"time"
)

// =============================================================================
// DATES
// =============================================================================

// DecodedDate is a calendar date unpacked from a history record.
// A zero Valid flag marks the "unknown date" sentinel.
type DecodedDate struct {
	Year  int
	Month int
	Day   int
	Valid bool
}

// UnknownDate returns the sentinel used when a packed date fails validation.
func UnknownDate() DecodedDate {
	return DecodedDate{}
}

// String formats the date as YYYY-MM-DD, or "unknown" for the sentinel.
func (d DecodedDate) String() string {
	if !d.Valid {
		return "unknown"
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time converts the date to a UTC midnight time.Time.
// The second return value is false for the sentinel.
func (d DecodedDate) Time() (time.Time, bool) {
	if !d.Valid {
		return time.Time{}, false
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC), true
}

// =============================================================================
// STATIONS
// =============================================================================

// UnknownStationName is the display fallback for unresolved stations.
const UnknownStationName = "Unknown Station"

// StationKey is the identity of a station: the (area, line, station) triple.
type StationKey struct {
	Area    int
	Line    int
	Station int
}

// String renders the key as "area-line-station".
func (k StationKey) String() string {
	return fmt.Sprintf("%d-%d-%d", k.Area, k.Line, k.Station)
}

// StationCode is the station triple decoded from a record, plus the
// optional name attached by the station resolver.
type StationCode struct {
	AreaCode    int
	LineCode    int
	StationCode int

	// StationName is empty until resolved. It is never fabricated.
	StationName string
}

// Key returns the identity triple.
func (s StationCode) Key() StationKey {
	return StationKey{Area: s.AreaCode, Line: s.LineCode, Station: s.StationCode}
}

// HasName reports whether the resolver attached a name.
func (s StationCode) HasName() bool {
	return s.StationName != ""
}

// DisplayName returns the resolved name or UnknownStationName.
func (s StationCode) DisplayName() string {
	if s.HasName() {
		return s.StationName
	}
	return UnknownStationName
}

// =============================================================================
// TRANSACTION KINDS
// =============================================================================

// KindTag identifies which TransactionKind variant is populated.
type KindTag int

const (
	KindUnknown KindTag = iota
	KindTrain
	KindBus
	KindRetail
	KindCharge
)

// String returns the lowercase variant name.
func (k KindTag) String() string {
	switch k {
	case KindTrain:
		return "train"
	case KindBus:
		return "bus"
	case KindRetail:
		return "retail"
	case KindCharge:
		return "charge"
	default:
		return "unknown"
	}
}

// TransactionKind is the closed set of record classifications.
// The variants are Train, Bus, Retail, Charge and Unknown.
type TransactionKind interface {
	Tag() KindTag
	isTransactionKind()
}

// Train is a gate or fare record bound to a station.
type Train struct {
	Station StationCode
}

// BusStop identifies a bus operator and stop.
type BusStop struct {
	OperatorCode int
	StopCode     int
}

// Bus is a bus fare record.
type Bus struct {
	Stop BusStop
}

// Retail is a purchase at a shop terminal, ticket machine or fare adjuster.
// Amount is filled in once the balance delta is known.
type Retail struct {
	TerminalType byte
	Amount       *int
}

// Charge is a balance top-up. Amount is the delta once known.
type Charge struct {
	Amount int
}

// Unknown carries the machine-type byte of a record no rule could classify.
type Unknown struct {
	RawCode byte
}

func (Train) Tag() KindTag   { return KindTrain }
func (Bus) Tag() KindTag     { return KindBus }
func (Retail) Tag() KindTag  { return KindRetail }
func (Charge) Tag() KindTag  { return KindCharge }
func (Unknown) Tag() KindTag { return KindUnknown }

func (Train) isTransactionKind()   {}
func (Bus) isTransactionKind()     {}
func (Retail) isTransactionKind()  {}
func (Charge) isTransactionKind()  {}
func (Unknown) isTransactionKind() {}

// =============================================================================
// TRIP ROLES
// =============================================================================

// TripRole is the entry/exit tag assigned by the trip reconstructor.
type TripRole int

const (
	TripNotApplicable TripRole = iota
	TripEntry
	TripExit
)

// String returns "entry", "exit" or "n/a".
func (r TripRole) String() string {
	switch r {
	case TripEntry:
		return "entry"
	case TripExit:
		return "exit"
	default:
		return "n/a"
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// Transaction is one decoded, classified history record.
//
// Balance and PreviousBalance are card state. The delta is always derived
// from them and never stored.
type Transaction struct {
	// Date is the record date, or the unknown-date sentinel.
	Date DecodedDate

	// MachineTypeCode is byte 0 of the raw block.
	MachineTypeCode byte

	// ProcessTypeCode is byte 1 of the raw block.
	ProcessTypeCode byte

	// Kind is set by the classifier. Exactly one variant per record.
	Kind TransactionKind

	// Station is non-nil only for station-bearing (Train) records.
	Station *StationCode

	// Balance is the signed 16-bit balance after this record.
	Balance int16

	// PreviousBalance is the balance of the next-older record, if known.
	PreviousBalance *int16

	// TripRole is set by the trip reconstructor.
	TripRole TripRole
}

// Delta returns Balance - PreviousBalance. ok is false when no previous
// balance is known.
func (t Transaction) Delta() (delta int, ok bool) {
	if t.PreviousBalance == nil {
		return 0, false
	}
	return int(t.Balance) - int(*t.PreviousBalance), true
}

// HasStation reports whether the record takes part in trip reconstruction.
func (t Transaction) HasStation() bool {
	return t.Station != nil
}

// KindTag returns the tag of the populated variant, KindUnknown if unset.
func (t Transaction) KindTag() KindTag {
	if t.Kind == nil {
		return KindUnknown
	}
	return t.Kind.Tag()
}

// Ledger is an ordered transaction list. Presentation order is
// most-recent-first.
type Ledger []Transaction

// Reversed returns a reversed copy of the ledger.
func (l Ledger) Reversed() Ledger {
	out := make(Ledger, len(l))
	for i, tx := range l {
		out[len(l)-1-i] = tx
	}
	return out
}
