// =============================================================================
// FeliCa Ledger - Transaction Classifier
// =============================================================================
//
// Neither code space is reliable on its own across issuers and third-party
// terminals, so classification runs an ordered list of rules:
//
//   1. machine type, when it maps to a confident category
//   2. process type
//   3. Unknown(machineTypeCode)
//
// The first matching rule wins. Every byte combination maps to a variant.
//
// =============================================================================

package classifier

import (
	"github.com/ginjaninja78/felica-ledger/internal/types"
)

// Input is what a rule looks at.
type Input struct {
	MachineType byte
	ProcessType byte
	Station     types.StationCode
}

// rule is one (predicate, mapper) step of the cascade.
type rule struct {
	name  string
	match func(in Input) bool
	build func(in Input) types.TransactionKind
}

func train(in Input) types.TransactionKind {
	return types.Train{Station: in.Station}
}

// Bus records reuse the station bytes: line byte is the operator, station
// byte is the stop.
func bus(in Input) types.TransactionKind {
	return types.Bus{Stop: types.BusStop{OperatorCode: in.Station.LineCode, StopCode: in.Station.StationCode}}
}

func retail(in Input) types.TransactionKind {
	return types.Retail{TerminalType: in.MachineType}
}

func machineIs(categories ...MachineCategory) func(Input) bool {
	return func(in Input) bool {
		got := MachineCategoryOf(in.MachineType)
		for _, c := range categories {
			if got == c {
				return true
			}
		}
		return false
	}
}

func processIs(categories ...ProcessCategory) func(Input) bool {
	return func(in Input) bool {
		got := ProcessCategoryOf(in.ProcessType)
		for _, c := range categories {
			if got == c {
				return true
			}
		}
		return false
	}
}

func buildCharge(Input) types.TransactionKind {
	return types.Charge{}
}

// cascade is evaluated top to bottom. Mobile (0x12) has no machine rule
// and always falls through to the process type.
var cascade = []rule{
	{name: "machine/gate", match: machineIs(MachineGate), build: train},
	{name: "machine/bus", match: machineIs(MachineBus), build: bus},
	{name: "machine/retail", match: machineIs(MachineRetail), build: retail},
	{name: "machine/charge", match: machineIs(MachineCharge, MachineVending), build: buildCharge},

	{name: "process/fare", match: processIs(ProcessFarePayment), build: train},
	{name: "process/bus", match: processIs(ProcessBusFare), build: bus},
	{name: "process/charge", match: processIs(ProcessCharge), build: buildCharge},
	{name: "process/retail", match: processIs(ProcessTicketPurchase, ProcessAdjustment, ProcessRetail), build: retail},
}

// Classify maps a record's code bytes to a TransactionKind. It never fails;
// records no rule matches become Unknown carrying the machine-type byte.
func Classify(machineType, processType byte, station types.StationCode) types.TransactionKind {
	kind, _ := ClassifyWithRule(Input{MachineType: machineType, ProcessType: processType, Station: station})
	return kind
}

// ClassifyWithRule is Classify that also reports which rule matched.
// The rule name is "fallback/unknown" when nothing matched.
func ClassifyWithRule(in Input) (types.TransactionKind, string) {
	for _, r := range cascade {
		if r.match(in) {
			return r.build(in), r.name
		}
	}
	return types.Unknown{RawCode: in.MachineType}, "fallback/unknown"
}

// Apply classifies tx in place. Train records get their station attached;
// every other kind has Station cleared.
func Apply(tx *types.Transaction, station types.StationCode) {
	tx.Kind = Classify(tx.MachineTypeCode, tx.ProcessTypeCode, station)
	tx.Station = nil
	if t, ok := tx.Kind.(types.Train); ok {
		s := t.Station
		tx.Station = &s
	}
}
