package classifier

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ginjaninja78/felica-ledger/internal/types"
)

var testStation = types.StationCode{AreaCode: 0, LineCode: 0x2C, StationCode: 0x21}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		machineType byte
		processType byte
		want        types.TransactionKind
	}{
		{
			name:        "gate 0x03",
			machineType: 0x03, processType: 0x01,
			want: types.Train{Station: testStation},
		},
		{
			name:        "gate 0x16 wins over charge process",
			machineType: 0x16, processType: 0x02,
			want: types.Train{Station: testStation},
		},
		{
			name:        "bus reader",
			machineType: 0x05, processType: 0x0D,
			want: types.Bus{Stop: types.BusStop{OperatorCode: 0x2C, StopCode: 0x21}},
		},
		{
			name:        "shop terminal",
			machineType: 0xC7, processType: 0x46,
			want: types.Retail{TerminalType: 0xC7},
		},
		{
			name:        "shop terminal upper bound",
			machineType: 0xCB, processType: 0x00,
			want: types.Retail{TerminalType: 0xCB},
		},
		{
			name:        "charge machine",
			machineType: 0x08, processType: 0x02,
			want: types.Charge{},
		},
		{
			name:        "vending machine",
			machineType: 0x07, processType: 0x03,
			want: types.Charge{},
		},
		{
			name:        "mobile falls through to process charge",
			machineType: 0x12, processType: 0x02,
			want: types.Charge{},
		},
		{
			name:        "mobile falls through to fare payment",
			machineType: 0x12, processType: 0x01,
			want: types.Train{Station: testStation},
		},
		{
			name:        "unknown machine with bus fare process",
			machineType: 0x99, processType: 0x05,
			want: types.Bus{Stop: types.BusStop{OperatorCode: 0x2C, StopCode: 0x21}},
		},
		{
			name:        "unknown machine with adjustment",
			machineType: 0x99, processType: 0x04,
			want: types.Retail{TerminalType: 0x99},
		},
		{
			name:        "unknown machine with retail process 0x4B",
			machineType: 0x99, processType: 0x4B,
			want: types.Retail{TerminalType: 0x99},
		},
		{
			name:        "nothing matches",
			machineType: 0x99, processType: 0x77,
			want: types.Unknown{RawCode: 0x99},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.machineType, tt.processType, testStation)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	for m := 0; m < 256; m++ {
		for p := 0; p < 256; p++ {
			kind := Classify(byte(m), byte(p), testStation)
			if kind == nil {
				t.Fatalf("Classify(0x%02X, 0x%02X) returned nil", m, p)
			}
			if u, ok := kind.(types.Unknown); ok && u.RawCode != byte(m) {
				t.Fatalf("Unknown.RawCode = 0x%02X, want 0x%02X", u.RawCode, m)
			}
		}
	}
}

func TestClassifyWithRule(t *testing.T) {
	_, name := ClassifyWithRule(Input{MachineType: 0x12, ProcessType: 0x46})
	if name != "process/retail" {
		t.Errorf("rule = %q, want process/retail", name)
	}
	_, name = ClassifyWithRule(Input{MachineType: 0x00, ProcessType: 0x00})
	if name != "fallback/unknown" {
		t.Errorf("rule = %q, want fallback/unknown", name)
	}
}

func TestApply(t *testing.T) {
	tx := types.Transaction{MachineTypeCode: 0x03, ProcessTypeCode: 0x01}
	Apply(&tx, testStation)
	if tx.Station == nil || *tx.Station != testStation {
		t.Fatalf("Station = %v, want %v", tx.Station, testStation)
	}

	tx = types.Transaction{MachineTypeCode: 0x08, ProcessTypeCode: 0x02, Station: &testStation}
	Apply(&tx, testStation)
	if tx.Station != nil {
		t.Errorf("charge record kept a station: %v", tx.Station)
	}
	if tx.KindTag() != types.KindCharge {
		t.Errorf("KindTag() = %v, want charge", tx.KindTag())
	}
}

func TestTitles(t *testing.T) {
	if got := MachineTitle(0x16); got != "Ticket Gate" {
		t.Errorf("MachineTitle(0x16) = %q", got)
	}
	if got := MachineTitle(0xAB); got != "Unknown (0xAB)" {
		t.Errorf("MachineTitle(0xAB) = %q", got)
	}
	if got := ProcessTitle(0x04); got != "Fare Adjustment" {
		t.Errorf("ProcessTitle(0x04) = %q", got)
	}
	if got := ProcessTitle(0xFF); got != "Unknown" {
		t.Errorf("ProcessTitle(0xFF) = %q", got)
	}
}
