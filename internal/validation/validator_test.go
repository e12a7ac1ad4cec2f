package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/felica-ledger/internal/ledger"
	"github.com/ginjaninja78/felica-ledger/internal/types"
)

func balance(v int16) *int16 { return &v }

func date(day int) types.DecodedDate {
	return types.DecodedDate{Year: 2023, Month: 7, Day: day, Valid: true}
}

func gateTx(day int, role types.TripRole, bal, prev int16) types.Transaction {
	st := types.StationCode{AreaCode: 0, LineCode: 0x25, StationCode: day}
	return types.Transaction{
		Date:            date(day),
		MachineTypeCode: 0x16,
		ProcessTypeCode: 0x01,
		Kind:            types.Train{Station: st},
		Station:         &st,
		Balance:         bal,
		PreviousBalance: balance(prev),
		TripRole:        role,
	}
}

func rules(errs []*ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Rule
	}
	return out
}

func TestValidateCleanLedger(t *testing.T) {
	l := types.Ledger{
		gateTx(3, types.TripExit, 800, 1000),
		{
			Date: date(2), MachineTypeCode: 0x08, ProcessTypeCode: 0x02,
			Kind: types.Charge{Amount: 500}, Balance: 1000, PreviousBalance: balance(500),
		},
		gateTx(1, types.TripEntry, 500, 500),
	}

	result := NewValidator().ValidateAll(l, nil)
	if !result.IsValid || len(result.Errors) != 0 {
		t.Errorf("unexpected findings:\n%s", FormatErrors(result.Errors))
	}
	if result.TransactionsValidated != 3 {
		t.Errorf("TransactionsValidated = %d", result.TransactionsValidated)
	}
}

func TestValidateFindings(t *testing.T) {
	amount := -50
	l := types.Ledger{
		gateTx(5, types.TripEntry, 100, 200),
		gateTx(4, types.TripEntry, 200, 300),
		{
			Date: date(6), MachineTypeCode: 0xC7, ProcessTypeCode: 0x46,
			Kind: types.Retail{TerminalType: 0xC7, Amount: &amount}, Balance: 300, PreviousBalance: balance(400),
		},
		{
			Date: types.UnknownDate(), MachineTypeCode: 0x99, ProcessTypeCode: 0x77,
			Kind: types.Unknown{RawCode: 0x99}, Balance: 400,
		},
	}

	result := NewValidator().ValidateAll(l, []ledger.Dropped{{Index: 9, Reason: ledger.DropInvalidDate}})

	got := strings.Join(rules(result.Errors), ",")
	want := "amount,balance,unclassified,undated,date-order,alternation,dropped"
	if got != want {
		t.Errorf("rules = %s, want %s\n%s", got, want, FormatErrors(result.Errors))
	}
	if result.IsValid {
		t.Error("result should be invalid")
	}
	if result.ErrorCount != 3 || result.WarningCount != 4 {
		t.Errorf("counts = %d errors, %d warnings", result.ErrorCount, result.WarningCount)
	}
}

func TestValidateStationConsistency(t *testing.T) {
	st := types.StationCode{LineCode: 1}
	l := types.Ledger{
		{Date: date(2), Kind: types.Charge{Amount: 0}, Station: &st, Balance: 1, PreviousBalance: balance(1)},
		{Date: date(1), Kind: types.Bus{}, TripRole: types.TripExit, Balance: 1, PreviousBalance: balance(1)},
	}

	got := strings.Join(rules(Validate(l)), ",")
	if got != "station,trip-role" {
		t.Errorf("rules = %s", got)
	}
}

func TestWarningsOnlyOptions(t *testing.T) {
	l := types.Ledger{{Date: date(1), Kind: types.Unknown{RawCode: 0x42}, Balance: 1, PreviousBalance: balance(1)}}

	if r := NewValidator().ValidateAll(l, nil); !r.IsValid || r.WarningCount != 1 {
		t.Errorf("default: %+v", r)
	}

	strict := NewValidatorWithOptions(ValidationOptions{TreatWarningsAsErrors: true, ReportUnknown: true})
	if r := strict.ValidateAll(l, nil); r.IsValid {
		t.Error("warnings should invalidate in strict mode")
	}

	quiet := NewValidatorWithOptions(ValidationOptions{})
	if r := quiet.ValidateAll(l, nil); len(r.Errors) != 0 {
		t.Errorf("unknown kinds reported with ReportUnknown off: %s", FormatErrors(r.Errors))
	}
}

func TestWriteErrorLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")
	errs := []*ValidationError{{Severity: SeverityWarning, Rule: "undated", Index: 2, Date: "unknown", Message: "bad date"}}

	if err := WriteErrorLog(errs, "card.dump", path); err != nil {
		t.Fatalf("WriteErrorLog() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "Source: card.dump") || !strings.Contains(content, "[WARNING] #2 (unknown) undated: bad date") {
		t.Errorf("log content:\n%s", content)
	}

	if FormatErrors(nil) != "No validation errors." {
		t.Error("unexpected empty format")
	}
}
