package ledger

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ginjaninja78/felica-ledger/internal/decoder"
	"github.com/ginjaninja78/felica-ledger/internal/types"
)

func TestBuildDropsOldest(t *testing.T) {
	blocks := [][]byte{
		gate(4, 700),
		gate(3, 900),
		chargeBlock(2, 1100),
		gate(1, 100),
	}

	report := Build(blocks, Options{})

	if len(report.Ledger) != len(blocks)-1 {
		t.Fatalf("len(Ledger) = %d, want %d", len(report.Ledger), len(blocks)-1)
	}
	if report.Anchor == nil || report.Anchor.Balance != 100 {
		t.Fatalf("Anchor = %+v, want balance 100", report.Anchor)
	}
	if len(report.Dropped) != 0 {
		t.Errorf("Dropped = %+v, want none", report.Dropped)
	}

	wantPrev := []int16{900, 1100, 100}
	wantDelta := []int{-200, -200, 1000}
	for i, tx := range report.Ledger {
		if tx.PreviousBalance == nil || *tx.PreviousBalance != wantPrev[i] {
			t.Errorf("ledger[%d].PreviousBalance = %v, want %d", i, tx.PreviousBalance, wantPrev[i])
		}
		delta, ok := tx.Delta()
		if !ok || delta != wantDelta[i] {
			t.Errorf("ledger[%d].Delta() = %d, %v, want %d", i, delta, ok, wantDelta[i])
		}
	}

	if diff := cmp.Diff(types.Charge{Amount: 1000}, report.Ledger[2].Kind); diff != "" {
		t.Errorf("charge kind mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFillsRetailAmount(t *testing.T) {
	report := Build([][]byte{shop(2, 850), gate(1, 1000)}, Options{})
	if len(report.Ledger) != 1 {
		t.Fatalf("len(Ledger) = %d, want 1", len(report.Ledger))
	}

	kind, ok := report.Ledger[0].Kind.(types.Retail)
	if !ok {
		t.Fatalf("Kind = %T, want Retail", report.Ledger[0].Kind)
	}
	if kind.Amount == nil || *kind.Amount != -150 {
		t.Errorf("Retail.Amount = %v, want -150", kind.Amount)
	}
	if kind.TerminalType != 0xC7 {
		t.Errorf("Retail.TerminalType = 0x%02X, want 0xC7", kind.TerminalType)
	}
	if report.Ledger[0].Station != nil {
		t.Errorf("retail record has a station: %+v", report.Ledger[0].Station)
	}
}

func TestBuildDropsInvalidBlocks(t *testing.T) {
	undated := gate(3, 500)
	undated[5] &^= 0x1F // day 0

	blocks := [][]byte{
		gate(5, 300),
		{0x16, 0x01, 0x00},
		undated,
		gate(2, 600),
		gate(1, 800),
	}

	report := Build(blocks, Options{})

	if len(report.Ledger) != 2 {
		t.Fatalf("len(Ledger) = %d, want 2", len(report.Ledger))
	}
	if got := *report.Ledger[0].PreviousBalance; got != 600 {
		t.Errorf("ledger[0].PreviousBalance = %d, want 600", got)
	}

	if len(report.Dropped) != 2 {
		t.Fatalf("Dropped = %+v, want 2 entries", report.Dropped)
	}

	short := report.Dropped[0]
	if short.Index != 1 || short.Reason != DropInvalidLength || !errors.Is(short.Err, decoder.ErrInvalidBlock) {
		t.Errorf("Dropped[0] = %+v", short)
	}

	dateless := report.Dropped[1]
	if dateless.Index != 2 || dateless.Reason != DropInvalidDate || !errors.Is(dateless.Err, decoder.ErrInvalidDate) {
		t.Errorf("Dropped[1] = %+v", dateless)
	}
}

func TestBuildKeepUndated(t *testing.T) {
	undated := gate(3, 500)
	undated[5] &^= 0x1F

	report := Build([][]byte{undated, gate(1, 800)}, Options{KeepUndated: true})

	if len(report.Ledger) != 1 {
		t.Fatalf("len(Ledger) = %d, want 1", len(report.Ledger))
	}
	if report.Ledger[0].Date.Valid {
		t.Errorf("Date = %v, want sentinel", report.Ledger[0].Date)
	}
	if delta, _ := report.Ledger[0].Delta(); delta != -300 {
		t.Errorf("Delta() = %d, want -300", delta)
	}
}

func TestBuildEmptyAndSingle(t *testing.T) {
	if got := BuildLedger(nil); len(got) != 0 {
		t.Errorf("BuildLedger(nil) = %v, want empty", got)
	}

	report := Build([][]byte{gate(1, 100)}, Options{})
	if len(report.Ledger) != 0 {
		t.Errorf("single block produced %d transactions", len(report.Ledger))
	}
	if report.Anchor == nil {
		t.Error("single block should become the anchor")
	}

	empty := Build([][]byte{make([]byte, decoder.BlockSize)}, Options{})
	if empty.Anchor != nil || len(empty.Dropped) != 1 {
		t.Errorf("empty slot: Anchor = %v, Dropped = %v", empty.Anchor, empty.Dropped)
	}
}

func TestBuildDeltaInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	machines := []byte{0x03, 0x05, 0x08, 0xC8, 0x12, 0x99}

	for round := 0; round < 200; round++ {
		n := 2 + rng.Intn(19)
		blocks := make([][]byte, n)
		for i := range blocks {
			m := machines[rng.Intn(len(machines))]
			blocks[i] = block(m, byte(rng.Intn(6)), byte(rng.Intn(4)), 2020+rng.Intn(5), 1+rng.Intn(12), 1+rng.Intn(28), int16(rng.Intn(20000)-5000))
		}

		report := Build(blocks, Options{})
		if len(report.Ledger) != n-1 {
			t.Fatalf("round %d: len(Ledger) = %d, want %d", round, len(report.Ledger), n-1)
		}

		for i, tx := range report.Ledger {
			delta, ok := tx.Delta()
			if !ok {
				t.Fatalf("round %d: ledger[%d] has no previous balance", round, i)
			}
			if delta != int(tx.Balance)-int(*tx.PreviousBalance) {
				t.Fatalf("round %d: ledger[%d] delta %d mismatch", round, i, delta)
			}
			if tx.Kind == nil {
				t.Fatalf("round %d: ledger[%d] not classified", round, i)
			}
		}
	}
}

func TestDropReasonString(t *testing.T) {
	if DropInvalidLength.String() != "invalid length" || DropInvalidDate.String() != "invalid date" {
		t.Error("unexpected drop reason labels")
	}
}
