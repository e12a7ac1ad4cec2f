// =============================================================================
// FeliCa Ledger - Ledger Builder
// =============================================================================
//
// Turns the raw history blocks of one scan (most-recent-first, as the card
// delivers them) into a classified Ledger with previous balances.
//
//   blocks[0]   newest   previousBalance = balance of blocks[1]
//   blocks[1]            previousBalance = balance of blocks[2]
//   ...
//   blocks[n-1] oldest   no successor, used only as the anchor
//
// A batch of N valid blocks yields N-1 transactions.
//
// =============================================================================

package ledger

import (
	"fmt"

	"github.com/ginjaninja78/felica-ledger/internal/classifier"
	"github.com/ginjaninja78/felica-ledger/internal/decoder"
	"github.com/ginjaninja78/felica-ledger/internal/types"
)

// Options controls the builder guards.
type Options struct {
	// KeepUndated keeps records whose packed date failed validation.
	// They carry the unknown-date sentinel. Off by default.
	KeepUndated bool
}

// DropReason says why a block did not make it into the ledger.
type DropReason int

const (
	DropInvalidLength DropReason = iota
	DropInvalidDate
)

// String returns a short label for logs and reports.
func (r DropReason) String() string {
	switch r {
	case DropInvalidLength:
		return "invalid length"
	case DropInvalidDate:
		return "invalid date"
	default:
		return fmt.Sprintf("DropReason(%d)", int(r))
	}
}

// Dropped records one block filtered out before ledger assembly.
type Dropped struct {
	// Index is the position of the block in the input batch.
	Index  int
	Reason DropReason
	Err    error
}

// Report is the result of Build.
type Report struct {
	// Ledger is most-recent-first. Trip roles are not assigned yet.
	Ledger types.Ledger

	// Dropped lists the blocks rejected by the length and date guards.
	Dropped []Dropped

	// Anchor is the oldest valid record. It only supplies the previous
	// balance of the record above it. Nil when no block survived.
	Anchor *types.Transaction
}

// Build decodes, filters and classifies blocks and links previous balances.
func Build(blocks [][]byte, opts Options) Report {
	var report Report
	kept := make([]types.Transaction, 0, len(blocks))

	for i, block := range blocks {
		record, err := decoder.Decode(block)
		if err != nil {
			report.Dropped = append(report.Dropped, Dropped{
				Index:  i,
				Reason: DropInvalidLength,
				Err:    &decoder.BlockError{Index: i, Length: len(block)},
			})
			continue
		}

		if !record.Date.Valid && !opts.KeepUndated {
			report.Dropped = append(report.Dropped, Dropped{
				Index:  i,
				Reason: DropInvalidDate,
				Err:    fmt.Errorf("block %d: %w", i, decoder.ErrInvalidDate),
			})
			continue
		}

		tx := record.Transaction()
		classifier.Apply(&tx, record.Station)
		kept = append(kept, tx)
	}

	if len(kept) == 0 {
		report.Ledger = types.Ledger{}
		return report
	}

	anchor := kept[len(kept)-1]
	report.Anchor = &anchor

	report.Ledger = make(types.Ledger, 0, len(kept)-1)
	for i := 0; i < len(kept)-1; i++ {
		tx := kept[i]
		prev := kept[i+1].Balance
		tx.PreviousBalance = &prev
		report.Ledger = append(report.Ledger, fillAmount(tx))
	}

	return report
}

// BuildLedger is Build with default options, returning only the ledger.
func BuildLedger(blocks [][]byte) types.Ledger {
	return Build(blocks, Options{}).Ledger
}

// fillAmount copies the signed delta into Charge and Retail kinds.
func fillAmount(tx types.Transaction) types.Transaction {
	delta, ok := tx.Delta()
	if !ok {
		return tx
	}

	switch k := tx.Kind.(type) {
	case types.Charge:
		k.Amount = delta
		tx.Kind = k
	case types.Retail:
		amount := delta
		k.Amount = &amount
		tx.Kind = k
	}
	return tx
}
