// =============================================================================
// FeliCa Ledger - Scanner
// =============================================================================
//
// Runs one full scan against a card reader:
//
//   1. read the balance block (service 0x008B)
//   2. read historyCount history slots (service 0x090F)
//   3. build the ledger (decode, filter, classify, link balances)
//   4. reconstruct trips and resolve station names
//
// Steps 1-2 are the only I/O. A failure there aborts the scan with no
// partial result. Blocks dropped in step 3 are logged, not surfaced as
// errors.
//
// =============================================================================

package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ginjaninja78/felica-ledger/internal/card"
	"github.com/ginjaninja78/felica-ledger/internal/ledger"
	"github.com/ginjaninja78/felica-ledger/internal/types"
)

// Options configures a Scanner.
type Options struct {
	// HistoryCount is the number of history slots to read. Default 11.
	HistoryCount int

	// KeepUndated keeps records with an invalid packed date.
	KeepUndated bool
}

// Snapshot is the result of one successful scan.
type Snapshot struct {
	ID        string
	ScannedAt time.Time

	// Balance is the card balance from the balance service.
	Balance int16

	// Ledger is most-recent-first with trip roles and station names.
	Ledger types.Ledger

	// Dropped lists history slots rejected by the builder guards.
	Dropped []ledger.Dropped
}

// Clone returns a copy whose slices can be modified freely.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Ledger = append(types.Ledger(nil), s.Ledger...)
	c.Dropped = append([]ledger.Dropped(nil), s.Dropped...)
	return &c
}

// Scanner turns card reads into snapshots. It holds no per-scan state and
// is safe for concurrent use.
type Scanner struct {
	resolver ledger.Resolver
	opts     Options
	log      zerolog.Logger
	now      func() time.Time
}

// New creates a Scanner. resolver may be nil.
func New(resolver ledger.Resolver, opts Options, log zerolog.Logger) *Scanner {
	if opts.HistoryCount <= 0 {
		opts.HistoryCount = card.DefaultHistoryCount
	}
	return &Scanner{
		resolver: resolver,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// Scan reads the card and returns a new snapshot.
func (s *Scanner) Scan(ctx context.Context, reader card.Reader) (*Snapshot, error) {
	balance, err := card.ReadBalance(ctx, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	blocks, err := card.ReadHistory(ctx, reader, s.opts.HistoryCount)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	snap := s.FromBlocks(blocks, balance)

	s.log.Info().
		Str("scan_id", snap.ID).
		Int16("balance", snap.Balance).
		Int("transactions", len(snap.Ledger)).
		Int("dropped", len(snap.Dropped)).
		Msg("scan complete")

	return snap, nil
}

// FromBlocks runs the decode pipeline over already-read history blocks.
func (s *Scanner) FromBlocks(blocks [][]byte, balance int16) *Snapshot {
	report := ledger.Build(blocks, ledger.Options{KeepUndated: s.opts.KeepUndated})

	for _, d := range report.Dropped {
		s.log.Warn().Int("slot", d.Index).Str("reason", d.Reason.String()).Err(d.Err).Msg("dropped history block")
	}

	result := ledger.Reconstruct(report.Ledger, s.resolver)

	for _, tx := range result {
		if u, ok := tx.Kind.(types.Unknown); ok {
			s.log.Debug().
				Str("machine_type", fmt.Sprintf("0x%02X", u.RawCode)).
				Str("process_type", fmt.Sprintf("0x%02X", tx.ProcessTypeCode)).
				Str("date", tx.Date.String()).
				Msg("unclassified transaction")
		}
	}

	return &Snapshot{
		ID:        uuid.NewString(),
		ScannedAt: s.now().UTC(),
		Balance:   balance,
		Ledger:    result,
		Dropped:   report.Dropped,
	}
}
