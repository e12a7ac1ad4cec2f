package scanner

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ginjaninja78/felica-ledger/internal/card"
	"github.com/ginjaninja78/felica-ledger/internal/decoder"
	"github.com/ginjaninja78/felica-ledger/internal/ledger"
	"github.com/ginjaninja78/felica-ledger/internal/logger"
	"github.com/ginjaninja78/felica-ledger/internal/types"
)

func historyBlock(machine, process byte, day int, balance int16) []byte {
	raw, err := decoder.PackDate(2023, 6, day)
	if err != nil {
		panic(err)
	}
	b := make([]byte, decoder.BlockSize)
	b[0], b[1] = machine, process
	b[4], b[5] = byte(raw>>8), byte(raw)
	binary.LittleEndian.PutUint16(b[10:], uint16(balance))
	return b
}

func balanceBlock(balance int16) []byte {
	b := make([]byte, decoder.BlockSize)
	binary.LittleEndian.PutUint16(b[11:], uint16(balance))
	return b
}

// sampleDump has four history slots: gate, gate, charge, gate (anchor).
func sampleDump() card.Dump {
	d := make(card.Dump)
	d.Set(card.ServiceBalance, 0, balanceBlock(1240))
	d.Set(card.ServiceHistory, 0, historyBlock(0x16, 0x01, 4, 1240))
	d.Set(card.ServiceHistory, 1, historyBlock(0x16, 0x01, 3, 1400))
	d.Set(card.ServiceHistory, 2, historyBlock(0x08, 0x02, 2, 1600))
	d.Set(card.ServiceHistory, 3, historyBlock(0x16, 0x01, 1, 600))
	return d
}

type stubResolver map[types.StationKey]string

func (s stubResolver) Resolve(area, line, station int) (string, bool) {
	name, ok := s[types.StationKey{Area: area, Line: line, Station: station}]
	return name, ok
}

func newTestScanner(buf *bytes.Buffer, resolver ledger.Resolver) *Scanner {
	return New(resolver, Options{HistoryCount: 4}, logger.NewWithWriter(buf))
}

func TestScan(t *testing.T) {
	var logs bytes.Buffer
	s := newTestScanner(&logs, nil)

	snap, err := s.Scan(context.Background(), card.NewDumpReader(sampleDump()))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if snap.ID == "" {
		t.Error("snapshot has no ID")
	}
	if snap.Balance != 1240 {
		t.Errorf("Balance = %d, want 1240", snap.Balance)
	}
	if len(snap.Ledger) != 3 {
		t.Fatalf("len(Ledger) = %d, want 3", len(snap.Ledger))
	}

	// most-recent-first: gate(4) exit, gate(3) entry, charge(2)
	want := []types.TripRole{types.TripExit, types.TripEntry, types.TripNotApplicable}
	var got []types.TripRole
	for _, tx := range snap.Ledger {
		got = append(got, tx.TripRole)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}

	if charge, ok := snap.Ledger[2].Kind.(types.Charge); !ok || charge.Amount != 1000 {
		t.Errorf("ledger[2].Kind = %+v, want Charge{1000}", snap.Ledger[2].Kind)
	}

	if !strings.Contains(logs.String(), "scan complete") {
		t.Errorf("missing completion log: %s", logs.String())
	}
}

func TestScanResolvesStations(t *testing.T) {
	dump := sampleDump()
	first, _ := decoder.Decode(dump[card.ServiceHistory][0])

	s := newTestScanner(&bytes.Buffer{}, stubResolver{first.Station.Key(): "Ikebukuro"})
	snap, err := s.Scan(context.Background(), card.NewDumpReader(dump))
	if err != nil {
		t.Fatal(err)
	}

	if got := snap.Ledger[0].Station.DisplayName(); got != "Ikebukuro" {
		t.Errorf("ledger[0] station = %q, want Ikebukuro", got)
	}
	if got := snap.Ledger[1].Station.DisplayName(); got != types.UnknownStationName {
		t.Errorf("ledger[1] station = %q, want %q", got, types.UnknownStationName)
	}
}

func TestScanLogsDroppedBlocks(t *testing.T) {
	dump := sampleDump()
	dump.Set(card.ServiceHistory, 1, make([]byte, decoder.BlockSize))

	var logs bytes.Buffer
	snap, err := newTestScanner(&logs, nil).Scan(context.Background(), card.NewDumpReader(dump))
	if err != nil {
		t.Fatal(err)
	}

	if len(snap.Dropped) != 1 || snap.Dropped[0].Index != 1 {
		t.Errorf("Dropped = %+v", snap.Dropped)
	}
	if len(snap.Ledger) != 2 {
		t.Errorf("len(Ledger) = %d, want 2", len(snap.Ledger))
	}
	if !strings.Contains(logs.String(), "dropped history block") {
		t.Errorf("missing drop log: %s", logs.String())
	}
}

func TestScanFailsOnReadError(t *testing.T) {
	dump := sampleDump()
	delete(dump[card.ServiceHistory], 3)

	_, err := newTestScanner(&bytes.Buffer{}, nil).Scan(context.Background(), card.NewDumpReader(dump))
	if !errors.Is(err, card.ErrReadFailed) {
		t.Fatalf("error = %v, want ErrReadFailed", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	session := NewSession(newTestScanner(&bytes.Buffer{}, nil))
	ctx := context.Background()

	if _, ok := session.Current(); ok {
		t.Fatal("new session has a snapshot")
	}

	first, err := session.Scan(ctx, card.NewDumpReader(sampleDump()))
	if err != nil {
		t.Fatal(err)
	}

	broken := sampleDump()
	delete(broken, card.ServiceBalance)
	if _, err := session.Scan(ctx, card.NewDumpReader(broken)); err == nil {
		t.Fatal("scan of broken dump succeeded")
	}

	current, ok := session.Current()
	if !ok || current.ID != first.ID {
		t.Errorf("failed scan replaced the snapshot: %+v", current)
	}

	current.Ledger[0].Balance = -1
	again, _ := session.Current()
	if again.Ledger[0].Balance == -1 {
		t.Error("Current() exposed internal state")
	}

	second, err := session.Scan(ctx, card.NewDumpReader(sampleDump()))
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Error("second scan reused the snapshot ID")
	}

	session.Clear()
	if _, ok := session.Current(); ok {
		t.Error("Clear() kept the snapshot")
	}
}

func TestSessionConcurrentAccess(t *testing.T) {
	session := NewSession(newTestScanner(&bytes.Buffer{}, nil))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, _ = session.Scan(ctx, card.NewDumpReader(sampleDump()))
		}()
		go func() {
			defer wg.Done()
			if snap, ok := session.Current(); ok && len(snap.Ledger) != 3 {
				t.Errorf("partial snapshot: %d transactions", len(snap.Ledger))
			}
		}()
		go func() {
			defer wg.Done()
			session.Clear()
		}()
	}
	wg.Wait()
}
