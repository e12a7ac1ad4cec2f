// =============================================================================
// FeliCa Ledger - Card Read Capability
// =============================================================================
//
// The near-field transport lives outside this module. It is consumed through
// Reader: given a service code and block indices it returns two status flags
// and the raw blocks. Both flags must be 0x00; anything else is a hard read
// failure and aborts the scan.
//
//   | service | code   | blocks                   |
//   |---------|--------|--------------------------|
//   | balance | 0x008B | 0                        |
//   | history | 0x090F | 0 .. historyCount-1      |
//
// =============================================================================

package card

import (
	"context"
	"errors"
	"fmt"

	"github.com/ginjaninja78/felica-ledger/internal/decoder"
)

const (
	// ServiceBalance is the attribute service holding the current balance.
	ServiceBalance uint16 = 0x008B

	// ServiceHistory is the transaction history service.
	ServiceHistory uint16 = 0x090F

	// DefaultHistoryCount is one more slot than the ledger displays; the
	// oldest slot only supplies a previous balance.
	DefaultHistoryCount = 11

	// balanceOffset is the position of the balance in the balance block.
	balanceOffset = 11
)

// ErrReadFailed is the sentinel for every failed card read.
var ErrReadFailed = errors.New("card read failed")

// ReadResult is the raw answer of one read command.
type ReadResult struct {
	StatusFlag1 byte
	StatusFlag2 byte
	Blocks      [][]byte
}

// OK reports whether both status flags are 0x00.
func (r ReadResult) OK() bool {
	return r.StatusFlag1 == 0x00 && r.StatusFlag2 == 0x00
}

// Reader is the card-read capability.
type Reader interface {
	Read(ctx context.Context, serviceCode uint16, blockIndices []byte) (ReadResult, error)
}

// ReadError is a read rejected by the card through its status flags.
type ReadError struct {
	Service uint16
	Status1 byte
	Status2 byte
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("read service 0x%04X: status 0x%02X/0x%02X", e.Service, e.Status1, e.Status2)
}

// Unwrap lets errors.Is match ErrReadFailed.
func (e *ReadError) Unwrap() error {
	return ErrReadFailed
}

// ReadBlocks issues one read and checks the status flags and block count.
// Transport errors are wrapped so they also match ErrReadFailed.
func ReadBlocks(ctx context.Context, r Reader, service uint16, indices []byte) ([][]byte, error) {
	res, err := r.Read(ctx, service, indices)
	if err != nil {
		return nil, fmt.Errorf("%w: service 0x%04X: %w", ErrReadFailed, service, err)
	}
	if !res.OK() {
		return nil, &ReadError{Service: service, Status1: res.StatusFlag1, Status2: res.StatusFlag2}
	}
	if len(res.Blocks) != len(indices) {
		return nil, fmt.Errorf("%w: service 0x%04X: requested %d blocks, got %d",
			ErrReadFailed, service, len(indices), len(res.Blocks))
	}
	return res.Blocks, nil
}

// ReadBalance reads the current balance from block 0 of ServiceBalance.
func ReadBalance(ctx context.Context, r Reader) (int16, error) {
	blocks, err := ReadBlocks(ctx, r, ServiceBalance, []byte{0})
	if err != nil {
		return 0, err
	}

	block := blocks[0]
	if len(block) != decoder.BlockSize {
		return 0, fmt.Errorf("balance block: %w", &decoder.BlockError{Index: 0, Length: len(block)})
	}
	return decoder.DecodeBalance(block, balanceOffset), nil
}

// ReadHistory reads history slots 0..count-1, most recent first.
func ReadHistory(ctx context.Context, r Reader, count int) ([][]byte, error) {
	if count <= 0 || count > 0xFF {
		return nil, fmt.Errorf("history count %d out of range", count)
	}

	indices := make([]byte, count)
	for i := range indices {
		indices[i] = byte(i)
	}
	return ReadBlocks(ctx, r, ServiceHistory, indices)
}
