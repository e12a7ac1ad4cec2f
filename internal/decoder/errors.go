package decoder

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBlock is returned for raw blocks that are not exactly 16 bytes.
	ErrInvalidBlock = errors.New("invalid block")

	// ErrInvalidDate marks a packed date that fails range validation.
	// The decoder itself never returns it; it substitutes the sentinel.
	ErrInvalidDate = errors.New("invalid date")
)

// BlockError describes a rejected raw block.
type BlockError struct {
	// Index is the position of the block in the batch it was read from.
	Index int

	// Length is the actual byte length of the block.
	Length int
}

// Error implements the error interface.
func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d: expected %d bytes, got %d", e.Index, BlockSize, e.Length)
}

// Unwrap lets errors.Is match ErrInvalidBlock.
func (e *BlockError) Unwrap() error {
	return ErrInvalidBlock
}
