// =============================================================================
// FeliCa Ledger - Block Decoder
// =============================================================================
//
// Parses one raw 16-byte history record into a Record. Field layout:
//
//   | field           | offset | encoding                     |
//   |-----------------|--------|------------------------------|
//   | machineTypeCode | 0      | raw                          |
//   | processTypeCode | 1      | raw                          |
//   | areaCode        | 3      | unsigned                     |
//   | lineCode        | 4      | unsigned                     |
//   | stationCode     | 5      | unsigned                     |
//   | date            | 4-5    | packed, see date.go          |
//   | balance         | 10-11  | signed 16-bit, low byte first|
//
// The station triple and the packed date share bytes 4-5. This is the
// layout of the latest decoder revision and is kept as-is.
//
// =============================================================================

package decoder

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/ginjaninja78/felica-ledger/internal/types"
)

// BlockSize is the size of every FeliCa block.
const BlockSize = 16

const (
	machineTypeOffset = 0
	processTypeOffset = 1
	areaOffset        = 3
	lineOffset        = 4
	stationOffset     = 5
	balanceOffset     = 10
)

// Record is the typed intermediate form of one history block. Kind and
// trip role are filled by later stages.
type Record struct {
	MachineTypeCode byte
	ProcessTypeCode byte
	Date            types.DecodedDate
	Station         types.StationCode
	Balance         int16
}

// Transaction converts the record into a Transaction without kind or trip
// role. The station is not attached; the classifier decides that.
func (r Record) Transaction() types.Transaction {
	return types.Transaction{
		Date:            r.Date,
		MachineTypeCode: r.MachineTypeCode,
		ProcessTypeCode: r.ProcessTypeCode,
		Balance:         r.Balance,
	}
}

// Decode parses a raw block.
//
// Any 16-byte input decodes; the only failure is a wrong length, reported
// as a *BlockError with Index -1. An invalid packed date produces the
// unknown-date sentinel instead of an error.
func Decode(block []byte) (Record, error) {
	if len(block) != BlockSize {
		return Record{}, &BlockError{Index: -1, Length: len(block)}
	}

	return Record{
		MachineTypeCode: block[machineTypeOffset],
		ProcessTypeCode: block[processTypeOffset],
		Date:            UnpackDate(block),
		Station: types.StationCode{
			AreaCode:    int(block[areaOffset]),
			LineCode:    int(block[lineOffset]),
			StationCode: int(block[stationOffset]),
		},
		Balance: DecodeBalance(block, balanceOffset),
	}, nil
}

// DecodeBalance reads a signed little-endian 16-bit value at offset.
func DecodeBalance(block []byte, offset int) int16 {
	return int16(binary.LittleEndian.Uint16(block[offset : offset+2]))
}

// HexDump formats a block as space separated upper-case hex bytes.
func HexDump(block []byte) string {
	parts := make([]string, len(block))
	for i, b := range block {
		parts[i] = strings.ToUpper(hex.EncodeToString([]byte{b}))
	}
	return strings.Join(parts, " ")
}

// ParseHex parses a hex string (spaces, colons and dashes ignored) into bytes.
func ParseHex(s string) ([]byte, error) {
	cleaned := strings.NewReplacer(" ", "", ":", "", "-", "", "\t", "").Replace(strings.TrimSpace(s))
	cleaned = strings.TrimPrefix(strings.TrimPrefix(cleaned, "0x"), "0X")
	return hex.DecodeString(cleaned)
}
