// =============================================================================
// FeliCa Ledger - Date Unpacker
// =============================================================================
//
// History records store their date as a 16-bit big-endian bit-packed value
// at byte offsets 4-5:
//
//   bit  15 ........ 9 | 8 ... 5 | 4 ... 0
//        year - 2000   |  month  |   day
//
// =============================================================================

package decoder

import (
	"github.com/ginjaninja78/felica-ledger/internal/types"
)

const (
	dateOffset = 4
	baseYear   = 2000
	maxYear    = baseYear + 0x7F
)

// UnpackDate decodes the packed date at bytes 4-5 of a block.
//
// It never fails: blocks shorter than 6 bytes, months outside [1,12] and
// days outside [1,31] yield the unknown-date sentinel. Values are not
// clamped or corrected.
func UnpackDate(block []byte) types.DecodedDate {
	if len(block) < dateOffset+2 {
		return types.UnknownDate()
	}
	return UnpackDateValue(uint16(block[dateOffset])<<8 | uint16(block[dateOffset+1]))
}

// UnpackDateValue decodes an already assembled 16-bit packed date.
func UnpackDateValue(raw uint16) types.DecodedDate {
	year := baseYear + int((raw>>9)&0x7F)
	month := int((raw >> 5) & 0x0F)
	day := int(raw & 0x1F)

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return types.UnknownDate()
	}

	return types.DecodedDate{Year: year, Month: month, Day: day, Valid: true}
}

// PackDate encodes a date into the 16-bit layout read by UnpackDateValue.
// It returns ErrInvalidDate for years outside 2000-2127, months outside
// [1,12] and days outside [1,31].
func PackDate(year, month, day int) (uint16, error) {
	if year < baseYear || year > maxYear || month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, ErrInvalidDate
	}
	return uint16(year-baseYear)<<9 | uint16(month)<<5 | uint16(day), nil
}
