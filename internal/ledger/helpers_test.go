package ledger

import (
	"encoding/binary"

	"github.com/ginjaninja78/felica-ledger/internal/decoder"
	"github.com/ginjaninja78/felica-ledger/internal/types"
)

// block builds a raw history block. Line and station bytes are the packed
// date, as on the card.
func block(machine, process, area byte, year, month, day int, balance int16) []byte {
	raw, err := decoder.PackDate(year, month, day)
	if err != nil {
		panic(err)
	}

	b := make([]byte, decoder.BlockSize)
	b[0] = machine
	b[1] = process
	b[3] = area
	b[4] = byte(raw >> 8)
	b[5] = byte(raw)
	binary.LittleEndian.PutUint16(b[10:], uint16(balance))
	return b
}

func gate(day int, balance int16) []byte {
	return block(0x16, 0x01, 0x00, 2023, 5, day, balance)
}

func chargeBlock(day int, balance int16) []byte {
	return block(0x08, 0x02, 0x00, 2023, 5, day, balance)
}

func shop(day int, balance int16) []byte {
	return block(0xC7, 0x46, 0x00, 2023, 5, day, balance)
}

type mapResolver map[types.StationKey]string

func (m mapResolver) Resolve(area, line, station int) (string, bool) {
	name, ok := m[types.StationKey{Area: area, Line: line, Station: station}]
	return name, ok
}

func roles(l types.Ledger) []types.TripRole {
	out := make([]types.TripRole, len(l))
	for i, tx := range l {
		out[i] = tx.TripRole
	}
	return out
}
