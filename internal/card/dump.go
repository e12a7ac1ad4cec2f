package card

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/felica-ledger/internal/decoder"
)

// Status flags returned by DumpReader for blocks missing from the dump.
const (
	StatusMissing1 byte = 0x01
	StatusMissing2 byte = 0xA8
)

// Dump is a captured card image: service -> block index -> 16 raw bytes.
//
// Text form, one block per line, '#' starts a comment:
//
//	090F 00 1601002C210000000000640000000000
//	008B 00 00000000000000000000006400000000
type Dump map[uint16]map[byte][]byte

// Set stores a block.
func (d Dump) Set(service uint16, index byte, block []byte) {
	if d[service] == nil {
		d[service] = make(map[byte][]byte)
	}
	d[service][index] = append([]byte(nil), block...)
}

// ParseDump reads the text form.
func ParseDump(r io.Reader) (Dump, error) {
	dump := make(Dump)
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected service, block and data", lineNo)
		}

		service, err := strconv.ParseUint(fields[0], 16, 16)
		if err != nil {
			return nil, fmt.Errorf("line %d: service: %w", lineNo, err)
		}
		index, err := strconv.ParseUint(fields[1], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("line %d: block: %w", lineNo, err)
		}
		data, err := decoder.ParseHex(strings.Join(fields[2:], ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: data: %w", lineNo, err)
		}
		if len(data) != decoder.BlockSize {
			return nil, fmt.Errorf("line %d: %w", lineNo, &decoder.BlockError{Index: int(index), Length: len(data)})
		}

		dump.Set(uint16(service), byte(index), data)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}
	return dump, nil
}

// ParseDumpFile opens and parses a dump file.
func ParseDumpFile(path string) (Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}
	defer f.Close()

	dump, err := ParseDump(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dump, nil
}

// WriteTo writes the dump in text form, services and blocks in ascending
// order.
func (d Dump) WriteTo(w io.Writer) (int64, error) {
	services := make([]int, 0, len(d))
	for s := range d {
		services = append(services, int(s))
	}
	sort.Ints(services)

	var written int64
	for _, s := range services {
		blocks := d[uint16(s)]
		indices := make([]int, 0, len(blocks))
		for i := range blocks {
			indices = append(indices, int(i))
		}
		sort.Ints(indices)

		for _, i := range indices {
			n, err := fmt.Fprintf(w, "%04X %02X %X\n", s, i, blocks[byte(i)])
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// DumpReader serves reads from a Dump. A request touching a block not in
// the dump fails with StatusMissing1/StatusMissing2.
type DumpReader struct {
	dump Dump
}

// NewDumpReader wraps a dump.
func NewDumpReader(d Dump) *DumpReader {
	return &DumpReader{dump: d}
}

// Read implements Reader.
func (r *DumpReader) Read(ctx context.Context, serviceCode uint16, blockIndices []byte) (ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return ReadResult{}, err
	}

	blocks := make([][]byte, 0, len(blockIndices))
	for _, i := range blockIndices {
		block, ok := r.dump[serviceCode][i]
		if !ok {
			return ReadResult{StatusFlag1: StatusMissing1, StatusFlag2: StatusMissing2}, nil
		}
		blocks = append(blocks, append([]byte(nil), block...))
	}

	return ReadResult{Blocks: blocks}, nil
}
