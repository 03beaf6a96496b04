package datalog

import (
	"encoding/binary"
	"os"

	"github.com/logtab/logtab/pkg/errors"
)

const (
	magic         = "WPILOG"
	minVersion    = 0x0100
	minHeaderSize = 12 // magic(6) + version(2) + extra header length(4)
)

// Reader reads records from an in-memory datalog image.
type Reader struct {
	data []byte
	path string
}

// NewReader wraps a byte slice holding a complete datalog file.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Open reads a datalog file into memory.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CodeFileNotFound, "input file not found").
				WithContext("path", path)
		}
		return nil, errors.Wrap(err, errors.CodeInvalidFormat, "failed to read input file").
			WithContext("path", path)
	}
	return &Reader{data: data, path: path}, nil
}

// Valid reports whether the data starts with a supported datalog header.
func (r *Reader) Valid() bool {
	return len(r.data) >= minHeaderSize &&
		string(r.data[0:6]) == magic &&
		r.Version() >= minVersion
}

// Version returns the container format version, 0 if the header is short.
func (r *Reader) Version() uint16 {
	if len(r.data) < minHeaderSize {
		return 0
	}
	return binary.LittleEndian.Uint16(r.data[6:8])
}

// ExtraHeader returns the free-form header string, empty if absent.
func (r *Reader) ExtraHeader() string {
	if len(r.data) < minHeaderSize {
		return ""
	}
	size := int(binary.LittleEndian.Uint32(r.data[8:12]))
	if minHeaderSize+size > len(r.data) {
		return ""
	}
	return string(r.data[minHeaderSize : minHeaderSize+size])
}

// Records returns an iterator over the framed records.
func (r *Reader) Records() (*Iterator, error) {
	if !r.Valid() {
		return nil, errors.InvalidFormat(r.path, "bad magic or unsupported version")
	}
	extra := int(binary.LittleEndian.Uint32(r.data[8:12]))
	return &Iterator{data: r.data, pos: minHeaderSize + extra}, nil
}

// Iterator walks the record stream in order.
type Iterator struct {
	data []byte
	pos  int
}

// Next returns the next record, or false when the stream is exhausted.
// A truncated trailing record ends iteration rather than erroring.
func (it *Iterator) Next() (Record, bool) {
	if len(it.data) < it.pos+4 {
		return Record{}, false
	}

	// The header byte packs the byte widths of the three varint fields.
	header := it.data[it.pos]
	entryLen := int(header&0x3) + 1
	sizeLen := int((header>>2)&0x3) + 1
	timestampLen := int((header>>4)&0x7) + 1
	headerLen := 1 + entryLen + sizeLen + timestampLen

	if len(it.data) < it.pos+headerLen {
		return Record{}, false
	}

	entry := readVarint(it.data[it.pos+1:], entryLen)
	size := int(readVarint(it.data[it.pos+1+entryLen:], sizeLen))
	timestamp := readVarint(it.data[it.pos+1+entryLen+sizeLen:], timestampLen)

	if len(it.data) < it.pos+headerLen+size {
		return Record{}, false
	}

	rec := Record{
		Entry:     uint32(entry),
		Timestamp: timestamp,
		Data:      it.data[it.pos+headerLen : it.pos+headerLen+size],
	}
	it.pos += headerLen + size
	return rec, true
}

// readVarint reads a little-endian integer of len bytes.
func readVarint(data []byte, len int) uint64 {
	var val uint64
	for i := 0; i < len; i++ {
		val |= uint64(data[i]) << (i * 8)
	}
	return val
}
