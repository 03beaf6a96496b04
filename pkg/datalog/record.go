// Package datalog reads the binary datalog container format: a "WPILOG"
// header followed by length-prefixed records with varint entry ids and
// timestamps. Control records (entry 0) carry entry lifecycle events.
package datalog

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Control record types, stored in the first payload byte of entry-0 records.
const (
	controlStart       = 0
	controlFinish      = 1
	controlSetMetadata = 2
)

// Record is one framed log record: an entry id, a timestamp in
// microseconds, and an opaque payload whose shape depends on the entry's
// declared type.
type Record struct {
	Entry     uint32
	Timestamp uint64
	Data      []byte
}

// StartData is the payload of a start control record.
type StartData struct {
	Entry    uint32
	Name     string
	Type     string
	Metadata string
}

// MetadataData is the payload of a set-metadata control record.
type MetadataData struct {
	Entry    uint32
	Metadata string
}

// IsControl reports whether this is a control record (entry id 0).
func (r *Record) IsControl() bool {
	return r.Entry == 0
}

func (r *Record) controlType() (byte, bool) {
	if len(r.Data) == 0 {
		return 0, false
	}
	return r.Data[0], true
}

// IsStart reports whether this is an entry start record.
func (r *Record) IsStart() bool {
	ct, ok := r.controlType()
	return r.Entry == 0 && len(r.Data) >= 17 && ok && ct == controlStart
}

// IsFinish reports whether this is an entry finish record.
func (r *Record) IsFinish() bool {
	ct, ok := r.controlType()
	return r.Entry == 0 && len(r.Data) == 5 && ok && ct == controlFinish
}

// IsSetMetadata reports whether this is a set-metadata record.
func (r *Record) IsSetMetadata() bool {
	ct, ok := r.controlType()
	return r.Entry == 0 && len(r.Data) >= 9 && ok && ct == controlSetMetadata
}

// StartData parses a start control record payload.
func (r *Record) StartData() (StartData, error) {
	if !r.IsStart() {
		return StartData{}, fmt.Errorf("not a start record")
	}

	entry := binary.LittleEndian.Uint32(r.Data[1:5])
	name, pos, err := readInnerString(r.Data, 5)
	if err != nil {
		return StartData{}, err
	}
	typeName, pos, err := readInnerString(r.Data, pos)
	if err != nil {
		return StartData{}, err
	}
	metadata, _, err := readInnerString(r.Data, pos)
	if err != nil {
		return StartData{}, err
	}

	return StartData{
		Entry:    entry,
		Name:     name,
		Type:     typeName,
		Metadata: metadata,
	}, nil
}

// FinishEntry parses a finish control record payload.
func (r *Record) FinishEntry() (uint32, error) {
	if !r.IsFinish() {
		return 0, fmt.Errorf("not a finish record")
	}
	return binary.LittleEndian.Uint32(r.Data[1:5]), nil
}

// SetMetadataData parses a set-metadata control record payload.
func (r *Record) SetMetadataData() (MetadataData, error) {
	if !r.IsSetMetadata() {
		return MetadataData{}, fmt.Errorf("not a set metadata record")
	}
	entry := binary.LittleEndian.Uint32(r.Data[1:5])
	metadata, _, err := readInnerString(r.Data, 5)
	if err != nil {
		return MetadataData{}, err
	}
	return MetadataData{Entry: entry, Metadata: metadata}, nil
}

// Boolean decodes a 1-byte boolean payload.
func (r *Record) Boolean() (bool, error) {
	if len(r.Data) != 1 {
		return false, fmt.Errorf("not a boolean")
	}
	return r.Data[0] != 0, nil
}

// Integer decodes an 8-byte little-endian int64 payload.
func (r *Record) Integer() (int64, error) {
	if len(r.Data) != 8 {
		return 0, fmt.Errorf("not an integer")
	}
	return int64(binary.LittleEndian.Uint64(r.Data)), nil
}

// Float decodes a 4-byte little-endian float32 payload.
func (r *Record) Float() (float32, error) {
	if len(r.Data) != 4 {
		return 0, fmt.Errorf("not a float")
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(r.Data)), nil
}

// Double decodes an 8-byte little-endian float64 payload.
func (r *Record) Double() (float64, error) {
	if len(r.Data) != 8 {
		return 0, fmt.Errorf("not a double")
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(r.Data)), nil
}

// String returns the payload as a string.
func (r *Record) String() string {
	return string(r.Data)
}

// BooleanArray decodes the payload as one boolean per byte.
func (r *Record) BooleanArray() []bool {
	out := make([]bool, len(r.Data))
	for i, b := range r.Data {
		out[i] = b != 0
	}
	return out
}

// IntegerArray decodes the payload as packed little-endian int64s.
func (r *Record) IntegerArray() ([]int64, error) {
	if len(r.Data)%8 != 0 {
		return nil, fmt.Errorf("not an integer array")
	}
	out := make([]int64, 0, len(r.Data)/8)
	for pos := 0; pos < len(r.Data); pos += 8 {
		out = append(out, int64(binary.LittleEndian.Uint64(r.Data[pos:])))
	}
	return out, nil
}

// FloatArray decodes packed little-endian float32s, widened to float64.
func (r *Record) FloatArray() ([]float64, error) {
	if len(r.Data)%4 != 0 {
		return nil, fmt.Errorf("not a float array")
	}
	out := make([]float64, 0, len(r.Data)/4)
	for pos := 0; pos < len(r.Data); pos += 4 {
		out = append(out, float64(math.Float32frombits(binary.LittleEndian.Uint32(r.Data[pos:]))))
	}
	return out, nil
}

// DoubleArray decodes the payload as packed little-endian float64s.
func (r *Record) DoubleArray() ([]float64, error) {
	if len(r.Data)%8 != 0 {
		return nil, fmt.Errorf("not a double array")
	}
	out := make([]float64, 0, len(r.Data)/8)
	for pos := 0; pos < len(r.Data); pos += 8 {
		out = append(out, math.Float64frombits(binary.LittleEndian.Uint64(r.Data[pos:])))
	}
	return out, nil
}

// StringArray decodes a u32 count followed by length-prefixed strings.
func (r *Record) StringArray() ([]string, error) {
	if len(r.Data) < 4 {
		return nil, fmt.Errorf("not a string array")
	}
	size := int(binary.LittleEndian.Uint32(r.Data))

	// Each element needs at least its 4-byte length prefix.
	if size > (len(r.Data)-4)/4 {
		return nil, fmt.Errorf("not a string array")
	}

	out := make([]string, 0, size)
	pos := 4
	for i := 0; i < size; i++ {
		s, next, err := readInnerString(r.Data, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		pos = next
	}
	return out, nil
}

// readInnerString reads a u32-length-prefixed string at pos and returns the
// string and the position just past it.
func readInnerString(data []byte, pos int) (string, int, error) {
	if pos+4 > len(data) {
		return "", 0, fmt.Errorf("invalid string size position")
	}
	size := int(binary.LittleEndian.Uint32(data[pos:]))
	end := pos + 4 + size
	if end > len(data) {
		return "", 0, fmt.Errorf("invalid string size")
	}
	return string(data[pos+4 : end]), end, nil
}
