// Package loggen builds datalog byte streams in memory for tests.
package loggen

import (
	"bytes"
	"encoding/binary"
	"math"
)

// headerByte encodes 4-byte entry ids, 4-byte sizes, and 8-byte timestamps
// for every record. Real loggers pick minimal widths; fixed widths keep the
// generated bytes easy to reason about.
const headerByte = 0x7F

// Builder accumulates a datalog byte stream.
type Builder struct {
	buf bytes.Buffer
}

// New starts a stream with a standard version 1.0 file header.
func New() *Builder {
	return NewWithExtraHeader("")
}

// NewWithExtraHeader starts a stream carrying an extra header string.
func NewWithExtraHeader(extra string) *Builder {
	b := &Builder{}
	b.buf.WriteString("WPILOG")
	writeU16(&b.buf, 0x0100)
	writeU32(&b.buf, uint32(len(extra)))
	b.buf.WriteString(extra)
	return b
}

// Bytes returns the accumulated stream.
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

// Append adds raw bytes verbatim, for building corrupt streams.
func (b *Builder) Append(data []byte) *Builder {
	b.buf.Write(data)
	return b
}

func (b *Builder) record(entry uint32, timestamp uint64, payload []byte) *Builder {
	b.buf.WriteByte(headerByte)
	writeU32(&b.buf, entry)
	writeU32(&b.buf, uint32(len(payload)))
	writeU64(&b.buf, timestamp)
	b.buf.Write(payload)
	return b
}

// Start appends an entry start control record.
func (b *Builder) Start(entry uint32, name, typeName, metadata string, timestamp uint64) *Builder {
	var payload bytes.Buffer
	payload.WriteByte(0)
	writeU32(&payload, entry)
	writeInnerString(&payload, name)
	writeInnerString(&payload, typeName)
	writeInnerString(&payload, metadata)
	return b.record(0, timestamp, payload.Bytes())
}

// Finish appends an entry finish control record.
func (b *Builder) Finish(entry uint32, timestamp uint64) *Builder {
	var payload bytes.Buffer
	payload.WriteByte(1)
	writeU32(&payload, entry)
	return b.record(0, timestamp, payload.Bytes())
}

// SetMetadata appends a set-metadata control record.
func (b *Builder) SetMetadata(entry uint32, metadata string, timestamp uint64) *Builder {
	var payload bytes.Buffer
	payload.WriteByte(2)
	writeU32(&payload, entry)
	writeInnerString(&payload, metadata)
	return b.record(0, timestamp, payload.Bytes())
}

// Raw appends a data record with an arbitrary payload.
func (b *Builder) Raw(entry uint32, timestamp uint64, payload []byte) *Builder {
	return b.record(entry, timestamp, payload)
}

// Double appends a float64 data record.
func (b *Builder) Double(entry uint32, timestamp uint64, v float64) *Builder {
	var payload bytes.Buffer
	writeU64(&payload, math.Float64bits(v))
	return b.record(entry, timestamp, payload.Bytes())
}

// Float appends a float32 data record.
func (b *Builder) Float(entry uint32, timestamp uint64, v float32) *Builder {
	var payload bytes.Buffer
	writeU32(&payload, math.Float32bits(v))
	return b.record(entry, timestamp, payload.Bytes())
}

// Int64 appends an int64 data record.
func (b *Builder) Int64(entry uint32, timestamp uint64, v int64) *Builder {
	var payload bytes.Buffer
	writeU64(&payload, uint64(v))
	return b.record(entry, timestamp, payload.Bytes())
}

// Boolean appends a boolean data record.
func (b *Builder) Boolean(entry uint32, timestamp uint64, v bool) *Builder {
	payload := []byte{0}
	if v {
		payload[0] = 1
	}
	return b.record(entry, timestamp, payload)
}

// String appends a string data record.
func (b *Builder) String(entry uint32, timestamp uint64, s string) *Builder {
	return b.record(entry, timestamp, []byte(s))
}

// DoubleArray appends a packed float64 array data record.
func (b *Builder) DoubleArray(entry uint32, timestamp uint64, vs []float64) *Builder {
	var payload bytes.Buffer
	for _, v := range vs {
		writeU64(&payload, math.Float64bits(v))
	}
	return b.record(entry, timestamp, payload.Bytes())
}

// FloatArray appends a packed float32 array data record.
func (b *Builder) FloatArray(entry uint32, timestamp uint64, vs []float32) *Builder {
	var payload bytes.Buffer
	for _, v := range vs {
		writeU32(&payload, math.Float32bits(v))
	}
	return b.record(entry, timestamp, payload.Bytes())
}

// Int64Array appends a packed int64 array data record.
func (b *Builder) Int64Array(entry uint32, timestamp uint64, vs []int64) *Builder {
	var payload bytes.Buffer
	for _, v := range vs {
		writeU64(&payload, uint64(v))
	}
	return b.record(entry, timestamp, payload.Bytes())
}

// BooleanArray appends a one-byte-per-element boolean array data record.
func (b *Builder) BooleanArray(entry uint32, timestamp uint64, vs []bool) *Builder {
	payload := make([]byte, len(vs))
	for i, v := range vs {
		if v {
			payload[i] = 1
		}
	}
	return b.record(entry, timestamp, payload)
}

// StringArray appends a counted string array data record.
func (b *Builder) StringArray(entry uint32, timestamp uint64, vs []string) *Builder {
	var payload bytes.Buffer
	writeU32(&payload, uint32(len(vs)))
	for _, v := range vs {
		writeInnerString(&payload, v)
	}
	return b.record(entry, timestamp, payload.Bytes())
}

func writeInnerString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}
