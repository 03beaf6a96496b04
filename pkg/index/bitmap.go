// Package index builds compressed row-position indexes for converted logs.
//
// The index maps each entry id to the set of output row positions holding
// that entry's samples, so downstream tooling can jump straight to the rows
// for one signal without scanning the whole file.
package index

import (
	"encoding/binary"
	"os"
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/logtab/logtab/internal/model"
	"github.com/logtab/logtab/pkg/errors"
)

const sidecarMagic = "LTIX"

// EntryIndex maps entry ids to bitmaps of row positions.
type EntryIndex struct {
	bitmaps map[uint32]*roaring.Bitmap
}

// New returns an empty index.
func New() *EntryIndex {
	return &EntryIndex{bitmaps: make(map[uint32]*roaring.Bitmap)}
}

// Add records that row holds a sample for entry.
func (ix *EntryIndex) Add(entry uint32, row uint32) {
	bm, ok := ix.bitmaps[entry]
	if !ok {
		bm = roaring.New()
		ix.bitmaps[entry] = bm
	}
	bm.Add(row)
}

// BuildWide indexes a slice of wide rows by their positions.
func BuildWide(rows []model.WideRow) *EntryIndex {
	ix := New()
	for i, row := range rows {
		ix.Add(row.Entry, uint32(i))
	}
	return ix
}

// BuildLong indexes a slice of long rows by their positions.
func BuildLong(rows []model.LongRow) *EntryIndex {
	ix := New()
	for i, row := range rows {
		ix.Add(row.Entry, uint32(i))
	}
	return ix
}

// Rows returns the sorted row positions recorded for entry.
func (ix *EntryIndex) Rows(entry uint32) []uint32 {
	bm, ok := ix.bitmaps[entry]
	if !ok {
		return nil
	}
	return bm.ToArray()
}

// Cardinality returns the number of rows recorded for entry.
func (ix *EntryIndex) Cardinality(entry uint32) uint64 {
	bm, ok := ix.bitmaps[entry]
	if !ok {
		return 0
	}
	return bm.GetCardinality()
}

// Entries returns every indexed entry id in ascending order.
func (ix *EntryIndex) Entries() []uint32 {
	out := make([]uint32, 0, len(ix.bitmaps))
	for id := range ix.bitmaps {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of distinct entries in the index.
func (ix *EntryIndex) Len() int {
	return len(ix.bitmaps)
}

// Save writes the index as a sidecar file: a magic tag, the entry count,
// then per entry its id, bitmap byte length, and serialized bitmap.
func (ix *EntryIndex) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to create index file").
			WithContext("path", path)
	}
	defer f.Close()

	if _, err := f.Write([]byte(sidecarMagic)); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to write index header")
	}
	entries := ix.Entries()
	if err := binary.Write(f, binary.LittleEndian, uint32(len(entries))); err != nil {
		return errors.Wrap(err, errors.CodeWriteFailed, "failed to write index header")
	}

	for _, id := range entries {
		data, err := ix.bitmaps[id].MarshalBinary()
		if err != nil {
			return errors.Wrap(err, errors.CodeWriteFailed, "failed to serialize bitmap").
				WithContext("entry", id)
		}
		if err := binary.Write(f, binary.LittleEndian, id); err != nil {
			return errors.Wrap(err, errors.CodeWriteFailed, "failed to write index entry")
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(len(data))); err != nil {
			return errors.Wrap(err, errors.CodeWriteFailed, "failed to write index entry")
		}
		if _, err := f.Write(data); err != nil {
			return errors.Wrap(err, errors.CodeWriteFailed, "failed to write index entry")
		}
	}
	return nil
}

// Load reads a sidecar index written by Save.
func Load(path string) (*EntryIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeFileNotFound, "failed to read index file").
			WithContext("path", path)
	}
	if len(data) < len(sidecarMagic)+4 || string(data[:len(sidecarMagic)]) != sidecarMagic {
		return nil, errors.InvalidFormat(path, "not an index sidecar file")
	}

	pos := len(sidecarMagic)
	count := binary.LittleEndian.Uint32(data[pos:])
	pos += 4

	ix := New()
	for i := uint32(0); i < count; i++ {
		if pos+8 > len(data) {
			return nil, errors.InvalidFormat(path, "truncated index entry")
		}
		id := binary.LittleEndian.Uint32(data[pos:])
		size := binary.LittleEndian.Uint32(data[pos+4:])
		pos += 8
		if pos+int(size) > len(data) {
			return nil, errors.InvalidFormat(path, "truncated bitmap data")
		}
		bm := roaring.New()
		if err := bm.UnmarshalBinary(data[pos : pos+int(size)]); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidFormat, "failed to deserialize bitmap").
				WithContext("entry", id)
		}
		ix.bitmaps[id] = bm
		pos += int(size)
	}
	return ix, nil
}
