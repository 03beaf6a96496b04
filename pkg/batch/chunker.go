// Package batch splits a row sequence into fixed-size, in-order chunks for
// sequential handoff to the output writer. Rows are never reordered,
// deduplicated, or dropped here.
package batch

import "fmt"

// DefaultChunkSize is the default number of rows per output file.
const DefaultChunkSize = 50_000

// Chunk is one contiguous slice of the input sequence, labeled with a
// zero-padded sequential index.
type Chunk[T any] struct {
	Index int
	Label string
	Rows  []T
}

// Chunker splits row sequences.
type Chunker struct {
	size int
}

// NewChunker creates a chunker; size <= 0 falls back to the default.
func NewChunker(size int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Chunker{size: size}
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// NumChunks returns how many chunks n rows will produce.
func (c *Chunker) NumChunks(n int) int {
	return (n + c.size - 1) / c.size
}

// Split cuts rows into contiguous chunks of the configured size, in the
// original order; the last chunk may be shorter. Chunks share the backing
// array of rows.
func Split[T any](rows []T, size int) []Chunk[T] {
	if size <= 0 {
		size = DefaultChunkSize
	}

	chunks := make([]Chunk[T], 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		index := len(chunks)
		chunks = append(chunks, Chunk[T]{
			Index: index,
			Label: Label(index),
			Rows:  rows[start:end],
		})
	}
	return chunks
}

// Label renders the zero-padded chunk label used in output file names.
func Label(index int) string {
	return fmt.Sprintf("part%03d", index)
}
