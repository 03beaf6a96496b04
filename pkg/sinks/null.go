package sinks

import (
	"context"

	"github.com/logtab/logtab/pkg/convert"
	"github.com/logtab/logtab/pkg/errors"
	"github.com/logtab/logtab/pkg/rows"
)

// NullSink discards output. Useful for measuring decode throughput.
type NullSink struct{}

// NewNullSink returns a sink that counts rows and writes nothing.
func NewNullSink() *NullSink {
	return &NullSink{}
}

// Write counts the rows a real sink would have written.
func (s *NullSink) Write(_ context.Context, res *convert.Result, mode rows.Mode) (*WriteStats, error) {
	n := len(res.Wide)
	if mode == rows.ModeLong {
		n = len(res.Long)
	}
	if n == 0 {
		return nil, errors.NoRecords("")
	}
	return &WriteStats{Rows: n, Chunks: 1, ChunkSize: n}, nil
}
