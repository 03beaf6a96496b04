// Package sinks provides output sink implementations.
package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/logtab/logtab/internal/model"
	"github.com/logtab/logtab/pkg/batch"
	"github.com/logtab/logtab/pkg/convert"
	"github.com/logtab/logtab/pkg/errors"
	"github.com/logtab/logtab/pkg/rows"
)

// Version info for file metadata
const logtabVersion = "0.1.0"

// filePattern names the per-chunk output files.
const filePattern = "file_%s.parquet"

// ParquetSink writes conversion results to chunked Parquet files.
// Uses atomic writes (write to temp file, rename on success) to prevent
// partially written output.
type ParquetSink struct {
	outputDir   string
	chunkSize   int
	compression string
	sourceFile  string
}

// NewParquetSink creates a sink writing into outputDir.
func NewParquetSink(outputDir string) *ParquetSink {
	return &ParquetSink{
		outputDir: outputDir,
		chunkSize: batch.DefaultChunkSize,
	}
}

// ChunkSize sets the rows-per-file chunk size.
func (s *ParquetSink) ChunkSize(size int) *ParquetSink {
	if size > 0 {
		s.chunkSize = size
	}
	return s
}

// Compression sets the Parquet codec by name (snappy, zstd, gzip, lz4,
// brotli, none).
func (s *ParquetSink) Compression(name string) *ParquetSink {
	s.compression = name
	return s
}

// SourceFile records the input path in the Parquet file metadata.
func (s *ParquetSink) SourceFile(path string) *ParquetSink {
	s.sourceFile = path
	return s
}

// WriteStats describes a completed write.
type WriteStats struct {
	Rows      int
	Chunks    int
	ChunkSize int
	Files     []string
	Bytes     int64
	Duration  time.Duration
}

// Summary returns a human-readable description of the write.
func (st *WriteStats) Summary() string {
	return fmt.Sprintf("wrote %d rows across %d file(s) (%d rows per file)",
		st.Rows, st.Chunks, st.ChunkSize)
}

// Write writes a conversion result as chunked Parquet files named
// file_part000.parquet, file_part001.parquet, and so on. An empty result
// is refused rather than producing an empty file.
func (s *ParquetSink) Write(ctx context.Context, res *convert.Result, mode rows.Mode) (*WriteStats, error) {
	if mode == rows.ModeLong {
		return s.writeLong(ctx, res)
	}
	return s.writeWide(ctx, res)
}

func (s *ParquetSink) writeWide(ctx context.Context, res *convert.Result) (*WriteStats, error) {
	if len(res.Wide) == 0 {
		return nil, errors.NoRecords(s.sourceFile)
	}
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.CodeWriteFailed, "failed to create output directory")
	}

	start := time.Now()
	schema := s.wideSchema(res.Columns)
	stats := &WriteStats{ChunkSize: s.chunkSize}

	for _, chunk := range batch.Split(res.Wide, s.chunkSize) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeContextCanceled, "write canceled")
		}

		rec := s.buildWideRecord(schema, res.Columns, chunk.Rows)
		path := filepath.Join(s.outputDir, fmt.Sprintf(filePattern, chunk.Label))
		n, err := writeRecord(schema, rec, path, s.compression)
		rec.Release()
		if err != nil {
			return nil, err
		}

		stats.Chunks++
		stats.Rows += len(chunk.Rows)
		stats.Bytes += n
		stats.Files = append(stats.Files, path)
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

func (s *ParquetSink) writeLong(ctx context.Context, res *convert.Result) (*WriteStats, error) {
	if len(res.Long) == 0 {
		return nil, errors.NoRecords(s.sourceFile)
	}
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.CodeWriteFailed, "failed to create output directory")
	}

	start := time.Now()
	schema := longSchema()
	stats := &WriteStats{ChunkSize: s.chunkSize}

	for _, chunk := range batch.Split(res.Long, s.chunkSize) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeContextCanceled, "write canceled")
		}

		rec := buildLongRecord(schema, chunk.Rows)
		path := filepath.Join(s.outputDir, fmt.Sprintf(filePattern, chunk.Label))
		n, err := writeRecord(schema, rec, path, s.compression)
		rec.Release()
		if err != nil {
			return nil, err
		}

		stats.Chunks++
		stats.Rows += len(chunk.Rows)
		stats.Bytes += n
		stats.Files = append(stats.Files, path)
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// wideSchema builds the Arrow schema: the fixed columns followed by the
// dynamic column union, typed from decoded value kinds.
func (s *ParquetSink) wideSchema(columns []rows.Column) *arrow.Schema {
	fields := []arrow.Field{
		{Name: model.ColTimestamp, Type: arrow.PrimitiveTypes.Float64},
		{Name: model.ColEntry, Type: arrow.PrimitiveTypes.Uint32},
		{Name: model.ColType, Type: arrow.BinaryTypes.String},
		{Name: model.ColLoopCount, Type: arrow.PrimitiveTypes.Int64},
	}
	for _, col := range columns {
		fields = append(fields, arrow.Field{
			Name:     col.Name,
			Type:     arrowType(col.Kind),
			Nullable: true,
		})
	}

	meta := arrow.NewMetadata(
		[]string{"logtab.version", "logtab.created_at", "logtab.source_file"},
		[]string{logtabVersion, time.Now().Format(time.RFC3339), s.sourceFile},
	)
	return arrow.NewSchema(fields, &meta)
}

// arrowType maps a decoded value kind to its Arrow type.
func arrowType(kind model.Kind) arrow.DataType {
	switch kind {
	case model.KindDouble:
		return arrow.PrimitiveTypes.Float64
	case model.KindInt64:
		return arrow.PrimitiveTypes.Int64
	case model.KindBoolean:
		return arrow.FixedWidthTypes.Boolean
	case model.KindBooleanArray:
		return arrow.ListOf(arrow.FixedWidthTypes.Boolean)
	case model.KindDoubleArray, model.KindFloatArray:
		return arrow.ListOf(arrow.PrimitiveTypes.Float64)
	case model.KindInt64Array:
		return arrow.ListOf(arrow.PrimitiveTypes.Int64)
	case model.KindStringArray:
		return arrow.ListOf(arrow.BinaryTypes.String)
	case model.KindBytes:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// buildWideRecord fills one Arrow record from a chunk of wide rows.
func (s *ParquetSink) buildWideRecord(schema *arrow.Schema, columns []rows.Column, chunk []model.WideRow) arrow.Record {
	rb := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer rb.Release()

	ts := rb.Field(0).(*array.Float64Builder)
	entry := rb.Field(1).(*array.Uint32Builder)
	typ := rb.Field(2).(*array.StringBuilder)
	loop := rb.Field(3).(*array.Int64Builder)

	for _, row := range chunk {
		ts.Append(row.Timestamp)
		entry.Append(row.Entry)
		typ.Append(row.Type)
		loop.Append(row.LoopCount)
	}

	for i, col := range columns {
		fb := rb.Field(4 + i)
		for _, row := range chunk {
			val, ok := row.Data[col.Name]
			if !ok || val.IsNone() {
				fb.AppendNull()
				continue
			}
			appendValue(fb, val)
		}
	}

	return rb.NewRecord()
}

// appendValue appends a single decoded value to a column builder, or a null
// when the value's kind disagrees with the column's inferred type.
func appendValue(fb array.Builder, val model.Value) {
	switch b := fb.(type) {
	case *array.Float64Builder:
		switch val.Kind {
		case model.KindDouble:
			b.Append(val.Double)
		case model.KindInt64:
			b.Append(float64(val.Int64))
		default:
			b.AppendNull()
		}
	case *array.Int64Builder:
		if val.Kind == model.KindInt64 {
			b.Append(val.Int64)
		} else {
			b.AppendNull()
		}
	case *array.BooleanBuilder:
		if val.Kind == model.KindBoolean {
			b.Append(val.Bool)
		} else {
			b.AppendNull()
		}
	case *array.StringBuilder:
		if val.Kind == model.KindString {
			b.Append(val.Str)
		} else {
			b.AppendNull()
		}
	case *array.BinaryBuilder:
		if val.Kind == model.KindBytes {
			b.Append(val.Bytes)
		} else {
			b.AppendNull()
		}
	case *array.ListBuilder:
		appendList(b, val)
	default:
		fb.AppendNull()
	}
}

func appendList(lb *array.ListBuilder, val model.Value) {
	switch vb := lb.ValueBuilder().(type) {
	case *array.BooleanBuilder:
		if val.Kind != model.KindBooleanArray {
			lb.AppendNull()
			return
		}
		lb.Append(true)
		for _, v := range val.Bools {
			vb.Append(v)
		}
	case *array.Float64Builder:
		var src []float64
		switch val.Kind {
		case model.KindDoubleArray:
			src = val.Doubles
		case model.KindFloatArray:
			src = val.Floats
		default:
			lb.AppendNull()
			return
		}
		lb.Append(true)
		for _, v := range src {
			vb.Append(v)
		}
	case *array.Int64Builder:
		if val.Kind != model.KindInt64Array {
			lb.AppendNull()
			return
		}
		lb.Append(true)
		for _, v := range val.Int64s {
			vb.Append(v)
		}
	case *array.StringBuilder:
		if val.Kind != model.KindStringArray {
			lb.AppendNull()
			return
		}
		lb.Append(true)
		for _, v := range val.Strings {
			vb.Append(v)
		}
	default:
		lb.AppendNull()
	}
}

// longSchema is the fixed schema for long-shaped output.
func longSchema() *arrow.Schema {
	fields := []arrow.Field{
		{Name: model.ColTimestamp, Type: arrow.PrimitiveTypes.Float64},
		{Name: model.ColEntry, Type: arrow.PrimitiveTypes.Uint32},
		{Name: model.ColType, Type: arrow.BinaryTypes.String},
		{Name: model.ColLoopCount, Type: arrow.PrimitiveTypes.Int64},
		{Name: "json", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "value_double", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "value_int64", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "value_string", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "value_boolean", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		{Name: "value_boolean_array", Type: arrow.ListOf(arrow.FixedWidthTypes.Boolean), Nullable: true},
		{Name: "value_double_array", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64), Nullable: true},
		{Name: "value_float_array", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64), Nullable: true},
		{Name: "value_int64_array", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64), Nullable: true},
		{Name: "value_string_array", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: true},
	}
	return arrow.NewSchema(fields, nil)
}

func buildLongRecord(schema *arrow.Schema, chunk []model.LongRow) arrow.Record {
	rb := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer rb.Release()

	ts := rb.Field(0).(*array.Float64Builder)
	entry := rb.Field(1).(*array.Uint32Builder)
	typ := rb.Field(2).(*array.StringBuilder)
	loop := rb.Field(3).(*array.Int64Builder)
	jsonCol := rb.Field(4).(*array.StringBuilder)
	vDouble := rb.Field(5).(*array.Float64Builder)
	vInt64 := rb.Field(6).(*array.Int64Builder)
	vString := rb.Field(7).(*array.StringBuilder)
	vBool := rb.Field(8).(*array.BooleanBuilder)
	vBoolArr := rb.Field(9).(*array.ListBuilder)
	vDoubleArr := rb.Field(10).(*array.ListBuilder)
	vFloatArr := rb.Field(11).(*array.ListBuilder)
	vInt64Arr := rb.Field(12).(*array.ListBuilder)
	vStringArr := rb.Field(13).(*array.ListBuilder)

	for _, row := range chunk {
		ts.Append(row.Timestamp)
		entry.Append(row.Entry)
		typ.Append(row.Type)
		loop.Append(row.LoopCount)

		if row.JSON != nil {
			raw, err := json.Marshal(row.JSON)
			if err != nil {
				jsonCol.AppendNull()
			} else {
				jsonCol.Append(string(raw))
			}
		} else {
			jsonCol.AppendNull()
		}

		appendOptFloat64(vDouble, row.Value.Double)
		appendOptInt64(vInt64, row.Value.Int64)
		appendOptString(vString, row.Value.String)
		appendOptBool(vBool, row.Value.Boolean)
		appendBoolList(vBoolArr, row.Value.BooleanArray)
		appendFloat64List(vDoubleArr, row.Value.DoubleArray)
		appendFloat64List(vFloatArr, row.Value.FloatArray)
		appendInt64List(vInt64Arr, row.Value.Int64Array)
		appendStringList(vStringArr, row.Value.StringArray)
	}

	return rb.NewRecord()
}

func appendOptFloat64(b *array.Float64Builder, v *float64) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

func appendOptInt64(b *array.Int64Builder, v *int64) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

func appendOptString(b *array.StringBuilder, v *string) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

func appendOptBool(b *array.BooleanBuilder, v *bool) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

func appendBoolList(lb *array.ListBuilder, vs []bool) {
	if vs == nil {
		lb.AppendNull()
		return
	}
	lb.Append(true)
	vb := lb.ValueBuilder().(*array.BooleanBuilder)
	for _, v := range vs {
		vb.Append(v)
	}
}

func appendFloat64List(lb *array.ListBuilder, vs []float64) {
	if vs == nil {
		lb.AppendNull()
		return
	}
	lb.Append(true)
	vb := lb.ValueBuilder().(*array.Float64Builder)
	for _, v := range vs {
		vb.Append(v)
	}
}

func appendInt64List(lb *array.ListBuilder, vs []int64) {
	if vs == nil {
		lb.AppendNull()
		return
	}
	lb.Append(true)
	vb := lb.ValueBuilder().(*array.Int64Builder)
	for _, v := range vs {
		vb.Append(v)
	}
}

func appendStringList(lb *array.ListBuilder, vs []string) {
	if vs == nil {
		lb.AppendNull()
		return
	}
	lb.Append(true)
	vb := lb.ValueBuilder().(*array.StringBuilder)
	for _, v := range vs {
		vb.Append(v)
	}
}

// writeRecord writes one Arrow record to a Parquet file via a temp file
// renamed into place on success.
func writeRecord(schema *arrow.Schema, rec arrow.Record, path, compression string) (int64, error) {
	tempPath := path + fmt.Sprintf(".tmp.%d", time.Now().UnixNano())
	file, err := os.Create(tempPath)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeWriteFailed, "failed to create temp file").
			WithContext("path", path)
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(getCompression(compression)),
		parquet.WithCreatedBy("logtab "+logtabVersion),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(schema, file, writerProps, arrowProps)
	if err != nil {
		file.Close()
		os.Remove(tempPath)
		return 0, errors.Wrap(err, errors.CodeWriteFailed, "failed to create Parquet writer")
	}

	if err := writer.Write(rec); err != nil {
		writer.Close()
		os.Remove(tempPath)
		return 0, errors.Wrap(err, errors.CodeWriteFailed, "failed to write batch").
			WithContext("path", path)
	}
	if err := writer.Close(); err != nil {
		os.Remove(tempPath)
		return 0, errors.Wrap(err, errors.CodeWriteFailed, "failed to close writer").
			WithContext("path", path)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return 0, errors.Wrap(err, errors.CodeWriteFailed, "failed to rename temp file").
			WithContext("path", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, nil
	}
	return info.Size(), nil
}

// getCompression maps a codec name to the Parquet codec.
func getCompression(name string) compress.Compression {
	switch name {
	case "snappy":
		return compress.Codecs.Snappy
	case "gzip":
		return compress.Codecs.Gzip
	case "lz4":
		return compress.Codecs.Lz4
	case "zstd":
		return compress.Codecs.Zstd
	case "brotli":
		return compress.Codecs.Brotli
	default:
		return compress.Codecs.Uncompressed
	}
}
