// Package convert drives the conversion of one datalog file: a schema-only
// pre-pass followed by a full decode pass over the record stream. Each
// Converter owns its registries and row buffer outright; converting several
// files concurrently means one Converter per file, never sub-file
// parallelism, because schema resolution is stream-order-dependent.
package convert

import (
	"context"
	stderrors "errors"

	"github.com/logtab/logtab/internal/model"
	"github.com/logtab/logtab/pkg/datalog"
	"github.com/logtab/logtab/pkg/decode"
	"github.com/logtab/logtab/pkg/errors"
	"github.com/logtab/logtab/pkg/rows"
)

// loopEntryName is the entry whose data records mark robot loop cycles.
const loopEntryName = "/Timestamp"

// cancelCheckInterval is how many records to process between context checks.
const cancelCheckInterval = 4096

// Options configures a conversion run.
type Options struct {
	Mode      rows.Mode
	Collision rows.CollisionPolicy
}

// Result is the complete output of one decode pass.
type Result struct {
	Wide    []model.WideRow
	Long    []model.LongRow
	Columns []rows.Column // dynamic column union, wide mode only
	Metrics []string      // entry names that produced rows
	Records int           // framed records seen, including control records
}

// Rows returns the number of output rows.
func (r *Result) Rows() int {
	if len(r.Long) > 0 {
		return len(r.Long)
	}
	return len(r.Wide)
}

// Converter converts one datalog file. Not safe for concurrent use.
type Converter struct {
	path string
	opts Options

	entries *decode.EntryRegistry
	schemas *decode.SchemaRegistry
	decoder *decode.Decoder

	loopCount int64
}

// New creates a converter for one input file.
func New(path string, opts Options) *Converter {
	entries := decode.NewEntryRegistry()
	schemas := decode.NewSchemaRegistry()
	return &Converter{
		path:    path,
		opts:    opts,
		entries: entries,
		schemas: schemas,
		decoder: decode.NewDecoder(entries, schemas),
	}
}

// Schemas exposes the schema registry, populated by either pass.
func (c *Converter) Schemas() *decode.SchemaRegistry { return c.schemas }

// InferSchema runs the schema-only pre-pass: it registers entry lifecycle
// and struct-schema declarations while suppressing row emission, so struct
// references that precede their declaration in the stream still resolve in
// the decode pass.
func (c *Converter) InferSchema(ctx context.Context) error {
	reader, err := datalog.Open(c.path)
	if err != nil {
		return err
	}
	_, err = c.scan(ctx, reader, true)
	return err
}

// Decode runs the full pass and returns the ordered row sequence.
func (c *Converter) Decode(ctx context.Context) (*Result, error) {
	reader, err := datalog.Open(c.path)
	if err != nil {
		return nil, err
	}
	return c.scan(ctx, reader, false)
}

// InferSchemaBytes is InferSchema over an in-memory log image.
func (c *Converter) InferSchemaBytes(ctx context.Context, data []byte) error {
	_, err := c.scan(ctx, datalog.NewReader(data), true)
	return err
}

// DecodeBytes is Decode over an in-memory log image.
func (c *Converter) DecodeBytes(ctx context.Context, data []byte) (*Result, error) {
	return c.scan(ctx, datalog.NewReader(data), false)
}

func (c *Converter) scan(ctx context.Context, reader *datalog.Reader, inferOnly bool) (*Result, error) {
	it, err := reader.Records()
	if err != nil {
		return nil, err
	}

	// Entry lifecycle restarts per pass; schemas persist across passes.
	c.entries = decode.NewEntryRegistry()
	c.decoder = decode.NewDecoder(c.entries, c.schemas)
	builder := rows.NewBuilder(c.opts.Mode, c.opts.Collision)

	seen := 0
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		seen++

		if seen%cancelCheckInterval == 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, errors.Wrap(ctxErr, errors.CodeContextCanceled, "conversion canceled").
					WithContext("path", c.path)
			}
		}

		switch {
		case rec.IsStart():
			data, err := rec.StartData()
			if err != nil {
				return nil, errors.MalformedRecord("start", rec.Entry, err).
					WithContext("path", c.path).
					WithContext("record", seen)
			}
			c.entries.OnStart(data)

		case rec.IsFinish():
			id, err := rec.FinishEntry()
			if err != nil {
				return nil, errors.MalformedRecord("finish", rec.Entry, err).
					WithContext("path", c.path).
					WithContext("record", seen)
			}
			c.entries.OnFinish(id)

		case rec.IsControl():
			// Set-metadata and unknown control records carry nothing rows need.

		default:
			ent, ok := c.entries.Lookup(rec.Entry)
			if !ok {
				// Never-started or already-finished entry: the record
				// cannot be typed, drop it silently.
				continue
			}

			if inferOnly {
				if ent.Tag.Type == decode.TypeStructSchema {
					if _, err := c.schemas.RegisterDeclaration(ent.Name, rec.String()); err != nil {
						return nil, err
					}
				}
				continue
			}

			val, err := c.decoder.Decode(rec, ent)
			if err != nil {
				return nil, wrapRecordErr(err, c.path, seen)
			}
			if err := builder.Append(rec, ent, val, c.loopCount); err != nil {
				return nil, wrapRecordErr(err, c.path, seen)
			}
			if ent.Name == loopEntryName {
				c.loopCount++
			}
		}
	}

	result := &Result{
		Wide:    builder.WideRows(),
		Long:    builder.LongRows(),
		Metrics: builder.MetricNames(),
		Records: seen,
	}
	if c.opts.Mode == rows.ModeWide {
		result.Columns = builder.Columns()
	}
	return result, nil
}

// wrapRecordErr attaches file/record position to a decode error so the
// caller can identify the offending record.
func wrapRecordErr(err error, path string, record int) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.WithContext("path", path).WithContext("record", record)
	}
	return err
}
