// Package rows assembles decoded values into wide or long output rows and
// computes the global dynamic-column union the columnar writer needs.
package rows

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/logtab/logtab/internal/model"
	"github.com/logtab/logtab/pkg/datalog"
	"github.com/logtab/logtab/pkg/decode"
	"github.com/logtab/logtab/pkg/errors"
)

// Mode selects the output row shape.
type Mode uint8

const (
	// ModeWide emits one sparse column per observed entry/field name.
	ModeWide Mode = iota
	// ModeLong emits fixed-shape rows with a tagged-union value.
	ModeLong
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeLong {
		return "long"
	}
	return "wide"
}

// ParseMode parses a mode name, defaulting to wide.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "long") {
		return ModeLong
	}
	return ModeWide
}

// CollisionPolicy decides what happens when an entry or struct field name
// collides with one of the fixed column names.
type CollisionPolicy uint8

const (
	// CollisionPrefix renames the colliding column with a "data_" prefix.
	CollisionPrefix CollisionPolicy = iota
	// CollisionError aborts the conversion on a collision.
	CollisionError
)

// ParseCollisionPolicy parses a policy name, defaulting to prefix.
func ParseCollisionPolicy(s string) CollisionPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "error") {
		return CollisionError
	}
	return CollisionPrefix
}

const collisionPrefix = "data_"

// Column is one dynamic output column with its inferred value kind.
type Column struct {
	Name string
	Kind model.Kind
}

// Builder accumulates output rows for one conversion run.
type Builder struct {
	mode   Mode
	policy CollisionPolicy

	wide []model.WideRow
	long []model.LongRow

	// metrics is the set of entry names that produced at least one row.
	metrics map[string]struct{}
}

// NewBuilder creates a builder for the given shape and collision policy.
func NewBuilder(mode Mode, policy CollisionPolicy) *Builder {
	return &Builder{
		mode:    mode,
		policy:  policy,
		metrics: make(map[string]struct{}),
	}
}

// Mode returns the builder's row shape.
func (b *Builder) Mode() Mode { return b.mode }

// Append builds and stores one row from a decoded data record.
func (b *Builder) Append(rec datalog.Record, ent decode.Entry, val model.Value, loopCount int64) error {
	b.metrics[ent.Name] = struct{}{}
	timestamp := float64(rec.Timestamp) / 1_000_000

	if b.mode == ModeLong {
		return b.appendLong(rec, ent, val, timestamp, loopCount)
	}
	return b.appendWide(rec, ent, val, timestamp, loopCount)
}

func (b *Builder) appendWide(rec datalog.Record, ent decode.Entry, val model.Value, timestamp float64, loopCount int64) error {
	row := model.NewWideRow(timestamp, rec.Entry, ent.Type, loopCount)

	if val.Kind == model.KindStruct {
		// Struct payloads contribute one column per flattened field.
		for name, field := range val.Fields {
			key, err := b.columnKey(name)
			if err != nil {
				return err
			}
			row.Data[key] = field
		}
	} else {
		key, err := b.columnKey(ent.Name)
		if err != nil {
			return err
		}
		row.Data[key] = val
	}

	b.wide = append(b.wide, row)
	return nil
}

func (b *Builder) appendLong(rec datalog.Record, ent decode.Entry, val model.Value, timestamp float64, loopCount int64) error {
	row := model.LongRow{
		Timestamp: timestamp,
		Entry:     rec.Entry,
		Type:      ent.Type,
		LoopCount: loopCount,
	}

	if ent.Tag.Type == decode.TypeJSON && val.Kind == model.KindString {
		parsed := make(map[string]interface{})
		if err := json.Unmarshal([]byte(val.Str), &parsed); err != nil {
			return errors.Wrap(err, errors.CodeMalformedJSON, "json entry failed to parse").
				WithContext("entry", ent.Name)
		}
		row.JSON = parsed
	} else {
		switch val.Kind {
		case model.KindDouble:
			v := val.Double
			row.Value.Double = &v
		case model.KindInt64:
			v := val.Int64
			row.Value.Int64 = &v
		case model.KindString:
			v := val.Str
			row.Value.String = &v
		case model.KindBoolean:
			v := val.Bool
			row.Value.Boolean = &v
		case model.KindBooleanArray:
			row.Value.BooleanArray = val.Bools
		case model.KindDoubleArray:
			row.Value.DoubleArray = val.Doubles
		case model.KindFloatArray:
			row.Value.FloatArray = val.Floats
		case model.KindInt64Array:
			row.Value.Int64Array = val.Int64s
		case model.KindStringArray:
			row.Value.StringArray = val.Strings
		}
		// KindNone, KindBytes, KindStruct leave the union unset.
	}

	b.long = append(b.long, row)
	return nil
}

// columnKey applies the collision policy to a dynamic column name.
func (b *Builder) columnKey(name string) (string, error) {
	switch name {
	case model.ColTimestamp, model.ColEntry, model.ColType, model.ColLoopCount:
		if b.policy == CollisionError {
			return "", errors.New(errors.CodeColumnCollision, "entry name collides with a fixed column").
				WithContext("name", name)
		}
		return collisionPrefix + name, nil
	}
	return name, nil
}

// WideRows returns the accumulated wide rows.
func (b *Builder) WideRows() []model.WideRow { return b.wide }

// LongRows returns the accumulated long rows.
func (b *Builder) LongRows() []model.LongRow { return b.long }

// Len returns the number of accumulated rows.
func (b *Builder) Len() int {
	if b.mode == ModeLong {
		return len(b.long)
	}
	return len(b.wide)
}

// MetricNames returns the sorted set of entry names that produced rows.
func (b *Builder) MetricNames() []string {
	names := make([]string, 0, len(b.metrics))
	for name := range b.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Columns computes the dynamic-column union over every accumulated wide
// row in a dedicated pass. The first non-none value seen for a column
// decides its kind; a column that is always no-value defaults to string.
// The writer needs this before the first chunk is written, because no
// single row carries the full column set.
func (b *Builder) Columns() []Column {
	kinds := make(map[string]model.Kind)
	for _, row := range b.wide {
		for name, val := range row.Data {
			if existing, ok := kinds[name]; ok && existing != model.KindNone {
				continue
			}
			kinds[name] = val.Kind
		}
	}

	columns := make([]Column, 0, len(kinds))
	for name, kind := range kinds {
		if kind == model.KindNone {
			kind = model.KindString
		}
		columns = append(columns, Column{Name: name, Kind: kind})
	}
	sort.Slice(columns, func(i, j int) bool { return columns[i].Name < columns[j].Name })
	return columns
}
