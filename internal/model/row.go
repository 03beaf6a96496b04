package model

// Fixed column names shared by both row shapes. Entry names that collide
// with these are handled by the row builder's collision policy.
const (
	ColTimestamp = "timestamp"
	ColEntry     = "entry"
	ColType      = "type"
	ColLoopCount = "loop_count"
)

// WideRow is one output row per log record with every observed entry or
// struct field name as a sparse dynamic column.
type WideRow struct {
	// Timestamp in float seconds (source microseconds / 1e6).
	Timestamp float64

	// Entry is the numeric entry id.
	Entry uint32

	// Type is the entry's declared type tag.
	Type string

	// LoopCount is the robot loop cycle this record belongs to.
	LoopCount int64

	// Data maps dynamic column name to decoded value. Struct payloads
	// contribute one column per flattened field instead of one column
	// for the whole entry.
	Data map[string]Value
}

// NewWideRow creates a wide row with the fixed fields populated.
func NewWideRow(timestamp float64, entry uint32, typeName string, loopCount int64) WideRow {
	return WideRow{
		Timestamp: timestamp,
		Entry:     entry,
		Type:      typeName,
		LoopCount: loopCount,
		Data:      make(map[string]Value, 1),
	}
}

// TaggedValue is the long-row value union. At most one member is non-nil;
// all nil means the record failed to decode.
type TaggedValue struct {
	Double       *float64
	Int64        *int64
	String       *string
	Boolean      *bool
	BooleanArray []bool
	DoubleArray  []float64
	FloatArray   []float64
	Int64Array   []int64
	StringArray  []string
}

// LongRow is one output row per log record with a fixed shape and a
// tagged-union value field.
type LongRow struct {
	Timestamp float64
	Entry     uint32
	Type      string
	LoopCount int64

	// JSON is populated only for json-typed entries (parsed eagerly).
	JSON map[string]interface{}

	Value TaggedValue
}
