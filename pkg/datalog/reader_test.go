package datalog

import (
	"testing"

	"github.com/logtab/logtab/pkg/errors"
	"github.com/logtab/logtab/pkg/testing/loggen"
)

func TestReader_Header(t *testing.T) {
	data := loggen.NewWithExtraHeader("robot-42").Bytes()

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if !r.Valid() {
		t.Error("expected valid header")
	}
	if r.Version() != 0x0100 {
		t.Errorf("expected version 0x0100, got %#x", r.Version())
	}
	if r.ExtraHeader() != "robot-42" {
		t.Errorf("expected extra header %q, got %q", "robot-42", r.ExtraHeader())
	}
}

func TestReader_RejectsBadMagic(t *testing.T) {
	data := []byte("NOTALOG\x00\x01\x00\x00\x00\x00")
	if _, err := NewReader(data); err == nil {
		t.Fatal("expected error for bad magic")
	} else if !errors.IsCode(err, errors.CodeInvalidFormat) {
		t.Errorf("expected CodeInvalidFormat, got %v", err)
	}
}

func TestReader_RejectsShortHeader(t *testing.T) {
	if _, err := NewReader([]byte("WPILOG")); err == nil {
		t.Fatal("expected error for truncated header")
	}
}

func TestReader_IteratesRecords(t *testing.T) {
	data := loggen.New().
		Start(1, "/x", "double", "", 100).
		Double(1, 200, 1.5).
		Double(1, 300, 2.5).
		Finish(1, 400).
		Bytes()

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	iter, err := r.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}

	var recs []Record
	for {
		rec, ok := iter.Next()
		if !ok {
			break
		}
		recs = append(recs, rec)
	}

	if len(recs) != 4 {
		t.Fatalf("expected 4 records, got %d", len(recs))
	}
	if !recs[0].IsStart() {
		t.Error("record 0 should be a start record")
	}
	if recs[1].Entry != 1 || recs[1].Timestamp != 200 {
		t.Errorf("record 1: got entry=%d ts=%d", recs[1].Entry, recs[1].Timestamp)
	}
	if v, err := recs[1].Double(); err != nil || v != 1.5 {
		t.Errorf("record 1 double: got %v, %v", v, err)
	}
	if !recs[3].IsFinish() {
		t.Error("record 3 should be a finish record")
	}
}

func TestReader_TruncatedTrailingRecordEndsIteration(t *testing.T) {
	full := loggen.New().
		Start(1, "/x", "double", "", 100).
		Double(1, 200, 1.5).
		Bytes()

	// Cut into the middle of the final record's payload.
	data := full[:len(full)-3]

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	iter, err := r.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}

	count := 0
	for {
		if _, ok := iter.Next(); !ok {
			break
		}
		count++
	}
	if count != 1 {
		t.Errorf("expected 1 complete record, got %d", count)
	}
}

func TestRecord_ControlParsing(t *testing.T) {
	data := loggen.New().
		Start(7, "/motor", "int64", `{"source":"NT"}`, 50).
		SetMetadata(7, `{"updated":true}`, 60).
		Finish(7, 70).
		Bytes()

	r, _ := NewReader(data)
	iter, _ := r.Records()

	start, _ := iter.Next()
	sd, err := start.StartData()
	if err != nil {
		t.Fatalf("StartData failed: %v", err)
	}
	if sd.Entry != 7 || sd.Name != "/motor" || sd.Type != "int64" || sd.Metadata != `{"source":"NT"}` {
		t.Errorf("unexpected start data: %+v", sd)
	}

	meta, _ := iter.Next()
	md, err := meta.SetMetadataData()
	if err != nil {
		t.Fatalf("SetMetadataData failed: %v", err)
	}
	if md.Entry != 7 || md.Metadata != `{"updated":true}` {
		t.Errorf("unexpected metadata data: %+v", md)
	}

	finish, _ := iter.Next()
	id, err := finish.FinishEntry()
	if err != nil {
		t.Fatalf("FinishEntry failed: %v", err)
	}
	if id != 7 {
		t.Errorf("expected finish entry 7, got %d", id)
	}
}

func TestRecord_Accessors(t *testing.T) {
	data := loggen.New().
		Boolean(1, 0, true).
		Int64(2, 0, -42).
		Float(3, 0, 2.5).
		Double(4, 0, 3.25).
		String(5, 0, "hello").
		BooleanArray(6, 0, []bool{true, false, true}).
		Int64Array(7, 0, []int64{1, 2, 3}).
		FloatArray(8, 0, []float32{1.5, 2.5}).
		DoubleArray(9, 0, []float64{0.5, 1.5}).
		StringArray(10, 0, []string{"a", "bc"}).
		Bytes()

	r, _ := NewReader(data)
	iter, _ := r.Records()

	var recs []Record
	for {
		rec, ok := iter.Next()
		if !ok {
			break
		}
		recs = append(recs, rec)
	}
	if len(recs) != 10 {
		t.Fatalf("expected 10 records, got %d", len(recs))
	}

	if v, err := recs[0].Boolean(); err != nil || v != true {
		t.Errorf("boolean: %v, %v", v, err)
	}
	if v, err := recs[1].Integer(); err != nil || v != -42 {
		t.Errorf("integer: %v, %v", v, err)
	}
	if v, err := recs[2].Float(); err != nil || v != 2.5 {
		t.Errorf("float: %v, %v", v, err)
	}
	if v, err := recs[3].Double(); err != nil || v != 3.25 {
		t.Errorf("double: %v, %v", v, err)
	}
	if recs[4].String() != "hello" {
		t.Errorf("string: %q", recs[4].String())
	}
	if v := recs[5].BooleanArray(); len(v) != 3 || !v[0] || v[1] {
		t.Errorf("boolean array: %v", v)
	}
	if v, err := recs[6].IntegerArray(); err != nil || len(v) != 3 || v[2] != 3 {
		t.Errorf("integer array: %v, %v", v, err)
	}
	if v, err := recs[7].FloatArray(); err != nil || len(v) != 2 || v[0] != 1.5 {
		t.Errorf("float array: %v, %v", v, err)
	}
	if v, err := recs[8].DoubleArray(); err != nil || len(v) != 2 || v[1] != 1.5 {
		t.Errorf("double array: %v, %v", v, err)
	}
	if v, err := recs[9].StringArray(); err != nil || len(v) != 2 || v[1] != "bc" {
		t.Errorf("string array: %v, %v", v, err)
	}
}

func TestRecord_AccessorSizeMismatch(t *testing.T) {
	rec := Record{Entry: 1, Data: []byte{1, 2, 3}}

	if _, err := rec.Double(); err == nil {
		t.Error("expected error for 3-byte double")
	}
	if _, err := rec.Integer(); err == nil {
		t.Error("expected error for 3-byte integer")
	}
	if _, err := rec.Float(); err == nil {
		t.Error("expected error for 3-byte float")
	}
	if _, err := rec.IntegerArray(); err == nil {
		t.Error("expected error for misaligned integer array")
	}
	if _, err := rec.FloatArray(); err == nil {
		t.Error("expected error for misaligned float array")
	}
}

func TestRecord_StringArraySizeSanity(t *testing.T) {
	// Claims 100 elements but carries no string data.
	rec := Record{Entry: 1, Data: []byte{100, 0, 0, 0}}
	if _, err := rec.StringArray(); err == nil {
		t.Error("expected error for oversized element count")
	}
}
