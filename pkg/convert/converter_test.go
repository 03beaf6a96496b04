package convert

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/logtab/logtab/internal/model"
	"github.com/logtab/logtab/pkg/errors"
	"github.com/logtab/logtab/pkg/rows"
	"github.com/logtab/logtab/pkg/testing/loggen"
)

func pose2dBytes(x, y, theta float64) []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(x))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(y))
	binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(theta))
	return buf
}

func TestConverter_BasicDecode(t *testing.T) {
	data := loggen.New().
		Start(1, "/voltage", "double", "", 100).
		Double(1, 1_000_000, 12.5).
		Double(1, 2_000_000, 12.25).
		Bytes()

	c := New("test.wpilog", Options{})
	res, err := c.DecodeBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}

	if len(res.Wide) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Wide))
	}
	row := res.Wide[0]
	if row.Timestamp != 1.0 || row.Entry != 1 || row.Type != "double" {
		t.Errorf("row 0: %+v", row)
	}
	if v := row.Data["/voltage"]; v.Kind != model.KindDouble || v.Double != 12.5 {
		t.Errorf("row 0 value: %+v", v)
	}
}

func TestConverter_DropsDataBeforeStart(t *testing.T) {
	data := loggen.New().
		Double(5, 100, 1.0). // no start record for entry 5
		Start(1, "/x", "double", "", 200).
		Double(1, 300, 2.0).
		Bytes()

	c := New("test.wpilog", Options{})
	res, err := c.DecodeBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if len(res.Wide) != 1 {
		t.Errorf("unstarted entry's record should be dropped, got %d rows", len(res.Wide))
	}
}

func TestConverter_DropsDataAfterFinish(t *testing.T) {
	data := loggen.New().
		Start(1, "/x", "double", "", 100).
		Double(1, 200, 1.0).
		Finish(1, 300).
		Double(1, 400, 2.0).
		Bytes()

	c := New("test.wpilog", Options{})
	res, err := c.DecodeBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if len(res.Wide) != 1 {
		t.Errorf("post-finish record should be dropped, got %d rows", len(res.Wide))
	}
}

func TestConverter_ForwardStructReferenceNeedsPrePass(t *testing.T) {
	// The struct data record arrives before its schema declaration.
	data := loggen.New().
		Start(1, "/pose", "struct:Pose2d", "", 100).
		Raw(1, 200, pose2dBytes(1.0, 2.0, 0.5)).
		Start(2, "NT:/.schema/struct:Pose2d", "structschema", "", 300).
		String(2, 400, "double x;double y;double theta").
		Bytes()

	// A single full pass fails: the schema is not yet known at the data
	// record.
	c := New("test.wpilog", Options{})
	_, err := c.DecodeBytes(context.Background(), data)
	if err == nil {
		t.Fatal("single pass should fail on the forward reference")
	}
	if !errors.IsCode(err, errors.CodeUnknownSchema) {
		t.Errorf("expected CodeUnknownSchema, got %v", err)
	}

	// With the schema pre-pass the same bytes decode cleanly.
	c2 := New("test.wpilog", Options{})
	if err := c2.InferSchemaBytes(context.Background(), data); err != nil {
		t.Fatalf("InferSchemaBytes failed: %v", err)
	}
	res, err := c2.DecodeBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeBytes after pre-pass failed: %v", err)
	}

	// Row 0 is the struct record with flattened fields.
	row := res.Wide[0]
	if v := row.Data["x"]; v.Kind != model.KindDouble || v.Double != 1.0 {
		t.Errorf("x: %+v", v)
	}
	if v := row.Data["theta"]; v.Double != 0.5 {
		t.Errorf("theta: %+v", v)
	}
}

func TestConverter_WideColumnUnion(t *testing.T) {
	data := loggen.New().
		Start(1, "a", "double", "", 0).
		Start(2, "b", "int64", "", 0).
		Double(1, 100, 1.5).
		Int64(2, 200, 7).
		Bytes()

	c := New("test.wpilog", Options{})
	res, err := c.DecodeBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}

	if len(res.Columns) != 2 {
		t.Fatalf("expected 2 dynamic columns, got %+v", res.Columns)
	}
	if res.Columns[0].Name != "a" || res.Columns[1].Name != "b" {
		t.Errorf("columns: %+v", res.Columns)
	}
}

func TestConverter_LoopCount(t *testing.T) {
	data := loggen.New().
		Start(1, "/Timestamp", "double", "", 0).
		Start(2, "/v", "double", "", 0).
		Double(2, 100, 1.0). // before any loop tick
		Double(1, 200, 0.02). // tick 1
		Double(2, 300, 2.0).
		Double(1, 400, 0.04). // tick 2
		Double(2, 500, 3.0).
		Bytes()

	c := New("test.wpilog", Options{})
	res, err := c.DecodeBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if len(res.Wide) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(res.Wide))
	}

	wantLoops := []int64{0, 0, 1, 1, 2}
	for i, want := range wantLoops {
		if res.Wide[i].LoopCount != want {
			t.Errorf("row %d: loop_count %d, want %d", i, res.Wide[i].LoopCount, want)
		}
	}
}

func TestConverter_LongMode(t *testing.T) {
	data := loggen.New().
		Start(1, "/v", "double", "", 0).
		Start(2, "/meta", "json", "", 0).
		Double(1, 100, 4.5).
		String(2, 200, `{"event":"auto"}`).
		Bytes()

	c := New("test.wpilog", Options{Mode: rows.ModeLong})
	res, err := c.DecodeBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if len(res.Long) != 2 {
		t.Fatalf("expected 2 long rows, got %d", len(res.Long))
	}
	if res.Long[0].Value.Double == nil || *res.Long[0].Value.Double != 4.5 {
		t.Errorf("row 0 union: %+v", res.Long[0].Value)
	}
	if res.Long[1].JSON == nil || res.Long[1].JSON["event"] != "auto" {
		t.Errorf("row 1 json: %+v", res.Long[1].JSON)
	}
	if len(res.Columns) != 0 {
		t.Errorf("long mode should not compute a column union: %+v", res.Columns)
	}
}

func TestConverter_MalformedStartIsFatal(t *testing.T) {
	// A control byte of 0 with a payload too short to parse as a start
	// record is skipped by IsStart; build one that passes the length
	// check but has a lying inner string length.
	payload := make([]byte, 17)
	payload[0] = 0
	binary.LittleEndian.PutUint32(payload[1:], 1)
	binary.LittleEndian.PutUint32(payload[5:], 200) // name length beyond payload

	data := loggen.New().Raw(0, 100, payload).Bytes()

	c := New("test.wpilog", Options{})
	_, err := c.DecodeBytes(context.Background(), data)
	if err == nil {
		t.Fatal("expected error for malformed start record")
	}
	if !errors.IsCode(err, errors.CodeMalformedRecord) {
		t.Errorf("expected CodeMalformedRecord, got %v", err)
	}
}

func TestConverter_CanceledContext(t *testing.T) {
	b := loggen.New().Start(1, "/v", "double", "", 0)
	for i := 0; i < 10_000; i++ {
		b.Double(1, uint64(i), float64(i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New("test.wpilog", Options{})
	_, err := c.DecodeBytes(ctx, b.Bytes())
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.IsCode(err, errors.CodeContextCanceled) {
		t.Errorf("expected CodeContextCanceled, got %v", err)
	}
}

func TestConverter_SchemaRecordStillEmitsRow(t *testing.T) {
	data := loggen.New().
		Start(1, "NT:/.schema/struct:Pose2d", "structschema", "", 0).
		String(1, 100, "double x;double y").
		Bytes()

	c := New("test.wpilog", Options{})
	res, err := c.DecodeBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if len(res.Wide) != 1 {
		t.Errorf("schema declaration should still produce a row, got %d", len(res.Wide))
	}
}
