package inspect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/logtab/logtab/pkg/errors"
	"github.com/logtab/logtab/pkg/testing/loggen"
)

func writeLog(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wpilog")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInspect(t *testing.T) {
	data := loggen.NewWithExtraHeader("robot rev 7").
		Start(1, "/voltage", "double", "", 0).
		Start(2, "NT:/.schema/struct:Pose2d", "structschema", "", 0).
		Double(1, 1_000_000, 12.0).
		Double(1, 3_000_000, 11.5).
		String(2, 2_000_000, "double x;double y").
		Double(9, 100, 5.0). // never started
		Bytes()

	report, err := Inspect(writeLog(t, data))
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if report.Version != 0x0100 {
		t.Errorf("Version = %#x", report.Version)
	}
	if report.ExtraHeader != "robot rev 7" {
		t.Errorf("ExtraHeader = %q", report.ExtraHeader)
	}
	if report.Records != 6 || report.ControlRecords != 2 || report.DataRecords != 4 {
		t.Errorf("counts: total=%d control=%d data=%d",
			report.Records, report.ControlRecords, report.DataRecords)
	}
	if report.Orphaned != 1 {
		t.Errorf("Orphaned = %d, want 1", report.Orphaned)
	}

	if len(report.Entries) != 2 {
		t.Fatalf("Entries = %+v", report.Entries)
	}
	voltage := report.Entries[0]
	if voltage.ID != 1 || voltage.Name != "/voltage" || voltage.Records != 2 {
		t.Errorf("entry 1: %+v", voltage)
	}
	if voltage.FirstSeen != 1_000_000 || voltage.LastSeen != 3_000_000 {
		t.Errorf("entry 1 timestamps: %+v", voltage)
	}

	if len(report.Schemas) != 1 || report.Schemas[0].Name != "Pose2d" {
		t.Errorf("Schemas = %+v", report.Schemas)
	}
	if len(report.Schemas[0].Fields) != 2 {
		t.Errorf("schema fields: %+v", report.Schemas[0].Fields)
	}
}

func TestInspect_MissingFile(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "absent.wpilog"))
	if !errors.IsCode(err, errors.CodeFileNotFound) {
		t.Errorf("expected CodeFileNotFound, got %v", err)
	}
}

func TestReport_WriteXLSX(t *testing.T) {
	data := loggen.New().
		Start(1, "/voltage", "double", "", 0).
		Double(1, 500_000, 12.0).
		Bytes()

	report, err := Inspect(writeLog(t, data))
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	out := filepath.Join(t.TempDir(), "report.xlsx")
	if err := report.WriteXLSX(out); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("missing workbook: %v", err)
	}
	if info.Size() == 0 {
		t.Error("workbook is empty")
	}
}
