package index

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/logtab/logtab/internal/model"
	"github.com/logtab/logtab/pkg/errors"
)

func TestEntryIndex_BuildWide(t *testing.T) {
	rows := []model.WideRow{
		{Entry: 1},
		{Entry: 2},
		{Entry: 1},
		{Entry: 3},
		{Entry: 1},
	}

	ix := BuildWide(rows)

	if ix.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ix.Len())
	}
	if got := ix.Rows(1); !reflect.DeepEqual(got, []uint32{0, 2, 4}) {
		t.Errorf("Rows(1) = %v", got)
	}
	if got := ix.Rows(3); !reflect.DeepEqual(got, []uint32{3}) {
		t.Errorf("Rows(3) = %v", got)
	}
	if ix.Cardinality(1) != 3 {
		t.Errorf("Cardinality(1) = %d, want 3", ix.Cardinality(1))
	}
	if ix.Cardinality(99) != 0 {
		t.Errorf("Cardinality(99) = %d, want 0", ix.Cardinality(99))
	}
	if got := ix.Rows(99); got != nil {
		t.Errorf("Rows(99) = %v, want nil", got)
	}
}

func TestEntryIndex_Entries(t *testing.T) {
	ix := New()
	ix.Add(7, 0)
	ix.Add(1, 1)
	ix.Add(42, 2)
	ix.Add(7, 3)

	if got := ix.Entries(); !reflect.DeepEqual(got, []uint32{1, 7, 42}) {
		t.Errorf("Entries() = %v", got)
	}
}

func TestEntryIndex_SaveLoad(t *testing.T) {
	ix := New()
	for i := uint32(0); i < 1000; i++ {
		ix.Add(1, i*2)
	}
	ix.Add(5, 17)
	ix.Add(5, 99)

	path := filepath.Join(t.TempDir(), "entries.idx")
	if err := ix.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("loaded Len() = %d, want 2", loaded.Len())
	}
	if loaded.Cardinality(1) != 1000 {
		t.Errorf("Cardinality(1) = %d, want 1000", loaded.Cardinality(1))
	}
	if got := loaded.Rows(5); !reflect.DeepEqual(got, []uint32{17, 99}) {
		t.Errorf("Rows(5) = %v", got)
	}
}

func TestEntryIndex_LoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.idx")
	if err := os.WriteFile(path, []byte("NOTANINDEX"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.IsCode(err, errors.CodeInvalidFormat) {
		t.Errorf("expected CodeInvalidFormat, got %v", err)
	}
}

func TestEntryIndex_LoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.idx"))
	if !errors.IsCode(err, errors.CodeFileNotFound) {
		t.Errorf("expected CodeFileNotFound, got %v", err)
	}
}
