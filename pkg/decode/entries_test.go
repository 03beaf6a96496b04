package decode

import (
	"testing"

	"github.com/logtab/logtab/pkg/datalog"
)

func TestEntryRegistry_Lifecycle(t *testing.T) {
	reg := NewEntryRegistry()

	if _, ok := reg.Lookup(1); ok {
		t.Error("lookup on empty registry should miss")
	}

	ent := reg.OnStart(datalog.StartData{Entry: 1, Name: "/x", Type: "double"})
	if ent.Tag.Type != TypeDouble {
		t.Errorf("tag should be classified at start: %+v", ent.Tag)
	}

	got, ok := reg.Lookup(1)
	if !ok || got.Name != "/x" {
		t.Errorf("lookup after start: %+v, %v", got, ok)
	}

	reg.OnFinish(1)
	if _, ok := reg.Lookup(1); ok {
		t.Error("lookup after finish should miss")
	}

	// Finishing an absent id is a no-op.
	reg.OnFinish(99)
}

func TestEntryRegistry_RestartReplacesEntry(t *testing.T) {
	reg := NewEntryRegistry()

	reg.OnStart(datalog.StartData{Entry: 1, Name: "/old", Type: "double", Metadata: "m1"})
	reg.OnStart(datalog.StartData{Entry: 1, Name: "/new", Type: "int64"})

	ent, ok := reg.Lookup(1)
	if !ok {
		t.Fatal("entry should be live")
	}
	if ent.Name != "/new" || ent.Tag.Type != TypeInt64 || ent.Metadata != "" {
		t.Errorf("restart should fully replace the entry: %+v", ent)
	}
}
