package decode

import "github.com/logtab/logtab/pkg/datalog"

// Entry is a live time-series channel: a numeric id plus the name and
// declared type from its start record.
type Entry struct {
	ID       uint32
	Name     string
	Type     string
	Metadata string

	// Tag is the parsed type, classified once at start time.
	Tag TypeTag
}

// EntryRegistry tracks entries that are currently live. It is owned by a
// single conversion run and is not safe for concurrent use.
type EntryRegistry struct {
	live map[uint32]Entry
}

// NewEntryRegistry creates an empty registry.
func NewEntryRegistry() *EntryRegistry {
	return &EntryRegistry{live: make(map[uint32]Entry)}
}

// OnStart inserts or overwrites the live mapping for the started entry.
// A reused id gets a fresh Entry, never the prior entry's metadata.
func (r *EntryRegistry) OnStart(data datalog.StartData) Entry {
	e := Entry{
		ID:       data.Entry,
		Name:     data.Name,
		Type:     data.Type,
		Metadata: data.Metadata,
		Tag:      ParseTypeTag(data.Type),
	}
	r.live[data.Entry] = e
	return e
}

// OnFinish removes an entry from the live set. Finishing an id that is not
// live is a no-op, never an error.
func (r *EntryRegistry) OnFinish(id uint32) {
	delete(r.live, id)
}

// Lookup returns the live entry for id, if any. Data records whose id is
// absent are dropped by the caller: their rows cannot be typed.
func (r *EntryRegistry) Lookup(id uint32) (Entry, bool) {
	e, ok := r.live[id]
	return e, ok
}

// Len returns the number of live entries.
func (r *EntryRegistry) Len() int {
	return len(r.live)
}
