// Package execstore implements the Execution Store (C1): the in-memory map
// from ExecutionKey to ExecutionStatus that every other core component reads
// to decide what is runnable. It is mutated only by the owning Workflow
// FSM's single goroutine — no locking here by design (spec §5: "internal
// state is touched by exactly one thread at a time").
package execstore

import "github.com/lyzr/workflow-engine/engine/model"

// Entry pairs a key with its current status and return code.
type Entry struct {
	Key        model.ExecutionKey
	Status     model.ExecutionStatus
	ReturnCode *int
}

// Store is the per-workflow execution table.
type Store struct {
	entries map[string]*Entry
	order   []string // insertion order, for deterministic iteration in tests
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

// Load bulk-inserts entries, e.g. from DataAccess.getExecutionStatuses on
// workflow start/restart.
func (s *Store) Load(entries []Entry) {
	for _, e := range entries {
		cp := e
		s.put(&cp)
	}
}

func (s *Store) put(e *Entry) {
	k := e.Key.String()
	if _, exists := s.entries[k]; !exists {
		s.order = append(s.order, k)
	}
	s.entries[k] = e
}

// Insert adds a new NotStarted entry. No-op if the key already exists.
func (s *Store) Insert(key model.ExecutionKey) {
	if _, ok := s.entries[key.String()]; ok {
		return
	}
	s.put(&Entry{Key: key, Status: model.NotStarted})
}

// Get returns the entry for key, and whether it exists.
func (s *Store) Get(key model.ExecutionKey) (Entry, bool) {
	e, ok := s.entries[key.String()]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// SetStatus updates a key's status (and return code, if provided). The
// caller (Workflow FSM) is responsible for persisting this change via
// DataAccess before any log line describing it is emitted (spec §4.6).
func (s *Store) SetStatus(key model.ExecutionKey, status model.ExecutionStatus, returnCode *int) {
	e, ok := s.entries[key.String()]
	if !ok {
		e = &Entry{Key: key}
		s.put(e)
	}
	e.Status = status
	e.ReturnCode = returnCode
}

// All returns every entry in insertion order.
func (s *Store) All() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, k := range s.order {
		out = append(out, *s.entries[k])
	}
	return out
}

// ByScope returns every entry whose key has the given scope, optionally
// filtered to a specific shard index (nil means "collected/unindexed only").
func (s *Store) ByScope(scope string, index *int) []Entry {
	var out []Entry
	for _, k := range s.order {
		e := s.entries[k]
		if e.Key.Scope != scope {
			continue
		}
		if index == nil && e.Key.Index == nil {
			out = append(out, *e)
		} else if index != nil && e.Key.Index != nil && *index == *e.Key.Index {
			out = append(out, *e)
		}
	}
	return out
}

// Shards returns every CallKey entry scattered under scope, ordered by index
// ascending — used by the Collector (C5).
func (s *Store) Shards(scope string) []Entry {
	var out []Entry
	for _, k := range s.order {
		e := s.entries[k]
		if e.Key.Scope == scope && e.Key.Kind == model.CallKeyKind && e.Key.Index != nil {
			out = append(out, *e)
		}
	}
	// insertion order from the Scatter Expander is already index-ascending,
	// but sort defensively in case of restart-driven reordering.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && *out[j].Key.Index < *out[j-1].Key.Index; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// AllTerminalOrNotStarted reports whether every entry is either terminal or
// still NotStarted — the condition for Aborting -> Aborted (spec §4.6).
func (s *Store) AllTerminalOrNotStarted() bool {
	for _, k := range s.order {
		e := s.entries[k]
		if e.Status != model.NotStarted && !e.Status.Terminal() {
			return false
		}
	}
	return true
}

// AllDone reports whether every entry is Done — the condition for
// Running -> Succeeded.
func (s *Store) AllDone() bool {
	for _, k := range s.order {
		if s.entries[k].Status != model.Done {
			return false
		}
	}
	return true
}
