package storage

import "sync"

// MemTable is the in-memory staging area records pass through before a
// page write (C3, §4.3). It has no teacher equivalent — the teacher
// writes every document straight to pages — so it is new code grounded
// on the same ordered-map-plus-index shape the rest of this package
// already uses for the page cache: insertion order is preserved the way
// pageCache's linked list preserves recency order, just append-only.
type MemTable struct {
	mu        sync.Mutex
	threshold int
	order     []string
	entries   map[string][]byte // id -> encoded record (post EncodeForPage)
	flags     map[string]byte
}

// NewMemTable creates an empty MemTable that signals Full once it holds
// threshold entries.
func NewMemTable(threshold int) *MemTable {
	if threshold <= 0 {
		threshold = 1000
	}
	return &MemTable{
		threshold: threshold,
		entries:   make(map[string][]byte),
		flags:     make(map[string]byte),
	}
}

// Put stages id's encoded record, overwriting any prior staged value
// for the same id without disturbing its position in insertion order.
func (m *MemTable) Put(id string, data []byte, flag byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[id]; !exists {
		m.order = append(m.order, id)
	}
	m.entries[id] = data
	m.flags[id] = flag
}

// Delete removes id from the staging area (it was never flushed).
// Reports whether id was present.
func (m *MemTable) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return false
	}
	delete(m.entries, id)
	delete(m.flags, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns a staged record without removing it.
func (m *MemTable) Get(id string) ([]byte, byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.entries[id]
	return data, m.flags[id], ok
}

// Len returns the number of staged entries.
func (m *MemTable) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Full reports whether the MemTable has reached its flush threshold.
func (m *MemTable) Full() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order) >= m.threshold
}

// All returns every staged entry in insertion order without draining the
// MemTable, for callers that need to read staged records without flushing
// (select-all, create-index backfill).
func (m *MemTable) All() []StagedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StagedEntry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, StagedEntry{ID: id, Data: m.entries[id], Flag: m.flags[id]})
	}
	return out
}

// StagedEntry is one record as handed to the flush callback.
type StagedEntry struct {
	ID   string
	Data []byte
	Flag byte
}

// Drain removes and returns every staged entry in insertion order,
// leaving the MemTable empty. The caller (Table.flush) is
// responsible for writing these into pages and the indexes.
func (m *MemTable) Drain() []StagedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StagedEntry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, StagedEntry{ID: id, Data: m.entries[id], Flag: m.flags[id]})
	}
	m.order = nil
	m.entries = make(map[string][]byte)
	m.flags = make(map[string]byte)
	return out
}
