package sessions

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps records in process memory. Injected errors let tests
// exercise failure paths.
type MemoryStore struct {
	records map[string]*Record
	mu      sync.RWMutex

	// Error injection for testing
	GetError    error
	PutError    error
	DeleteError error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Get returns a copy of the stored record
func (m *MemoryStore) Get(_ context.Context, username string) (*Record, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[username]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

// Put stores a copy of record
func (m *MemoryStore) Put(_ context.Context, record *Record) error {
	if m.PutError != nil {
		return m.PutError
	}
	if err := validate(record); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[record.Username] = record.Clone()
	return nil
}

// Delete removes the record for username
func (m *MemoryStore) Delete(_ context.Context, username string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, username)
	return nil
}

// List returns the stored usernames in sorted order
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.records))
	for name := range m.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
