package pool

import (
	"context"
	"sync"
)

// MemoryStore is a test-only LeaseStore. The mutex stands in for the real
// store's per-key atomicity; the pool itself never takes in-process locks.
type MemoryStore struct {
	// Err, when set, is returned by every operation. Test use only; set it
	// before handing the store to a pool.
	Err error

	mu      sync.Mutex
	records map[string]LeaseRecord
}

// Verify MemoryStore implements LeaseStore at compile time
var _ LeaseStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]LeaseRecord),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*LeaseRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, key)
	return nil
}

func (m *MemoryStore) CompareAndSwap(ctx context.Context, key string, rec LeaseRecord, expectedHolder string) (bool, *LeaseRecord, error) {
	if m.Err != nil {
		return false, nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.records[key]; ok && current.HolderID != expectedHolder {
		return false, &current, nil
	}
	m.records[key] = rec
	return true, nil, nil
}
