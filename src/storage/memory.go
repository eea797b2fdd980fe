package storage

import (
	"context"
	"sync"

	"stock-screener/src/models"
)

// MemoryCacheStore is a process-local store, used by the "memory" db_type and tests.
type MemoryCacheStore struct {
	records map[models.MCacheKey]models.MCacheRecord
	mu      sync.RWMutex
}

func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{records: make(map[models.MCacheKey]models.MCacheRecord)}
}

func (m *MemoryCacheStore) Name() string      { return "memory" }
func (m *MemoryCacheStore) Initialize() error { return nil }
func (m *MemoryCacheStore) Close() error      { return nil }

func (m *MemoryCacheStore) Get(ctx context.Context, key models.MCacheKey) (models.MCacheRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return models.MCacheRecord{}, false, nil
	}
	rec.Blob = append([]byte(nil), rec.Blob...)
	return rec, true, nil
}

func (m *MemoryCacheStore) Put(ctx context.Context, rec models.MCacheRecord) error {
	rec.Blob = append([]byte(nil), rec.Blob...)
	m.mu.Lock()
	m.records[rec.Key] = rec
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored records.
func (m *MemoryCacheStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
