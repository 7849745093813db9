package store

import (
	"context"
	"sync"
)

// Backend is the physical storage engine behind a Store.
//
// Append must not return before the record is durable. Scan returns the
// records of one collection in insertion order. The Store serializes calls to
// Append, but Scan may run concurrently with other Scans.
type Backend interface {
	Append(ctx context.Context, collection string, record Record) error
	Scan(ctx context.Context, collection string) ([]Record, error)
	Close() error
}

// Getter is implemented by backends that can look up a record by id without
// scanning the whole collection. Get returns ErrNotFound when absent.
type Getter interface {
	Get(ctx context.Context, collection, id string) (Record, error)
}

// MemoryBackend keeps records in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string][]Record
	ids         map[string]map[string]struct{}
	closed      bool
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		collections: make(map[string][]Record),
		ids:         make(map[string]map[string]struct{}),
	}
}

// Append stores a copy of record.
func (m *MemoryBackend) Append(ctx context.Context, collection string, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	seen := m.ids[collection]
	if seen == nil {
		seen = make(map[string]struct{})
		m.ids[collection] = seen
	}
	id := record.ID()
	if _, dup := seen[id]; dup {
		return ErrAlreadyExists
	}
	seen[id] = struct{}{}
	m.collections[collection] = append(m.collections[collection], record.Clone())
	return nil
}

// Scan returns the records of collection in insertion order.
func (m *MemoryBackend) Scan(ctx context.Context, collection string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	records := m.collections[collection]
	out := make([]Record, len(records))
	copy(out, records)
	return out, nil
}

// Close marks the backend closed.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
