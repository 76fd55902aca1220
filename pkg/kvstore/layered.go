package kvstore

import (
	"context"
)

// LayeredStore implements two-level storage (L1: memory, L2: durable).
type LayeredStore struct {
	mem     *MemoryStore
	durable Store
}

// NewLayeredStore puts an in-memory layer in front of durable.
func NewLayeredStore(durable Store) *LayeredStore {
	return &LayeredStore{mem: NewMemoryStore(), durable: durable}
}

func (l *LayeredStore) Put(ctx context.Context, key string, value []byte) error {
	// Write-through: durable first so memory never holds an unsaved value
	if err := l.durable.Put(ctx, key, value); err != nil {
		return err
	}
	return l.mem.Put(ctx, key, value)
}

func (l *LayeredStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, _ := l.mem.Get(ctx, key); ok {
		return v, true, nil
	}
	v, ok, err := l.durable.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = l.mem.Put(ctx, key, v)
	return v, true, nil
}

// Close closes both layers.
func (l *LayeredStore) Close() error {
	_ = l.mem.Close()
	return l.durable.Close()
}
