package store

import (
	"context"
	"sync"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

type memEntry struct {
	value   []byte
	version int64
}

// MemoryStore keeps records in process memory. Transactions are serialized
// and staged writes are applied only when fn succeeds.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]memEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]memEntry)}
}

// View runs fn against a read-only snapshot.
func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(newRecordTx(&memKV{base: s.records, staged: map[string]memEntry{}}, true))
}

// Update runs fn and applies its writes atomically if it returns nil.
func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := &memKV{base: s.records, staged: map[string]memEntry{}}
	if err := fn(newRecordTx(k, false)); err != nil {
		return err
	}
	for key, e := range k.staged {
		s.records[key] = e
	}
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Raw returns the stored bytes for key, for inspection in tests.
func (s *MemoryStore) Raw(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key].value
}

// SetRaw overwrites the stored bytes for key, bumping its version.
func (s *MemoryStore) SetRaw(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = memEntry{value: value, version: s.records[key].version + 1}
}

type memKV struct {
	base   map[string]memEntry
	staged map[string]memEntry
}

func (k *memKV) current(key string) (memEntry, bool) {
	if e, ok := k.staged[key]; ok {
		return e, true
	}
	e, ok := k.base[key]
	return e, ok
}

func (k *memKV) get(key string) ([]byte, int64, error) {
	e, ok := k.current(key)
	if !ok {
		return nil, 0, nil
	}
	return e.value, e.version, nil
}

func (k *memKV) put(key string, value []byte, expected int64) error {
	e, _ := k.current(key)
	if e.version != expected {
		return ErrConflict
	}
	k.staged[key] = memEntry{value: value, version: expected + 1}
	return nil
}
