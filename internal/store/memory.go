package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore implementa KVStore en memoria. Se usa en tests y para
// desarrollo local sin Redis ni Postgres.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailPuts fuerza errores de escritura para probar fallos transitorios
	FailPuts bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrStoreUnavailable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.data[key]
	if !exists {
		return nil, ErrKeyNotFound
	}
	// Copia defensiva: el llamador no debe poder mutar el valor almacenado
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return ErrStoreUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPuts {
		return ErrStoreUnavailable
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

func (s *MemoryStore) ScanPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrStoreUnavailable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var values [][]byte
	for key, value := range s.data {
		if strings.HasPrefix(key, prefix) {
			out := make([]byte, len(value))
			copy(out, value)
			values = append(values, out)
		}
	}
	return values, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
