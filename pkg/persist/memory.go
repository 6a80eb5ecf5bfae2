package persist

import (
	"context"
	"sync"
)

// MemoryStore keeps the document in process memory. Used for the "memory"
// backend and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStore creates an empty store, optionally seeded with a document
func NewMemoryStore(seed []byte) *MemoryStore {
	s := &MemoryStore{}
	if seed != nil {
		s.data = append([]byte(nil), seed...)
	}
	return s
}

func (s *MemoryStore) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, ErrNotExist
	}
	return append([]byte(nil), s.data...), nil
}

func (s *MemoryStore) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
