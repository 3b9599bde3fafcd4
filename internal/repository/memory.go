package repository

import (
	"context"
	"sync"
)

type memoryBlobStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemoryBlobStore keeps everything in process memory. Values are lost on
// restart.
func NewMemoryBlobStore() BlobStore {
	return &memoryBlobStore{data: make(map[string]map[string][]byte)}
}

func (s *memoryBlobStore) Load(_ context.Context, table, userID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[table][userID]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *memoryBlobStore) Save(_ context.Context, table, userID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.data[table]
	if !ok {
		rows = make(map[string][]byte)
		s.data[table] = rows
	}
	rows[userID] = append([]byte(nil), data...)
	return nil
}
