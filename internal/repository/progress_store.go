package repository

import (
	"context"
	"sync"
)

// MemoryProgressStore 进程内存储，用于测试和单机调试（store.type: memory）
type MemoryProgressStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{data: make(map[string][]byte)}
}

func (s *MemoryProgressStore) Load(ctx context.Context, learnerID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[learnerID]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryProgressStore) Save(ctx context.Context, learnerID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[learnerID] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryProgressStore) Delete(ctx context.Context, learnerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, learnerID)
	return nil
}

func (s *MemoryProgressStore) Ping(ctx context.Context) error {
	return nil
}
