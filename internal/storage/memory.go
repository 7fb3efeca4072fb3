package storage

import (
	"context"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	fits map[string]FitRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fits = make(map[string]FitRecord)
	return nil
}

func (s *MemoryStore) SaveFit(_ context.Context, record FitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fits == nil {
		return errStoreNotInitialized
	}
	s.fits[record.ID] = record
	return nil
}

func (s *MemoryStore) GetFit(_ context.Context, id string) (FitRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.fits[id]
	return record, ok, nil
}

func (s *MemoryStore) ListFits(_ context.Context) ([]FitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]FitRecord, 0, len(s.fits))
	for _, record := range s.fits {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
