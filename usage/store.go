package usage

import (
	"context"
	"sync"

	"etsy-edge/models"
)

// Store is the persistence seam for usage counters. Implementations must
// return (nil, nil) when no record exists for the install yet.
type Store interface {
	Get(ctx context.Context, installID string) (*models.UsageRecord, error)
	Put(ctx context.Context, rec *models.UsageRecord) error
}

// MemoryStore is an in-process Store. Used in tests and as a fallback when
// the service runs without Mongo.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]models.UsageRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]models.UsageRecord)}
}

func (s *MemoryStore) Get(_ context.Context, installID string) (*models.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[installID]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (s *MemoryStore) Put(_ context.Context, rec *models.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.InstallID] = *rec
	return nil
}
