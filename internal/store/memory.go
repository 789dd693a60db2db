package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/model"
)

type memoryDeliveryStore struct {
	mu      sync.RWMutex
	records map[string]model.DeliveryRecord
}

// NewMemoryDeliveryStore returns an in-memory DeliveryStore. Used by tests
// and as a Postgres-free development mode for the tracking service.
func NewMemoryDeliveryStore() DeliveryStore {
	return &memoryDeliveryStore{
		records: make(map[string]model.DeliveryRecord),
	}
}

func (s *memoryDeliveryStore) GetByID(ctx context.Context, deliveryID string) (*model.DeliveryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[deliveryID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *memoryDeliveryStore) Create(ctx context.Context, rec *model.DeliveryRecord) (*model.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *cloneRecord(*rec)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.records[stored.DeliveryID] = stored

	return cloneRecord(stored), nil
}

func (s *memoryDeliveryStore) Update(ctx context.Context, rec *model.DeliveryRecord) (*model.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[rec.DeliveryID]
	if !ok {
		return nil, ErrNotFound
	}

	stored := *cloneRecord(*rec)
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()
	s.records[stored.DeliveryID] = stored

	return cloneRecord(stored), nil
}

func (s *memoryDeliveryStore) ListAll(ctx context.Context) ([]model.DeliveryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.DeliveryRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, *cloneRecord(rec))
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records, nil
}

func cloneRecord(rec model.DeliveryRecord) *model.DeliveryRecord {
	out := rec
	out.Items = append([]string(nil), rec.Items...)
	out.StatusHistory = append([]string(nil), rec.StatusHistory...)
	if rec.StartedAt != nil {
		t := *rec.StartedAt
		out.StartedAt = &t
	}
	if rec.CompletedAt != nil {
		t := *rec.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
