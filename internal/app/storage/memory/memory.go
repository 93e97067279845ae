package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/R3E-Network/records_service/internal/app/domain/record"
	"github.com/R3E-Network/records_service/internal/app/storage"
)

// Store is an in-memory implementation of storage.RecordStore. It is safe for
// concurrent use. Its contents live as long as the Store value.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]record.Record
	order   []int64
	now     func() time.Time
}

var _ storage.RecordStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:  1,
		records: make(map[int64]record.Record),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) CreateRecord(ctx context.Context, rec record.Record) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return record.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextIDLocked()
	rec.CreatedAt = s.now()

	s.records[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	return rec, nil
}

func (s *Store) GetRecord(_ context.Context, id int64) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return record.Record{}, fmt.Errorf("record %d: %w", id, storage.ErrNotFound)
	}
	return rec, nil
}

func (s *Store) ListRecords(_ context.Context) ([]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]record.Record, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.records[id])
	}
	return result, nil
}

func (s *Store) CountRecords(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
