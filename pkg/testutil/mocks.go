// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"sync"

	"github.com/R3E-Network/records_service/internal/app/domain/record"
	"github.com/R3E-Network/records_service/internal/app/storage"
	"github.com/R3E-Network/records_service/internal/app/storage/memory"
)

// Store operations that can be failed on purpose.
const (
	OpCreate = "create"
	OpGet    = "get"
	OpList   = "list"
	OpCount  = "count"
)

// MockRecordStore is an in-memory RecordStore with injectable failures and
// per-operation call counts.
type MockRecordStore struct {
	inner storage.RecordStore

	mu    sync.Mutex
	fails map[string]error
	calls map[string]int
}

// NewMockRecordStore returns an empty mock backed by the memory store.
func NewMockRecordStore() *MockRecordStore {
	return &MockRecordStore{
		inner: memory.New(),
		fails: make(map[string]error),
		calls: make(map[string]int),
	}
}

// FailOn makes every call of op return err. A nil err clears the failure.
func (m *MockRecordStore) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fails, op)
		return
	}
	m.fails[op] = err
}

// Calls returns how many times op was invoked.
func (m *MockRecordStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockRecordStore) enter(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	return m.fails[op]
}

func (m *MockRecordStore) CreateRecord(ctx context.Context, rec record.Record) (record.Record, error) {
	if err := m.enter(OpCreate); err != nil {
		return record.Record{}, err
	}
	return m.inner.CreateRecord(ctx, rec)
}

func (m *MockRecordStore) GetRecord(ctx context.Context, id int64) (record.Record, error) {
	if err := m.enter(OpGet); err != nil {
		return record.Record{}, err
	}
	return m.inner.GetRecord(ctx, id)
}

func (m *MockRecordStore) ListRecords(ctx context.Context) ([]record.Record, error) {
	if err := m.enter(OpList); err != nil {
		return nil, err
	}
	return m.inner.ListRecords(ctx)
}

func (m *MockRecordStore) CountRecords(ctx context.Context) (int, error) {
	if err := m.enter(OpCount); err != nil {
		return 0, err
	}
	return m.inner.CountRecords(ctx)
}
