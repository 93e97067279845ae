package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/records_service/internal/app/domain/record"
)

var (
	// ErrNotFound is returned when a record id has never been assigned.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when the id a store just allocated is already
	// occupied, e.g. a redis key written outside the store's sequence.
	ErrConflict = errors.New("record already exists")
)

// RecordStore persists records. Implementations assign ids: CreateRecord
// ignores any id on the input and returns the stored record with its id and
// creation time set. Concurrent CreateRecord calls never receive the same id.
type RecordStore interface {
	CreateRecord(ctx context.Context, rec record.Record) (record.Record, error)
	GetRecord(ctx context.Context, id int64) (record.Record, error)
	ListRecords(ctx context.Context) ([]record.Record, error)
	CountRecords(ctx context.Context) (int, error)
}
