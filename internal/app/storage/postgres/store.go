package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/records_service/internal/app/domain/record"
	"github.com/R3E-Network/records_service/internal/app/storage"
)

// Store implements storage.RecordStore backed by PostgreSQL. Ids come from the
// BIGSERIAL sequence on app_records, which serializes concurrent inserts.
type Store struct {
	db *sqlx.DB
}

var _ storage.RecordStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

func (s *Store) CreateRecord(ctx context.Context, rec record.Record) (record.Record, error) {
	row := s.db.QueryRowxContext(ctx, `
		INSERT INTO app_records (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, rec.Name, rec.Email, rec.PasswordHash)

	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return record.Record{}, fmt.Errorf("insert record: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (s *Store) GetRecord(ctx context.Context, id int64) (record.Record, error) {
	var rec record.Record
	err := s.db.GetContext(ctx, &rec, `
		SELECT id, name, email, password_hash, created_at
		FROM app_records
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Record{}, fmt.Errorf("record %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("get record %d: %w", id, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (s *Store) ListRecords(ctx context.Context) ([]record.Record, error) {
	result := []record.Record{}
	err := s.db.SelectContext(ctx, &result, `
		SELECT id, name, email, password_hash, created_at
		FROM app_records
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	for i := range result {
		result[i].CreatedAt = result[i].CreatedAt.UTC()
	}
	return result, nil
}

func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM app_records`); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}
