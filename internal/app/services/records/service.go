package records

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/records_service/internal/app/domain/record"
	"github.com/R3E-Network/records_service/internal/app/metrics"
	"github.com/R3E-Network/records_service/internal/app/storage"
	"github.com/R3E-Network/records_service/internal/app/validation"
	"github.com/R3E-Network/records_service/pkg/logger"
)

// Service owns the record operations exposed to callers.
type Service struct {
	store storage.RecordStore
	log   *logger.Logger
	cost  int
}

// Option customises a Service.
type Option func(*Service)

// WithHashCost overrides the bcrypt cost. Values outside bcrypt's range fall
// back to bcrypt.DefaultCost.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// New constructs a records service over the given store.
func New(store storage.RecordStore, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("records")
	}
	s := &Service{store: store, log: log, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every record in id order.
func (s *Service) List(ctx context.Context) ([]record.Record, error) {
	recs, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

// Get returns the record with the given id. Unknown ids yield an error
// wrapping storage.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (record.Record, error) {
	if id <= 0 {
		return record.Record{}, fmt.Errorf("record %d: %w", id, storage.ErrNotFound)
	}
	return s.store.GetRecord(ctx, id)
}

// Create validates the input, hashes the password and stores a new record.
// The store assigns the id.
func (s *Service) Create(ctx context.Context, input record.CreateInput) (record.Record, error) {
	input = validation.Sanitize(input)
	if err := validation.Validate(input); err != nil {
		metrics.RecordCreate("invalid")
		return record.Record{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		metrics.RecordCreate("error")
		return record.Record{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.store.CreateRecord(ctx, record.Record{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		metrics.RecordCreate("error")
		s.log.WithError(err).Warn("record create failed")
		return record.Record{}, fmt.Errorf("create record: %w", err)
	}

	metrics.RecordCreate("created")
	s.log.WithField("record_id", created.ID).Info("record created")
	return created, nil
}

// Count returns the number of records held.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.CountRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
