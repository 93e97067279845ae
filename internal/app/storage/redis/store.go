package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/R3E-Network/records_service/internal/app/domain/record"
	"github.com/R3E-Network/records_service/internal/app/storage"
)

const defaultPrefix = "records"

// Store implements storage.RecordStore on top of Redis. Ids come from INCR on
// a sequence key; each record is a JSON string and a sorted set indexes ids.
type Store struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ storage.RecordStore = (*Store)(nil)

// New creates a Store. An empty prefix defaults to "records".
func New(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// stored mirrors record.Record but keeps the password hash, which the domain
// type hides from JSON.
type stored struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func encode(rec record.Record) ([]byte, error) {
	return json.Marshal(stored(rec))
}

func decode(raw []byte) (record.Record, error) {
	var s stored
	if err := json.Unmarshal(raw, &s); err != nil {
		return record.Record{}, err
	}
	return record.Record(s), nil
}

func (s *Store) seqKey() string   { return s.prefix + ":seq" }
func (s *Store) indexKey() string { return s.prefix + ":index" }
func (s *Store) recordKey(id int64) string {
	return s.prefix + ":record:" + strconv.FormatInt(id, 10)
}

func (s *Store) CreateRecord(ctx context.Context, rec record.Record) (record.Record, error) {
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return record.Record{}, fmt.Errorf("allocate record id: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = s.now()

	payload, err := encode(rec)
	if err != nil {
		return record.Record{}, fmt.Errorf("encode record %d: %w", id, err)
	}

	var set *goredis.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		set = pipe.SetNX(ctx, s.recordKey(id), payload, 0)
		pipe.ZAdd(ctx, s.indexKey(), &goredis.Z{Score: float64(id), Member: strconv.FormatInt(id, 10)})
		return nil
	})
	if err != nil {
		return record.Record{}, fmt.Errorf("store record %d: %w", id, err)
	}
	if !set.Val() {
		return record.Record{}, fmt.Errorf("record %d: %w", id, storage.ErrConflict)
	}
	return rec, nil
}

func (s *Store) GetRecord(ctx context.Context, id int64) (record.Record, error) {
	raw, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return record.Record{}, fmt.Errorf("record %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("get record %d: %w", id, err)
	}
	rec, err := decode(raw)
	if err != nil {
		return record.Record{}, fmt.Errorf("decode record %d: %w", id, err)
	}
	return rec, nil
}

func (s *Store) ListRecords(ctx context.Context) ([]record.Record, error) {
	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list record ids: %w", err)
	}
	result := make([]record.Record, 0, len(members))
	if len(members) == 0 {
		return result, nil
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt index member %q: %w", m, err)
		}
		keys = append(keys, s.recordKey(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// indexed but not yet written; skip
			continue
		}
		rec, err := decode([]byte(str))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		result = append(result, rec)
	}
	return result, nil
}

func (s *Store) CountRecords(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return int(n), nil
}
