package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
)

// KVStore is durable key-value storage with last-write-wins semantics.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

type sqlKVStore struct {
	db     *DB
	logger *slog.Logger
}

// NewKVStore returns a KVStore backed by the kv_store table.
func NewKVStore(db *DB, logger *slog.Logger) KVStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqlKVStore{db: db, logger: logger}
}

func (s *sqlKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b := entsql.Dialect(s.db.dialect)
	query, args := b.Select("kv_value").
		From(b.Table("kv_store")).
		Where(entsql.EQ("kv_key", key)).
		Query()

	rows := &entsql.Rows{}
	if err := s.db.drv.Query(ctx, query, args, rows); err != nil {
		s.logger.Error("kv get failed", "key", key, "error", err)
		return nil, false, fmt.Errorf("%w: kv get %q: %v", common.ErrDatabase, key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, false, fmt.Errorf("%w: kv get %q: %v", common.ErrDatabase, key, err)
		}
		return nil, false, nil
	}
	var value []byte
	if err := rows.Scan(&value); err != nil {
		return nil, false, fmt.Errorf("%w: kv scan %q: %v", common.ErrDatabase, key, err)
	}
	return value, true, nil
}

func (s *sqlKVStore) Set(ctx context.Context, key string, value []byte) error {
	b := entsql.Dialect(s.db.dialect)
	query, args := b.Insert("kv_store").
		Columns("kv_key", "kv_value", "updated_at").
		Values(key, value, time.Now().UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("kv_key"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := s.db.drv.Exec(ctx, query, args, nil); err != nil {
		s.logger.Error("kv set failed", "key", key, "error", err)
		return fmt.Errorf("%w: kv set %q: %v", common.ErrDatabase, key, err)
	}
	s.logger.Debug("kv set", "key", key, "bytes", len(value))
	return nil
}

// MemoryKVStore is an in-process KVStore, used when no durable store is configured.
type MemoryKVStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKVStore creates an empty in-memory store.
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{data: make(map[string][]byte)}
}

func (m *MemoryKVStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryKVStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}
