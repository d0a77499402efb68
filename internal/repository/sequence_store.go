package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// SequenceStore hands out monotonically increasing counters per namespace.
// Next must be atomic across concurrent callers.
type SequenceStore interface {
	Next(ctx context.Context, namespace string) (int64, error)
}

type memorySequenceStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemorySequenceStore returns a process-local counter store.
func NewMemorySequenceStore() SequenceStore {
	return &memorySequenceStore{counters: make(map[string]int64)}
}

func (s *memorySequenceStore) Next(ctx context.Context, namespace string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[namespace]++
	return s.counters[namespace], nil
}

type redisSequenceStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSequenceStore counts with INCR on "<prefix>:seq:<namespace>" keys.
func NewRedisSequenceStore(client *redis.Client, prefix string) SequenceStore {
	if prefix == "" {
		prefix = "ticketdesk"
	}
	return &redisSequenceStore{client: client, prefix: prefix}
}

func (s *redisSequenceStore) Next(ctx context.Context, namespace string) (int64, error) {
	return s.client.Incr(ctx, s.prefix+":seq:"+namespace).Result()
}

type postgresSequenceStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSequenceStore keeps counters in the ticket_sequences table.
func NewPostgresSequenceStore(pool *pgxpool.Pool) SequenceStore {
	return &postgresSequenceStore{pool: pool}
}

func (s *postgresSequenceStore) Next(ctx context.Context, namespace string) (int64, error) {
	const query = `
        INSERT INTO ticket_sequences (namespace, value) VALUES ($1, 1)
        ON CONFLICT (namespace) DO UPDATE SET value = ticket_sequences.value + 1
        RETURNING value`
	var value int64
	if err := s.pool.QueryRow(ctx, query, namespace).Scan(&value); err != nil {
		return 0, translatePgError(err)
	}
	return value, nil
}
