package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis and verifies the connection.
// The returned client is safe for concurrent use and should be constructed
// once at process start and closed at shutdown.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// RedisCounterStore implements CounterStore over a Redis sorted set per key.
// Scores are unix-millisecond timestamps; members carry a UUID nonce so
// entries recorded in the same millisecond stay distinct.
type RedisCounterStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCounterStore creates a Redis-backed counter store
func NewRedisCounterStore(client *redis.Client, logger *zap.Logger) *RedisCounterStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCounterStore{client: client, logger: logger}
}

// CountInWindow purges entries older than windowStart (best-effort), then
// counts entries scored in [windowStart, now].
func (s *RedisCounterStore) CountInWindow(ctx context.Context, key string, windowStart, now time.Time) (int, error) {
	startMs := windowStart.UnixMilli()

	// Lazy purge of aged-out entries. A failed purge only means the next
	// reader retries it; the ZCount below is still bounded by score range.
	if err := s.client.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(startMs, 10)).Err(); err != nil {
		s.logger.Warn("counter_purge_failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	count, err := s.client.ZCount(ctx, key,
		strconv.FormatInt(startMs, 10),
		strconv.FormatInt(now.UnixMilli(), 10),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: zcount %s: %v", ErrStoreUnavailable, key, err)
	}

	return int(count), nil
}

// Record inserts one entry scored at now and refreshes the key expiry.
func (s *RedisCounterStore) Record(ctx context.Context, key string, now time.Time, ttl time.Duration) error {
	ms := now.UnixMilli()
	member := strconv.FormatInt(ms, 10) + "-" + uuid.NewString()

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(ms), Member: member})
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: zadd %s: %v", ErrStoreUnavailable, key, err)
	}

	return nil
}

// Delete removes the counter key entirely
func (s *RedisCounterStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

var _ CounterStore = (*RedisCounterStore)(nil)
