package checkpoint

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	simerrors "github.com/daysim/daysim/pkg/errors"
	"github.com/daysim/daysim/pkg/resilience"
)

// RedisConfig configures the Redis checkpoint backend.
type RedisConfig struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address string

	// Password for Redis authentication (optional)
	Password string

	// Database number to use (default: 0)
	Database int

	// Prefix is prepended to every key (e.g., "daysim:done:")
	Prefix string

	// TTL is the time-to-live of a run's set (0 = no expiration)
	TTL time.Duration

	// Timeout for Redis operations
	Timeout time.Duration

	PoolSize     int
	MinIdleConns int

	// Retry applies to MarkDone.
	Retry resilience.Backoff
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address:      address,
		Prefix:       "daysim:done:",
		TTL:          7 * 24 * time.Hour,
		Timeout:      5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		Retry:        resilience.DefaultBackoff(),
	}
}

// RedisStore keeps a run's completed households in one Redis set, so
// several machines resuming the same run key share progress.
type RedisStore struct {
	cfg    RedisConfig
	key    string
	client *redis.Client
}

// NewRedisStore connects to Redis and returns the store for run key.
func NewRedisStore(cfg RedisConfig, key string) (*RedisStore, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, simerrors.Wrap(err, simerrors.CodeCheckpoint, "connect to redis").
			WithContext("addr", cfg.Address)
	}

	return &RedisStore{cfg: cfg, key: setKey(cfg.Prefix, key), client: client}, nil
}

func setKey(prefix, key string) string {
	return prefix + key
}

// Completed implements Store.
func (s *RedisStore) Completed(ctx context.Context) (map[int]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.CodeCheckpoint, "load completed households").
			WithContext("key", s.key)
	}
	return parseMembers(members), nil
}

func parseMembers(members []string) map[int]bool {
	done := make(map[int]bool, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue // Skip foreign entries
		}
		done[id] = true
	}
	return done
}

// MarkDone implements Store.
func (s *RedisStore) MarkDone(ctx context.Context, householdIDs ...int) error {
	if len(householdIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(householdIDs))
	for i, id := range householdIDs {
		members[i] = strconv.Itoa(id)
	}

	// SADD is idempotent.
	err := resilience.Retry(ctx, s.cfg.Retry, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()

		// Use pipeline so the add and the expiry land together
		pipe := s.client.TxPipeline()
		pipe.SAdd(ctx, s.key, members...)
		if s.cfg.TTL > 0 {
			pipe.Expire(ctx, s.key, s.cfg.TTL)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return simerrors.Wrap(err, simerrors.CodeCheckpoint, "record completed households").
			WithContext("key", s.key)
	}
	return nil
}

// Reset forgets every completed household of the run.
func (s *RedisStore) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return s.client.Del(ctx, s.key).Err()
}

// Name returns "redis".
func (s *RedisStore) Name() string { return "redis" }

// Close closes the Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }
