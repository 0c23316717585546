package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
)

// RedisConfig holds configuration for a Redis list sink.
type RedisConfig struct {
	// Redis client used for writes. The sink does not close it.
	Redis redis.UniversalClient

	// Key of the list records are appended to.
	Key string

	// TTL refreshes the key's expiry after every write. Zero keeps it forever.
	TTL time.Duration

	// BatchSize caps the records sent per RPUSH (defaults to 500).
	BatchSize int

	// Timeout bounds each Write (defaults to 5s).
	Timeout time.Duration
}

// DefaultRedisConfig returns a configuration without client or key.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		BatchSize: 500,
		Timeout:   5 * time.Second,
	}
}

// RedisList appends JSON-encoded records to a Redis list.
type RedisList[R any] struct {
	config RedisConfig

	mu     sync.Mutex
	closed bool
}

// NewRedisList validates config and creates the sink.
func NewRedisList[R any](config RedisConfig) (*RedisList[R], error) {
	if config.Redis == nil {
		return nil, tferrors.NewValidationError(module, "Redis", nil, "client is required")
	}
	if err := validation.ValidateNotEmpty(module, "Key", config.Key); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegativeDuration(module, "TTL", config.TTL); err != nil {
		return nil, err
	}

	defaults := DefaultRedisConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	return &RedisList[R]{config: config}, nil
}

// Write pushes records in a single pipeline, BatchSize values per RPUSH.
func (s *RedisList[R]) Write(ctx context.Context, records []R) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return tferrors.NewOperationError(module, "Write", tferrors.ErrClosed)
	}
	if len(records) == 0 {
		return nil
	}

	values := make([]interface{}, len(records))
	for i, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		values[i] = data
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	pipe := s.config.Redis.Pipeline()
	for start := 0; start < len(values); start += s.config.BatchSize {
		end := min(start+s.config.BatchSize, len(values))
		pipe.RPush(ctx, s.config.Key, values[start:end]...)
	}
	if s.config.TTL > 0 {
		pipe.Expire(ctx, s.config.Key, s.config.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return tferrors.NewOperationError(module, "Write", err).
			WithContext(fmt.Sprintf("key=%s records=%d", s.config.Key, len(records)))
	}
	return nil
}

// Len returns the current length of the list.
func (s *RedisList[R]) Len(ctx context.Context) (int64, error) {
	return s.config.Redis.LLen(ctx, s.config.Key).Result()
}

// Close marks the sink closed. The Redis client stays open.
func (s *RedisList[R]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
