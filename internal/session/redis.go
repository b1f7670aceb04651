package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "riasec:session:"

// Redis stores JSON encoded values in redis under a key prefix with an
// optional TTL refreshed on every Set.
type Redis[T any] struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis creates a redis backed store.
func NewRedis[T any](client redis.Cmdable, prefix string, ttl time.Duration, logger *zap.Logger) *Redis[T] {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis[T]{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (r *Redis[T]) key(id string) string {
	return r.prefix + id
}

func (r *Redis[T]) Get(ctx context.Context, id string) (*T, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}

	r.logger.Debug("session loaded", zap.String("session_id", id), zap.Int("bytes", len(data)))
	return &value, nil
}

func (r *Redis[T]) Set(ctx context.Context, id string, value *T) error {
	if value == nil {
		return errors.New("session value must not be nil")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", id, err)
	}

	if err := r.client.Set(ctx, r.key(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("writing session %s: %w", id, err)
	}
	return nil
}

func (r *Redis[T]) Clear(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("clearing session %s: %w", id, err)
	}
	return nil
}
