package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "testpilot:run:"

// RedisStore keeps records as JSON values that expire after ttl.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

type RedisOption func(*RedisStore)

func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration, log logger.Logger, opts ...RedisOption) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    ttl,
		logger: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, r *Record) error {
	if err := prepare(sessionID, r); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		s.logger.Error(ctx, "failed to store run record", map[string]interface{}{
			"error":      err.Error(),
			"session_id": sessionID,
		})
		return err
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		s.logger.Error(ctx, "failed to load run record", map[string]interface{}{
			"error":      err.Error(),
			"session_id": sessionID,
		})
		return nil, err
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &r, nil
}
