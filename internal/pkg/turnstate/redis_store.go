// internal/pkg/turnstate/redis_store.go
package turnstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const flowTTLDefault = 15 * time.Minute

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) FirstDelivery(ctx context.Context, tenantID, phone, text string, window time.Duration) (bool, error) {
	key := dedupKey(tenantID, phone, text)

	ok, err := s.client.SetNX(ctx, key, "1", window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate window: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Flow(ctx context.Context, tenantID, phone string) (*Flow, error) {
	raw, err := s.client.Get(ctx, flowKey(tenantID, phone)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flow state: %w", err)
	}

	var f Flow
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow state: %w", err)
	}
	return &f, nil
}

func (s *RedisStore) SetFlow(ctx context.Context, tenantID, phone string, f *Flow, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = flowTTLDefault
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal flow state: %w", err)
	}
	if err := s.client.Set(ctx, flowKey(tenantID, phone), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set flow state: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearFlow(ctx context.Context, tenantID, phone string) error {
	if err := s.client.Del(ctx, flowKey(tenantID, phone)).Err(); err != nil {
		return fmt.Errorf("failed to clear flow state: %w", err)
	}
	return nil
}
