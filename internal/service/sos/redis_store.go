package sos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aivorahq/aivora/backend/internal/model/sos"
)

// RedisStore keeps alerts as JSON values plus a per-user index list.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wires the store to an existing redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("sos: redis client cannot be nil")
	}
	return &RedisStore{client: client}
}

// Save records the alert and indexes it under its user.
func (s *RedisStore) Save(ctx context.Context, alert sos.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("sos: failed to marshal alert: %w", err)
	}

	if err := s.client.Set(ctx, alertKey(alert.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("sos: failed to persist alert: %w", err)
	}
	if err := s.client.RPush(ctx, userIndexKey(alert.UserID), alert.ID).Err(); err != nil {
		return fmt.Errorf("sos: failed to index alert: %w", err)
	}
	return nil
}

// List returns the alerts recorded for a user in raise order.
func (s *RedisStore) List(ctx context.Context, userID string) ([]sos.Alert, error) {
	ids, err := s.client.LRange(ctx, userIndexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("sos: failed to list alerts: %w", err)
	}

	alerts := make([]sos.Alert, 0, len(ids))
	for _, id := range ids {
		raw, err := s.client.Get(ctx, alertKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("sos: failed to load alert %s: %w", id, err)
		}
		var alert sos.Alert
		if err := json.Unmarshal(raw, &alert); err != nil {
			return nil, fmt.Errorf("sos: failed to decode alert %s: %w", id, err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func alertKey(id string) string {
	return fmt.Sprintf("sos:alert:%s", id)
}

func userIndexKey(userID string) string {
	return fmt.Sprintf("sos:user:%s", userID)
}
