package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aivorahq/aivora/backend/internal/model/chat"
)

// RedisStore keeps each conversation as a redis list of JSON-encoded turns.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wires the store to an existing redis client. A zero ttl keeps
// conversations forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("history: redis client cannot be nil")
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Append stores the turn at the tail of the conversation list.
func (s *RedisStore) Append(ctx context.Context, userID string, turn chat.Turn) (chat.Turn, error) {
	turn.ID = uuid.NewString()
	turn.CreatedAt = time.Now().UTC()
	// TempID is a client-session artifact; the durable record drops it.
	turn.TempID = ""

	data, err := json.Marshal(turn)
	if err != nil {
		return chat.Turn{}, fmt.Errorf("history: failed to marshal turn: %w", err)
	}

	key := conversationKey(userID, turn.ConversationID)
	if err := s.client.RPush(ctx, key, data).Err(); err != nil {
		return chat.Turn{}, fmt.Errorf("history: failed to persist turn: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return chat.Turn{}, fmt.Errorf("history: failed to refresh ttl: %w", err)
		}
	}
	return turn, nil
}

// List returns the conversation's turns in append order.
func (s *RedisStore) List(ctx context.Context, userID, conversationID string) ([]chat.Turn, error) {
	raw, err := s.client.LRange(ctx, conversationKey(userID, conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("history: failed to load turns: %w", err)
	}

	turns := make([]chat.Turn, 0, len(raw))
	for _, item := range raw {
		var turn chat.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("history: failed to decode turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func conversationKey(userID, conversationID string) string {
	return fmt.Sprintf("history:%s:%s", userID, conversationID)
}
