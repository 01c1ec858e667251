package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aivorahq/aivora/backend/internal/model/chat"
)

// MemoryStore implements Store with in-process maps, used when no redis
// endpoint is configured and throughout the tests.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]chat.Turn
}

// NewMemoryStore bootstraps an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]chat.Turn)}
}

// Append stores the turn at the tail of the conversation's slice.
func (s *MemoryStore) Append(_ context.Context, userID string, turn chat.Turn) (chat.Turn, error) {
	turn.ID = uuid.NewString()
	turn.CreatedAt = time.Now().UTC()
	turn.TempID = ""

	key := memoryKey(userID, turn.ConversationID)

	s.mu.Lock()
	s.turns[key] = append(s.turns[key], turn)
	s.mu.Unlock()

	return turn, nil
}

// List returns a copy of the conversation's turns in append order.
func (s *MemoryStore) List(_ context.Context, userID, conversationID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.turns[memoryKey(userID, conversationID)]
	if !ok {
		return nil, ErrConversationNotFound
	}

	copied := make([]chat.Turn, len(stored))
	copy(copied, stored)
	return copied, nil
}

func memoryKey(userID, conversationID string) string {
	return fmt.Sprintf("%s:%s", userID, conversationID)
}
