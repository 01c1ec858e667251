package sos

import (
	"context"
	"sync"

	"github.com/aivorahq/aivora/backend/internal/model/sos"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	alerts map[string][]sos.Alert
}

// NewMemoryStore bootstraps an empty in-memory alert store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{alerts: make(map[string][]sos.Alert)}
}

// Save records the alert under its user.
func (s *MemoryStore) Save(_ context.Context, alert sos.Alert) error {
	s.mu.Lock()
	s.alerts[alert.UserID] = append(s.alerts[alert.UserID], alert)
	s.mu.Unlock()
	return nil
}

// List returns a copy of the user's alerts in raise order.
func (s *MemoryStore) List(_ context.Context, userID string) ([]sos.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]sos.Alert, len(s.alerts[userID]))
	copy(copied, s.alerts[userID])
	return copied, nil
}
