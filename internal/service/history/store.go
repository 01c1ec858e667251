// Package history is the append-only per-user turn log. It is best-effort
// from the pipeline's point of view: a failed write is logged by the caller
// and never rolls back the in-memory conversation.
package history

import (
	"context"
	"errors"

	"github.com/aivorahq/aivora/backend/internal/model/chat"
)

var ErrConversationNotFound = errors.New("history: conversation not found")

// Store persists turns and hands back the store-assigned identifier.
type Store interface {
	// Append stores the turn and returns it with ID and server timestamp set.
	Append(ctx context.Context, userID string, turn chat.Turn) (chat.Turn, error)
	// List returns the stored turns of one conversation in append order.
	List(ctx context.Context, userID, conversationID string) ([]chat.Turn, error)
}
