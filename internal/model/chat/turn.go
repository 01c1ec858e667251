package chat

import "time"

// Sender identifies which side of the conversation produced a turn.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Turn is one message in a conversation. Before the history store assigns an
// ID the client-generated TempID stands in for it; reconciliation replaces
// TempID with the store ID exactly once.
type Turn struct {
	ID             string         `json:"id,omitempty"`
	TempID         string         `json:"tempId,omitempty"`
	ConversationID string         `json:"conversationId"`
	Sender         string         `json:"sender"`
	Text           string         `json:"text"`
	Emotion        string         `json:"emotion,omitempty"`
	FileReference  string         `json:"fileReference,omitempty"`
	Reactions      map[string]int `json:"reactions,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Persisted reports whether the store has assigned this turn an ID.
func (t Turn) Persisted() bool {
	return t.ID != ""
}
