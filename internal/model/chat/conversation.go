package chat

import "time"

// Conversation captures a per-user exchange bound to a persona.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PersonaID string    `json:"personaId"`
	CreatedAt time.Time `json:"createdAt"`
}
