// Package stream serves conversation turns over Server-Sent Events.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aivorahq/aivora/backend/internal/service/turn"
	"github.com/aivorahq/aivora/backend/pkg/utils"
)

// Handler pushes one submission's lifecycle to the client as SSE frames.
type Handler struct {
	orchestrator *turn.Orchestrator
	logger       *slog.Logger
}

func New(orchestrator *turn.Orchestrator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{orchestrator: orchestrator, logger: logger}
}

// frame is one streamed response chunk.
type frame struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Emotion   string `json:"emotion,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest runs the turn pipeline for userMessage and streams the
// start, message, emotion and end events for it.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	conv, err := h.orchestrator.GetConversation(ctx, sessionID)
	if err != nil {
		h.sendError(w, flusher, sessionID, "session not found")
		return err
	}

	h.send(w, flusher, frame{Event: "start", SessionID: conv.ID})

	result, err := h.orchestrator.Submit(ctx, turn.Input{
		ConversationID: conv.ID,
		Text:           userMessage,
	})
	if err != nil {
		if errors.Is(err, turn.ErrEmptyInput) {
			h.sendError(w, flusher, sessionID, "message is required")
			return err
		}
		// The sequence already carries the error turn; surface its text.
		h.send(w, flusher, frame{Event: "message", SessionID: conv.ID, Content: result.AssistantTurn.Text})
		h.sendError(w, flusher, sessionID, "AI generation failed")
		return err
	}

	h.send(w, flusher, frame{Event: "message", SessionID: conv.ID, Content: result.AssistantTurn.Text})
	if result.Emotion != "" {
		h.send(w, flusher, frame{Event: "emotion", SessionID: conv.ID, Emotion: string(result.Emotion)})
	}
	h.send(w, flusher, frame{Event: "end", SessionID: conv.ID, Finished: true})

	h.logger.Info("stream completed", "session_id", conv.ID)
	return nil
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, f frame) {
	utils.SendSSEChunk(w, flusher, f)
}

func (h *Handler) sendError(w http.ResponseWriter, flusher http.Flusher, sessionID, msg string) {
	utils.SendSSEChunk(w, flusher, frame{Event: "error", SessionID: sessionID, Error: msg})
}
