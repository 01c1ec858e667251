// Package ws serves a bidirectional conversation channel: inbound user
// messages run the turn pipeline, outbound frames mirror the conversation's
// event stream.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/aivorahq/aivora/backend/internal/service/turn"
)

// Handler serves the websocket routes.
type Handler struct {
	orchestrator *turn.Orchestrator
	logger       *slog.Logger
	upgrader     websocket.Upgrader
}

func New(orchestrator *turn.Orchestrator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		orchestrator: orchestrator,
		logger:       logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	conv, err := h.orchestrator.GetConversation(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	h.logger.Info("websocket connected", "session_id", conv.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	events, unsubscribe := h.orchestrator.Subscribe(conv.ID)
	defer unsubscribe()

	// One writer goroutine owns the connection's write side.
	outbound := make(chan outgoingMessage, 16)
	go h.writeLoop(ctx, conn, outbound, events, conv.ID)

	outbound <- outgoingMessage{
		Type:      "connected",
		SessionID: conv.ID,
		Data:      map[string]string{"persona": conv.PersonaID},
		Timestamp: time.Now().Unix(),
	}

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "session_id", conv.ID, "error", err.Error())
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		switch msg.Type {
		case "message":
			// Off the read loop: a completion can outlive the read deadline,
			// and the client sees its turns via the event stream anyway.
			go h.handleSubmit(ctx, outbound, conv.ID, msg)
		default:
			outbound <- outgoingMessage{
				Type:      "error",
				SessionID: conv.ID,
				Data:      map[string]string{"message": "unsupported message type: " + msg.Type},
				Timestamp: time.Now().Unix(),
			}
		}
	}
}

func (h *Handler) handleSubmit(ctx context.Context, outbound chan<- outgoingMessage, sessionID string, msg inboundMessage) {
	_, err := h.orchestrator.Submit(ctx, turn.Input{
		ConversationID: sessionID,
		Text:           msg.Text,
		FileReference:  msg.FileURL,
		FileName:       msg.FileName,
	})
	if err != nil {
		// Failure turns were already published as events; report the cause.
		frame := outgoingMessage{
			Type:      "error",
			SessionID: sessionID,
			Data:      map[string]string{"message": err.Error()},
			Timestamp: time.Now().Unix(),
		}
		select {
		case outbound <- frame:
		case <-ctx.Done():
		}
	}
}

// writeLoop pumps orchestrator events and locally generated frames to the
// client, plus periodic pings.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, outbound <-chan outgoingMessage, events <-chan turn.Event, sessionID string) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-outbound:
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("websocket write failed", "session_id", sessionID, "error", err.Error())
				return
			}
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			frame := outgoingMessage{
				Type:      ev.Type,
				SessionID: sessionID,
				Data:      json.RawMessage(data),
				Timestamp: time.Now().Unix(),
			}
			if err := conn.WriteJSON(frame); err != nil {
				h.logger.Warn("websocket write failed", "session_id", sessionID, "error", err.Error())
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
