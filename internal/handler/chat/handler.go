// Package chat exposes the conversation endpoints: plain completion,
// classified completion, and session-scoped turn submission.
package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aivorahq/aivora/backend/internal/gateway"
	httpmiddleware "github.com/aivorahq/aivora/backend/internal/http/middleware"
	"github.com/aivorahq/aivora/backend/internal/model/persona"
	"github.com/aivorahq/aivora/backend/internal/service/turn"
	"github.com/aivorahq/aivora/backend/pkg/utils"
)

// Handler serves the chat and session routes.
type Handler struct {
	gw           gateway.Gateway
	orchestrator *turn.Orchestrator
	personas     persona.Store
}

// New creates the chat handler. gw may be nil when no provider is configured;
// the affected routes then fail closed.
func New(gw gateway.Gateway, orchestrator *turn.Orchestrator, personas persona.Store) *Handler {
	return &Handler{
		gw:           gw,
		orchestrator: orchestrator,
		personas:     personas,
	}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/aichat", h.handleAIChat)
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/messages", h.handleListMessages)
	r.Post("/session/{sessionID}/messages", h.handleSubmit)
	r.Post("/session/{sessionID}/messages/{messageID}/reactions", h.handleReaction)
	r.Delete("/session/{sessionID}/messages/{messageID}", h.handleDeleteMessage)
}

// handleChat forwards a raw prompt to the model with no persona or history.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing prompt")
		return
	}

	if h.gw == nil {
		utils.RespondError(w, http.StatusInternalServerError, "Server missing API key.")
		return
	}

	res, err := h.gw.Complete(r.Context(), payload.Prompt)
	if err != nil {
		respondGatewayError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"response": res.Text})
}

// handleAIChat classifies the input into a reply plus an emotion label. The
// exchange runs through the sessionless pipeline, so both turns are recorded
// in the caller's history and distress raises an SOS alert with no location.
func (h *Handler) handleAIChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing text")
		return
	}

	userID := httpmiddleware.UserID(r.Context())
	result, err := h.orchestrator.ClassifyDirect(r.Context(), userID, payload.Text)
	switch {
	case errors.Is(err, turn.ErrGatewayUnavailable):
		utils.RespondError(w, http.StatusInternalServerError, "Server missing API key.")
		return
	case err != nil:
		respondGatewayError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"reply":   result.AssistantTurn.Text,
		"emotion": string(result.Emotion),
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.PersonaID == "" {
		utils.RespondError(w, http.StatusBadRequest, "personaId is required")
		return
	}

	userID := httpmiddleware.UserID(r.Context())
	conv, err := h.orchestrator.StartConversation(r.Context(), userID, payload.PersonaID)
	if err != nil {
		if errors.Is(err, turn.ErrPersonaNotFound) {
			utils.RespondError(w, http.StatusBadRequest, "persona not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, conv)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	seq, err := h.orchestrator.Sequence(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": seq})
}

// handleSubmit runs the full turn pipeline for one user input.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Text     string `json:"text"`
		FileURL  string `json:"fileUrl"`
		FileName string `json:"fileName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.orchestrator.Submit(r.Context(), turn.Input{
		ConversationID: sessionID,
		Text:           payload.Text,
		FileReference:  payload.FileURL,
		FileName:       payload.FileName,
	})
	switch {
	case errors.Is(err, turn.ErrEmptyInput):
		utils.RespondError(w, http.StatusBadRequest, "text or file is required")
		return
	case errors.Is(err, turn.ErrConversationNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	case err != nil:
		// The error turn is already part of the sequence; report the failure.
		utils.RespondJSON(w, http.StatusBadGateway, map[string]any{
			"state":   result.State,
			"message": result.AssistantTurn,
		})
		return
	}

	response := map[string]any{
		"state":       result.State,
		"userMessage": result.UserTurn,
		"message":     result.AssistantTurn,
		"emotion":     string(result.Emotion),
	}
	if result.SOSAlertID != "" {
		response["sosAlertId"] = result.SOSAlertID
	}
	utils.RespondJSON(w, http.StatusOK, response)
}

func (h *Handler) handleReaction(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messageID := chi.URLParam(r, "messageID")

	var payload struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Symbol == "" {
		utils.RespondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	if !h.orchestrator.ToggleReaction(sessionID, messageID, payload.Symbol) {
		utils.RespondError(w, http.StatusNotFound, "message not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messageID := chi.URLParam(r, "messageID")

	if !h.orchestrator.DeleteTurn(sessionID, messageID) {
		utils.RespondError(w, http.StatusNotFound, "message not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// respondGatewayError reports a gateway failure as 500 {error, detail}, the
// same shape the serverless variant answers with.
func respondGatewayError(w http.ResponseWriter, err error) {
	detail := err.Error()
	var provErr *gateway.ProviderError
	if errors.As(err, &provErr) {
		detail = provErr.Detail
	}
	utils.RespondErrorDetail(w, http.StatusInternalServerError, "Server error", detail)
}
