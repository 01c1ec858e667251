// Package sos exposes the manual emergency trigger and alert listing.
package sos

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/aivorahq/aivora/backend/internal/http/middleware"
	sosModel "github.com/aivorahq/aivora/backend/internal/model/sos"
	sosService "github.com/aivorahq/aivora/backend/internal/service/sos"
	"github.com/aivorahq/aivora/backend/pkg/utils"
)

// Handler serves the SOS routes.
type Handler struct {
	svc *sosService.Service
}

func New(svc *sosService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the SOS routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sos", h.handleTrigger)
	r.Get("/sos", h.handleList)
}

// handleTrigger records a manual alert. The device location is carried
// through verbatim; a manual alert never has a detected emotion.
func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Location *sosModel.Location `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := httpmiddleware.UserID(r.Context())
	id, err := h.svc.Raise(r.Context(), userID, payload.Location, "")
	if err != nil {
		utils.RespondErrorDetail(w, http.StatusInternalServerError, "failed to record alert", err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID := httpmiddleware.UserID(r.Context())
	alerts, err := h.svc.List(r.Context(), userID)
	if err != nil {
		utils.RespondErrorDetail(w, http.StatusInternalServerError, "failed to list alerts", err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}
