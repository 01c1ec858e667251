// Package roadmap exposes skill roadmap generation.
package roadmap

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aivorahq/aivora/backend/internal/gateway"
	roadmapService "github.com/aivorahq/aivora/backend/internal/service/roadmap"
	"github.com/aivorahq/aivora/backend/pkg/utils"
)

// Handler serves roadmap generation.
type Handler struct {
	svc *roadmapService.Service
}

func New(svc *roadmapService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the roadmap routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/roadmap", h.handleGenerate)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Profile map[string]any `json:"profile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.svc == nil {
		utils.RespondError(w, http.StatusInternalServerError, "Server missing API key.")
		return
	}

	doc, err := h.svc.Generate(r.Context(), payload.Profile)
	if err != nil {
		if errors.Is(err, roadmapService.ErrEmptyProfile) {
			utils.RespondError(w, http.StatusBadRequest, "profile is required")
			return
		}
		var provErr *gateway.ProviderError
		if errors.As(err, &provErr) {
			utils.RespondErrorDetail(w, http.StatusBadGateway, "AI request failed", provErr.Detail)
			return
		}
		utils.RespondErrorDetail(w, http.StatusInternalServerError, "Server error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}
