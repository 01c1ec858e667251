package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aivorahq/aivora/backend/internal/gateway"
	chatHandler "github.com/aivorahq/aivora/backend/internal/handler/chat"
	personaHandler "github.com/aivorahq/aivora/backend/internal/handler/persona"
	roadmapHandler "github.com/aivorahq/aivora/backend/internal/handler/roadmap"
	sosHandler "github.com/aivorahq/aivora/backend/internal/handler/sos"
	streamHandler "github.com/aivorahq/aivora/backend/internal/handler/stream"
	wsHandler "github.com/aivorahq/aivora/backend/internal/handler/ws"
	httpmiddleware "github.com/aivorahq/aivora/backend/internal/http/middleware"
	personaModel "github.com/aivorahq/aivora/backend/internal/model/persona"
	roadmapService "github.com/aivorahq/aivora/backend/internal/service/roadmap"
	sosService "github.com/aivorahq/aivora/backend/internal/service/sos"
	"github.com/aivorahq/aivora/backend/internal/service/turn"
	"github.com/aivorahq/aivora/backend/pkg/utils"
)

// Deps carries everything the router mounts.
type Deps struct {
	Personas     personaModel.Store
	Gateway      gateway.Gateway
	Orchestrator *turn.Orchestrator
	SOS          *sosService.Service
	Roadmap      *roadmapService.Service
	Logger       *slog.Logger
	AuthSecret   string
	CORSOrigins  []string
	Registry     *prometheus.Registry
}

// NewRouter wires HTTP routes to core services.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httpmiddleware.Identity(d.AuthSecret))

	pHandler := personaHandler.New(d.Personas)
	cHandler := chatHandler.New(d.Gateway, d.Orchestrator, d.Personas)
	alertHandler := sosHandler.New(d.SOS)

	var rHandler *roadmapHandler.Handler
	if d.Roadmap != nil {
		rHandler = roadmapHandler.New(d.Roadmap)
	}

	var sHandler *streamHandler.Handler
	var sockHandler *wsHandler.Handler
	if d.Gateway != nil {
		sHandler = streamHandler.New(d.Orchestrator, d.Logger)
		sockHandler = wsHandler.New(d.Orchestrator, d.Logger)
	}

	r.Route("/api", func(api chi.Router) {
		pHandler.RegisterRoutes(api)
		cHandler.RegisterRoutes(api)
		alertHandler.RegisterRoutes(api)

		if rHandler != nil {
			rHandler.RegisterRoutes(api)
		}

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if sHandler == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
				return
			}
			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := sHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				d.Logger.Warn("stream request failed", "session_id", sessionID, "error", err.Error())
			}
		})

		if sockHandler != nil {
			sockHandler.RegisterRoutes(api)
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	return r
}
