package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/aivorahq/aivora/backend/internal/config"
	"github.com/aivorahq/aivora/backend/internal/gateway"
	"github.com/aivorahq/aivora/backend/internal/handler"
	"github.com/aivorahq/aivora/backend/internal/model/persona"
	"github.com/aivorahq/aivora/backend/internal/observability/metrics"
	"github.com/aivorahq/aivora/backend/internal/service/history"
	"github.com/aivorahq/aivora/backend/internal/service/roadmap"
	sosService "github.com/aivorahq/aivora/backend/internal/service/sos"
	"github.com/aivorahq/aivora/backend/internal/service/speech"
	"github.com/aivorahq/aivora/backend/internal/service/turn"
	"github.com/aivorahq/aivora/backend/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		// System environment alone is fine outside local development.
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	personaStore := persona.NewMemoryStore(persona.Seed())

	var historyStore history.Store
	var sosStore sosService.Store
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("redis unreachable", "addr", cfg.Redis.Addr, "error", err.Error())
			os.Exit(1)
		}
		historyStore = history.NewRedisStore(client, 30*24*time.Hour)
		sosStore = sosService.NewRedisStore(client)
		logger.Info("redis storage enabled", "addr", cfg.Redis.Addr)
	} else {
		historyStore = history.NewMemoryStore()
		sosStore = sosService.NewMemoryStore()
		logger.Info("in-memory storage enabled")
	}

	sosSvc := sosService.NewService(sosStore, logger.Logger, m)

	var gw gateway.Gateway
	if cfg.AI.Enabled() {
		gw, err = gateway.New(ctx, cfg.AI.Config, logger.Logger)
		if err != nil {
			logger.Error("failed to initialize completion gateway", "provider", cfg.AI.Provider, "error", err.Error())
			os.Exit(1)
		}
		logger.Info("completion gateway initialized", "provider", cfg.AI.Provider)
	} else {
		logger.Warn("no AI credentials configured, completion endpoints will fail closed")
	}

	var synthesizer speech.Synthesizer
	if cfg.Speech.Enabled() {
		synthesizer, err = speech.NewOpenAISynthesizer(cfg.Speech.APIKey, cfg.Speech.Model, cfg.Speech.Voice)
		if err != nil {
			logger.Warn("speech synthesis unavailable", "error", err.Error())
			synthesizer = speech.Noop{}
		} else {
			logger.Info("speech synthesis enabled", "model", cfg.Speech.Model, "voice", cfg.Speech.Voice)
		}
	}

	orchestrator := turn.New(personaStore, gw, historyStore, sosSvc, synthesizer, logger.Logger, m)
	defer orchestrator.Close()

	var roadmapSvc *roadmap.Service
	if gw != nil {
		roadmapSvc = roadmap.New(gw, logger.Logger)
	}

	router := handler.NewRouter(handler.Deps{
		Personas:     personaStore,
		Gateway:      gw,
		Orchestrator: orchestrator,
		SOS:          sosSvc,
		Roadmap:      roadmapSvc,
		Logger:       logger.Logger,
		AuthSecret:   cfg.Auth.Secret,
		CORSOrigins:  cfg.CORS.AllowedOrigins,
		Registry:     registry,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("aivora backend listening", "addr", cfg.Server.Addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Error("server error", "error", err.Error())
		os.Exit(1)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
