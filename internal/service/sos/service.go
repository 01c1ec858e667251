// Package sos records emergency alerts. Alerts come from exactly two paths:
// the turn pipeline when the provider classifies distress, and the manual
// trigger that always carries device coordinates.
package sos

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aivorahq/aivora/backend/internal/model/sos"
	"github.com/aivorahq/aivora/backend/internal/observability/metrics"
)

// Alert sources used for metrics labels.
const (
	SourceEmotion = "emotion"
	SourceManual  = "manual"
)

// Store persists alerts.
type Store interface {
	Save(ctx context.Context, alert sos.Alert) error
	List(ctx context.Context, userID string) ([]sos.Alert, error)
}

// Service is the SOS adapter exposed to the orchestrator and the manual
// trigger handler.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService wires the adapter to its store.
func NewService(store Store, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, metrics: m}
}

// Raise records an active alert and returns its identifier. location is nil
// on the emotion-triggered path; detectedEmotion is empty on the manual path.
func (s *Service) Raise(ctx context.Context, userID string, location *sos.Location, detectedEmotion string) (string, error) {
	alert := sos.Alert{
		ID:              uuid.NewString(),
		UserID:          userID,
		Location:        location,
		DetectedEmotion: detectedEmotion,
		Timestamp:       time.Now().UTC(),
		Status:          sos.StatusActive,
	}

	if err := s.store.Save(ctx, alert); err != nil {
		return "", err
	}

	source := SourceManual
	if detectedEmotion != "" {
		source = SourceEmotion
	}
	s.metrics.ObserveSOS(source)
	s.logger.Info("sos alert raised",
		"alert_id", alert.ID,
		"user_id", userID,
		"source", source,
		"detected_emotion", detectedEmotion,
	)
	return alert.ID, nil
}

// List returns the alerts recorded for a user.
func (s *Service) List(ctx context.Context, userID string) ([]sos.Alert, error) {
	return s.store.List(ctx, userID)
}
