// Package roadmap turns a user skill profile into a structured learning
// roadmap via the completion gateway.
package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aivorahq/aivora/backend/internal/gateway"
)

var ErrEmptyProfile = errors.New("roadmap: profile is empty")

// Service generates learning roadmaps from free-form profile documents.
type Service struct {
	gw     gateway.Gateway
	logger *slog.Logger
}

func New(gw gateway.Gateway, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gw: gw, logger: logger}
}

// Generate asks the model for a roadmap matching the profile. When the model
// answers with valid JSON that JSON is returned as-is; otherwise the raw text
// is wrapped under a "roadmap" key so the caller always gets a JSON document.
func (s *Service) Generate(ctx context.Context, profile map[string]any) (json.RawMessage, error) {
	if len(profile) == 0 {
		return nil, ErrEmptyProfile
	}

	encoded, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	p := fmt.Sprintf("User profile: %s. Generate a concise learning roadmap as JSON.", encoded)
	res, err := s.gw.Complete(ctx, p)
	if err != nil {
		return nil, err
	}

	return normalizeRoadmap(res.Text), nil
}

// normalizeRoadmap extracts the first JSON object from the model output, or
// falls back to wrapping the raw text.
func normalizeRoadmap(raw string) json.RawMessage {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		candidate := raw[start : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate)
		}
	}

	wrapped, _ := json.Marshal(map[string]string{"roadmap": raw})
	return json.RawMessage(wrapped)
}
