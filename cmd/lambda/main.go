// Serverless entrypoint exposing the stateless function endpoints: plain
// completion, classified completion, manual SOS and roadmap generation.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/aivorahq/aivora/backend/internal/config"
	"github.com/aivorahq/aivora/backend/internal/gateway"
	"github.com/aivorahq/aivora/backend/internal/model/persona"
	sosModel "github.com/aivorahq/aivora/backend/internal/model/sos"
	"github.com/aivorahq/aivora/backend/internal/service/history"
	"github.com/aivorahq/aivora/backend/internal/service/roadmap"
	sosService "github.com/aivorahq/aivora/backend/internal/service/sos"
	"github.com/aivorahq/aivora/backend/internal/service/turn"
	"github.com/aivorahq/aivora/backend/pkg/logging"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type, Authorization",
	"Access-Control-Allow-Methods": "POST, OPTIONS",
	"Content-Type":                 "application/json",
}

type app struct {
	gw         gateway.Gateway
	orch       *turn.Orchestrator
	sosSvc     *sosService.Service
	roadmapSvc *roadmap.Service
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := logging.New(cfg.Log.Level)

	a := &app{}
	if cfg.AI.Enabled() {
		gw, err := gateway.New(ctx, cfg.AI.Config, logger.Logger)
		if err != nil {
			panic(err)
		}
		a.gw = gw
		a.roadmapSvc = roadmap.New(gw, logger.Logger)
	}
	a.sosSvc = sosService.NewService(sosService.NewMemoryStore(), logger.Logger, nil)
	a.orch = turn.New(persona.NewMemoryStore(persona.Seed()), a.gw, history.NewMemoryStore(), a.sosSvc, nil, logger.Logger, nil)

	lambda.Start(a.handle)
}

func (a *app) handle(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if method == http.MethodOptions {
		// Preflight answers 200 'ok', matching the deployed function contract.
		out := respond(http.StatusOK, nil)
		out.Body = "ok"
		return out, nil
	}
	if method != http.MethodPost {
		return respondJSON(http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"}), nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return respondJSON(http.StatusBadRequest, map[string]string{"error": "invalid body"}), nil
	}

	switch path {
	case "/api/chat":
		return a.handleChat(ctx, body), nil
	case "/api/aichat":
		return a.handleAIChat(ctx, body), nil
	case "/api/sos":
		return a.handleSOS(ctx, body), nil
	case "/api/roadmap":
		return a.handleRoadmap(ctx, body), nil
	default:
		return respondJSON(http.StatusNotFound, map[string]string{"error": "Not found"}), nil
	}
}

func (a *app) handleChat(ctx context.Context, body []byte) events.APIGatewayV2HTTPResponse {
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Prompt == "" {
		return respondJSON(http.StatusBadRequest, map[string]string{"error": "Missing prompt"})
	}
	if a.gw == nil {
		return respondJSON(http.StatusInternalServerError, map[string]string{"error": "Server missing API key."})
	}

	res, err := a.gw.Complete(ctx, payload.Prompt)
	if err != nil {
		return respondJSON(http.StatusInternalServerError, map[string]string{"error": "Server error", "detail": err.Error()})
	}
	return respondJSON(http.StatusOK, map[string]string{"response": res.Text})
}

func (a *app) handleAIChat(ctx context.Context, body []byte) events.APIGatewayV2HTTPResponse {
	var payload struct {
		Text   string `json:"text"`
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Text == "" {
		return respondJSON(http.StatusBadRequest, map[string]string{"error": "Missing text"})
	}
	userID := payload.UserID
	if userID == "" {
		userID = "anonymous"
	}

	// The sessionless pipeline records both turns and raises a locationless
	// SOS alert when the classified emotion is a distress label.
	result, err := a.orch.ClassifyDirect(ctx, userID, payload.Text)
	switch {
	case errors.Is(err, turn.ErrGatewayUnavailable):
		return respondJSON(http.StatusInternalServerError, map[string]string{"error": "Server missing API key."})
	case err != nil:
		return respondJSON(http.StatusInternalServerError, map[string]string{"error": "Server error", "detail": err.Error()})
	}

	return respondJSON(http.StatusOK, map[string]string{"reply": result.AssistantTurn.Text, "emotion": string(result.Emotion)})
}

func (a *app) handleSOS(ctx context.Context, body []byte) events.APIGatewayV2HTTPResponse {
	var payload struct {
		UserID   string             `json:"userId"`
		Location *sosModel.Location `json:"location"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return respondJSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	userID := payload.UserID
	if userID == "" {
		userID = "anonymous"
	}

	id, err := a.sosSvc.Raise(ctx, userID, payload.Location, "")
	if err != nil {
		return respondJSON(http.StatusInternalServerError, map[string]string{"error": "failed to record alert"})
	}
	return respondJSON(http.StatusOK, map[string]any{"ok": true, "id": id})
}

func (a *app) handleRoadmap(ctx context.Context, body []byte) events.APIGatewayV2HTTPResponse {
	var payload struct {
		Profile map[string]any `json:"profile"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Profile) == 0 {
		return respondJSON(http.StatusBadRequest, map[string]string{"error": "profile is required"})
	}
	if a.roadmapSvc == nil {
		return respondJSON(http.StatusInternalServerError, map[string]string{"error": "Server missing API key."})
	}

	doc, err := a.roadmapSvc.Generate(ctx, payload.Profile)
	if err != nil {
		return respondJSON(http.StatusInternalServerError, map[string]string{"error": "Server error", "detail": err.Error()})
	}
	return respondRaw(http.StatusOK, doc)
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

func respond(status int, headers map[string]string) events.APIGatewayV2HTTPResponse {
	merged := make(map[string]string, len(corsHeaders)+len(headers))
	for k, v := range corsHeaders {
		merged[k] = v
	}
	for k, v := range headers {
		merged[k] = v
	}
	return events.APIGatewayV2HTTPResponse{StatusCode: status, Headers: merged}
}

func respondJSON(status int, payload any) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(payload)
	out := respond(status, nil)
	out.Body = string(body)
	return out
}

func respondRaw(status int, body []byte) events.APIGatewayV2HTTPResponse {
	out := respond(status, nil)
	out.Body = string(body)
	return out
}
