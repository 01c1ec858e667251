package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aivorahq/aivora/backend/internal/gateway"
)

// Config aggregates every runtime setting of the service.
type Config struct {
	Server ServerConfig
	Log    LogConfig
	AI     AIConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Speech SpeechConfig
	CORS   CORSConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Log:    LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")},
		AI:     ai,
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Auth: AuthConfig{Secret: strings.TrimSpace(os.Getenv("JWT_SECRET"))},
		Speech: SpeechConfig{
			APIKey: firstNonEmptyEnv("SPEECH_API_KEY", "OPENAI_API_KEY"),
			Model:  getEnvOrDefault("SPEECH_MODEL", "tts-1"),
			Voice:  getEnvOrDefault("SPEECH_VOICE", "alloy"),
		},
		CORS: CORSConfig{AllowedOrigins: splitCSV(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string
}

// RedisConfig points the history and SOS adapters at redis. Empty Addr keeps
// both adapters in memory.
type RedisConfig struct {
	Addr     string
	Password string
}

// Enabled reports whether a redis endpoint was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// AuthConfig carries the shared secret used to verify bearer identity tokens.
type AuthConfig struct {
	Secret string
}

// SpeechConfig parameterizes the text-to-speech capability.
type SpeechConfig struct {
	APIKey string
	Model  string
	Voice  string
}

// Enabled reports whether speech synthesis can be initialized.
func (c SpeechConfig) Enabled() bool {
	return c.APIKey != ""
}

// CORSConfig lists origins allowed by the CORS middleware.
type CORSConfig struct {
	AllowedOrigins []string
}

// AIConfig selects and parameterizes the completion provider.
type AIConfig struct {
	gateway.Config
}

// Enabled reports whether the required provider credentials are present.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case gateway.ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
	default:
		return c.APIKey != ""
	}
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", gateway.ProviderOpenAI))

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	cfg := gateway.Config{
		Provider:          provider,
		APIKey:            providerAPIKey(provider),
		Model:             strings.TrimSpace(os.Getenv("AI_MODEL")),
		BaseURL:           strings.TrimSpace(os.Getenv("AI_BASE_URL")),
		SystemInstruction: strings.TrimSpace(os.Getenv("AI_SYSTEM_INSTRUCTION")),
		ArkAccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkRegion:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
	}
	if temperature != nil {
		cfg.Temperature = *temperature
	}
	if maxTokens != nil {
		cfg.MaxTokens = *maxTokens
	}

	if fallback := strings.ToLower(strings.TrimSpace(os.Getenv("AI_FALLBACK_PROVIDER"))); fallback != "" && fallback != provider {
		fallbackCfg := cfg
		fallbackCfg.Provider = fallback
		fallbackCfg.APIKey = providerAPIKey(fallback)
		fallbackCfg.Model = getEnvOrDefault("AI_FALLBACK_MODEL", "")
		fallbackCfg.Fallback = nil
		cfg.Fallback = &fallbackCfg
	}

	return AIConfig{Config: cfg}, nil
}

// providerAPIKey resolves the key for a provider, preferring the generic
// AI_API_KEY over provider-specific variables.
func providerAPIKey(provider string) string {
	if key := strings.TrimSpace(os.Getenv("AI_API_KEY")); key != "" {
		return key
	}
	switch provider {
	case gateway.ProviderGemini:
		return strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	case gateway.ProviderArk:
		return strings.TrimSpace(os.Getenv("ARK_API_KEY"))
	default:
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmptyEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
