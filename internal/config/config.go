// Package config loads configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/easeaico/utbot/internal/history"
	"github.com/easeaico/utbot/internal/prompt"
)

// Failure display modes.
const (
	FailureInline = "inline"
	FailureBanner = "banner"
)

// Config holds runtime settings.
type Config struct {
	LLMProvider    string
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMTemperature float64
	LLMTopP        float64
	LLMMaxTokens   int
	LLMStream      bool

	HistoryPolicy                   history.Policy
	RequestShape                    prompt.Shape
	ResetHistoryOnPersonalityChange bool
	RecordFailedTurns               bool
	FailureDisplay                  string
	// RandomSeed seeds the persona picker; 0 leaves it unseeded.
	RandomSeed uint64

	TeacherName    string
	TeacherSubject string

	BindAddr                 string
	DatabaseURL              string
	GoogleAPIKey             string
	EmbeddingModel           string
	SessionInactivityTimeout time.Duration
	ShutdownTimeout          time.Duration
	MetricsNamespace         string

	FinanceDataDir string
	MarketDataURL  string

	LogLevel slog.Level
}

var defaultModels = map[string]string{
	"groq":       "llama-3.3-70b-versatile",
	"openai":     "gpt-4o-mini",
	"openrouter": "meta-llama/llama-3.3-70b-instruct",
	"grok":       "grok-4-fast",
}

// Load reads env vars, applies defaults, and validates values.
func Load() (Config, error) {
	cfg := Config{
		LLMProvider:      strings.ToLower(envOrDefault("LLM_PROVIDER", "groq")),
		LLMAPIKey:        os.Getenv("LLM_API_KEY"),
		LLMBaseURL:       os.Getenv("LLM_BASE_URL"),
		LLMModel:         os.Getenv("LLM_MODEL"),
		FailureDisplay:   strings.ToLower(envOrDefault("FAILURE_DISPLAY", FailureInline)),
		TeacherName:      os.Getenv("TEACHER_NAME"),
		TeacherSubject:   os.Getenv("TEACHER_SUBJECT"),
		BindAddr:         envOrDefault("BIND_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GoogleAPIKey:     os.Getenv("GOOGLE_API_KEY"),
		EmbeddingModel:   envOrDefault("EMBEDDING_MODEL", "text-embedding-004"),
		MetricsNamespace: envOrDefault("METRICS_NAMESPACE", "utbot"),
		FinanceDataDir:   envOrDefault("FINANCE_DATA_DIR", "./finance_data"),
		MarketDataURL:    os.Getenv("MARKET_DATA_URL"),
	}
	if cfg.LLMProvider == "xai" {
		cfg.LLMProvider = "grok"
	}
	if _, ok := defaultModels[cfg.LLMProvider]; !ok {
		return Config{}, fmt.Errorf("LLM_PROVIDER: unknown provider %q", cfg.LLMProvider)
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModels[cfg.LLMProvider]
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = providerKey(cfg.LLMProvider)
	}

	var err error
	if cfg.LLMTemperature, err = getEnvFloat("LLM_TEMPERATURE", 1); err != nil {
		return Config{}, err
	}
	if cfg.LLMTopP, err = getEnvFloat("LLM_TOP_P", 1); err != nil {
		return Config{}, err
	}
	if cfg.LLMMaxTokens, err = getEnvInt("LLM_MAX_TOKENS", 1024); err != nil {
		return Config{}, err
	}
	if cfg.LLMStream, err = getEnvBool("LLM_STREAM", true); err != nil {
		return Config{}, err
	}

	limit, err := getEnvInt("HISTORY_LIMIT", 0)
	if err != nil {
		return Config{}, err
	}
	if cfg.HistoryPolicy, err = history.ParsePolicy(os.Getenv("HISTORY_POLICY"), limit); err != nil {
		return Config{}, fmt.Errorf("HISTORY_POLICY: %w", err)
	}
	if cfg.RequestShape, err = prompt.ParseShape(os.Getenv("REQUEST_SHAPE")); err != nil {
		return Config{}, fmt.Errorf("REQUEST_SHAPE: %w", err)
	}
	if cfg.ResetHistoryOnPersonalityChange, err = getEnvBool("RESET_HISTORY_ON_PERSONALITY_CHANGE", true); err != nil {
		return Config{}, err
	}
	if cfg.RecordFailedTurns, err = getEnvBool("RECORD_FAILED_TURNS", true); err != nil {
		return Config{}, err
	}
	if cfg.FailureDisplay != FailureInline && cfg.FailureDisplay != FailureBanner {
		return Config{}, fmt.Errorf("FAILURE_DISPLAY: expected inline|banner, got %q", cfg.FailureDisplay)
	}
	if v := strings.TrimSpace(os.Getenv("RANDOM_SEED")); v != "" {
		if cfg.RandomSeed, err = strconv.ParseUint(v, 10, 64); err != nil {
			return Config{}, fmt.Errorf("RANDOM_SEED parse error: %w", err)
		}
	}

	if cfg.SessionInactivityTimeout, err = getEnvDuration("SESSION_INACTIVITY_TIMEOUT", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.LogLevel, err = parseLevel(os.Getenv("LOG_LEVEL")); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// RequireLLM reports a missing model credential.
func (c Config) RequireLLM() error {
	if c.LLMAPIKey == "" {
		return errors.New("LLM_API_KEY environment variable is required")
	}
	return nil
}

// DefaultModel returns the model used for provider when LLM_MODEL is unset.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// providerKey falls back to the provider specific key variable.
func providerKey(provider string) string {
	switch provider {
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	case "grok":
		return os.Getenv("XAI_API_KEY")
	}
	return ""
}

func parseLevel(v string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(v) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL parse error: %w", err)
	}
	return level, nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if val == "" {
		return defaultVal, nil
	}
	switch val {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}
