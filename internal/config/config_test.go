package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/easeaico/utbot/internal/history"
	"github.com/easeaico/utbot/internal/prompt"
)

func TestLoadDefaults(t *testing.T) {
	setEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLMProvider != "groq" || cfg.LLMModel != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected provider defaults: %s %s", cfg.LLMProvider, cfg.LLMModel)
	}
	if cfg.LLMTemperature != 1 || cfg.LLMTopP != 1 || cfg.LLMMaxTokens != 1024 || !cfg.LLMStream {
		t.Fatalf("unexpected sampling defaults: %+v", cfg)
	}
	if w, ok := cfg.HistoryPolicy.(history.FixedWindow); !ok || w.Capacity() != history.DefaultWindow {
		t.Fatalf("unexpected history policy: %#v", cfg.HistoryPolicy)
	}
	if cfg.RequestShape != prompt.ShapeMessages {
		t.Fatalf("unexpected shape %s", cfg.RequestShape)
	}
	if !cfg.ResetHistoryOnPersonalityChange || !cfg.RecordFailedTurns || cfg.FailureDisplay != FailureInline {
		t.Fatalf("unexpected turn defaults: %+v", cfg)
	}
	if cfg.SessionInactivityTimeout != 30*time.Minute || cfg.BindAddr != ":8080" || cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected service defaults: %+v", cfg)
	}
	if err := cfg.RequireLLM(); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestLoadOverrides(t *testing.T) {
	setEnvEmpty(t)
	t.Setenv("LLM_PROVIDER", "xai")
	t.Setenv("XAI_API_KEY", "xai-key")
	t.Setenv("HISTORY_POLICY", "pair")
	t.Setenv("HISTORY_LIMIT", "5")
	t.Setenv("REQUEST_SHAPE", "prompt")
	t.Setenv("RESET_HISTORY_ON_PERSONALITY_CHANGE", "false")
	t.Setenv("FAILURE_DISPLAY", "banner")
	t.Setenv("RANDOM_SEED", "42")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLMProvider != "grok" || cfg.LLMAPIKey != "xai-key" || cfg.LLMModel != "grok-4-fast" {
		t.Fatalf("unexpected provider settings: %+v", cfg)
	}
	if p, ok := cfg.HistoryPolicy.(history.PairEviction); !ok || p.Exchanges != 5 {
		t.Fatalf("unexpected history policy: %#v", cfg.HistoryPolicy)
	}
	if cfg.RequestShape != prompt.ShapePrompt || cfg.ResetHistoryOnPersonalityChange || cfg.FailureDisplay != FailureBanner {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.RandomSeed != 42 || cfg.LogLevel != slog.LevelWarn {
		t.Fatalf("unexpected seed/level: %d %s", cfg.RandomSeed, cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"LLM_PROVIDER":    "nope",
		"LLM_TEMPERATURE": "warm",
		"LLM_STREAM":      "maybe",
		"HISTORY_POLICY":  "lru",
		"REQUEST_SHAPE":   "xml",
		"FAILURE_DISPLAY": "popup",
		"RANDOM_SEED":     "-1",
		"LOG_LEVEL":       "loud",
	}
	for key, value := range cases {
		setEnvEmpty(t)
		t.Setenv(key, value)
		if _, err := Load(); err == nil {
			t.Fatalf("%s=%s: expected error", key, value)
		}
	}
}

func setEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"LLM_PROVIDER", "LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL", "LLM_TEMPERATURE",
		"LLM_TOP_P", "LLM_MAX_TOKENS", "LLM_STREAM", "HISTORY_POLICY", "HISTORY_LIMIT",
		"REQUEST_SHAPE", "RESET_HISTORY_ON_PERSONALITY_CHANGE", "RECORD_FAILED_TURNS",
		"FAILURE_DISPLAY", "RANDOM_SEED", "TEACHER_NAME", "TEACHER_SUBJECT", "BIND_ADDR",
		"DATABASE_URL", "GOOGLE_API_KEY", "EMBEDDING_MODEL", "SESSION_INACTIVITY_TIMEOUT",
		"SHUTDOWN_TIMEOUT", "METRICS_NAMESPACE", "FINANCE_DATA_DIR", "MARKET_DATA_URL",
		"LOG_LEVEL", "GROQ_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY", "XAI_API_KEY",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
