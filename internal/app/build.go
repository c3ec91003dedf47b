// Package app wires configuration into the chat, archive and web components
// shared by the command line and the web service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/easeaico/utbot/internal/chatbot"
	"github.com/easeaico/utbot/internal/config"
	"github.com/easeaico/utbot/internal/finance"
	"github.com/easeaico/utbot/internal/httpapi"
	"github.com/easeaico/utbot/internal/models"
	"github.com/easeaico/utbot/internal/observability"
	"github.com/easeaico/utbot/internal/personality"
	"github.com/easeaico/utbot/internal/storage"
)

// NewClient builds the model client for the configured provider.
func NewClient(ctx context.Context, cfg config.Config) (*models.Client, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	llm, err := models.NewModel(ctx, cfg.LLMProvider, cfg.LLMModel, &genai.ClientConfig{
		APIKey:      cfg.LLMAPIKey,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.LLMBaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.LLMProvider, err)
	}
	return models.NewClient(llm, models.Options{
		Stream:      cfg.LLMStream,
		Temperature: float32(cfg.LLMTemperature),
		TopP:        float32(cfg.LLMTopP),
		MaxTokens:   int32(cfg.LLMMaxTokens),
	}), nil
}

// NewArchive opens the transcript archive. Embeddings are enabled when a
// Google API key is configured.
func NewArchive(ctx context.Context, cfg config.Config) (storage.Archive, error) {
	var embedder storage.Embedder
	if cfg.DatabaseURL != "" && cfg.GoogleAPIKey != "" {
		e, err := storage.NewGenAIEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		embedder = e
	}
	return storage.NewArchive(ctx, cfg.DatabaseURL, embedder)
}

// NewPicker returns the persona picker, seeded when RandomSeed is set. The
// picker is safe for concurrent use.
func NewPicker(cfg config.Config) personality.Picker {
	if cfg.RandomSeed == 0 {
		return globalPicker{}
	}
	return &lockedPicker{r: rand.New(rand.NewPCG(cfg.RandomSeed, cfg.RandomSeed))}
}

type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

type lockedPicker struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (p *lockedPicker) IntN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.r.IntN(n)
}

// BotConfig maps configuration onto a bot.
func BotConfig(cfg config.Config, profile personality.Profile, archiver chatbot.Archiver, observer chatbot.Observer) chatbot.Config {
	return chatbot.Config{
		Profile:                         profile,
		Policy:                          cfg.HistoryPolicy,
		Shape:                           cfg.RequestShape,
		ResetHistoryOnPersonalityChange: cfg.ResetHistoryOnPersonalityChange,
		DropFailedTurns:                 !cfg.RecordFailedTurns,
		FailureText:                     models.FailureText,
		Archiver:                        archiver,
		Observer:                        observer,
	}
}

// NewAnalyzer builds the finance analyzer over the configured market data source.
func NewAnalyzer(cfg config.Config) *finance.Analyzer {
	return finance.NewAnalyzer(finance.NewHTTPMarketData(cfg.MarketDataURL, nil))
}

// Service is the assembled web service.
type Service struct {
	API     *httpapi.Server
	Bots    *chatbot.Registry
	Metrics *observability.Metrics
	// Cleanup releases external resources.
	Cleanup func() error
}

// Build assembles the web service.
func Build(ctx context.Context, cfg config.Config) (*Service, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	archive, err := NewArchive(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	bots := chatbot.NewRegistry(cfg.SessionInactivityTimeout)
	api := httpapi.New(httpapi.Options{
		Bots: bots,
		NewBot: func(profile personality.Profile) (*chatbot.Bot, error) {
			return chatbot.New(client, BotConfig(cfg, profile, archive, metrics))
		},
		Picker:         NewPicker(cfg),
		Archive:        archive,
		Analyzer:       NewAnalyzer(cfg),
		FinanceDir:     cfg.FinanceDataDir,
		Metrics:        metrics,
		FailureDisplay: cfg.FailureDisplay,
	})
	bots.SetExpireHook(func(id string) {
		slog.Info("bot expired", "bot", id)
		api.ExpireHook(id)
	})
	bots.StartJanitor(ctx, time.Minute)

	return &Service{
		API:     api,
		Bots:    bots,
		Metrics: metrics,
		Cleanup: archive.Close,
	}, nil
}
