package models

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// DefaultGroqModel is the chat model used when none is configured.
const DefaultGroqModel = "llama-3.3-70b-versatile"

// NewGroqModel creates a model on Groq's OpenAI-compatible endpoint.
func NewGroqModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	if modelName == "" {
		modelName = DefaultGroqModel
	}
	return newCompatibleModel(modelName, cfg, "https://api.groq.com/openai/v1", "groq-go")
}

// NewModel picks the adapter for a provider name.
func NewModel(ctx context.Context, provider, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "groq":
		return NewGroqModel(ctx, modelName, cfg)
	case "openai":
		return NewOpenAIModel(ctx, modelName, cfg)
	case "openrouter":
		return NewOpenRouterModel(ctx, modelName, cfg)
	case "grok", "xai":
		return NewGrokModel(ctx, modelName, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (expected groq|openai|openrouter|grok)", provider)
	}
}
