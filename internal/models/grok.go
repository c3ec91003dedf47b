package models

import (
	"context"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// NewGrokModel creates a new Grok model instance
//
// It uses the provided context and configuration to initialize the underlying
// OpenAI-compatible client. The modelName specifies which Grok model to target
// (e.g., "grok-beta", "grok-2-1212").
func NewGrokModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	return newCompatibleModel(modelName, cfg, "https://api.x.ai/v1", "grok-go")
}
