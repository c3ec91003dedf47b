package models

import (
	"context"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// NewOpenRouterModel creates a model routed through OpenRouter. modelName is
// the OpenRouter model id, e.g. "meta-llama/llama-3.3-70b-instruct".
func NewOpenRouterModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	return newCompatibleModel(modelName, cfg, "https://openrouter.ai/api/v1", "openrouter-go")
}
