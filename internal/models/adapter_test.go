package models

import (
	"context"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func TestBuildOpenAIParams(t *testing.T) {
	req := &model.LLMRequest{
		Contents: []*genai.Content{
			genai.NewContentFromText("be nice", "system"),
			genai.NewContentFromText("hi", genai.RoleUser),
			genai.NewContentFromText("hello!", genai.RoleModel),
			nil,
			genai.NewContentFromText("how are you", genai.RoleUser),
		},
		Config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](1),
			TopP:            genai.Ptr[float32](1),
			MaxOutputTokens: 1024,
		},
	}

	params := buildOpenAIParams(req, DefaultGroqModel)
	if string(params.Model) != DefaultGroqModel {
		t.Fatalf("expected fallback model, got %q", params.Model)
	}
	if len(params.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].OfSystem == nil || params.Messages[2].OfAssistant == nil {
		t.Fatalf("unexpected message roles: %+v", params.Messages)
	}
}

func TestBuildOpenAIParamsPrependsSystemInstruction(t *testing.T) {
	req := &model.LLMRequest{
		Model:    "gpt-4o-mini",
		Contents: []*genai.Content{genai.NewContentFromText("hi", genai.RoleUser)},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("persona", "system"),
		},
	}

	params := buildOpenAIParams(req, DefaultGroqModel)
	if string(params.Model) != "gpt-4o-mini" {
		t.Fatalf("request model must win, got %q", params.Model)
	}
	if len(params.Messages) != 2 || params.Messages[0].OfSystem == nil {
		t.Fatalf("expected system message first, got %+v", params.Messages)
	}
}

func TestNewModelProviders(t *testing.T) {
	cfg := &genai.ClientConfig{APIKey: "test-key"}
	for provider, want := range map[string]string{
		"groq":       DefaultGroqModel,
		"openai":     "gpt-4o-mini",
		"openrouter": "meta-llama/llama-3.3-70b-instruct",
		"xai":        "grok-4-fast",
	} {
		llm, err := NewModel(context.Background(), provider, want, cfg)
		if err != nil {
			t.Fatalf("NewModel(%q) returned error: %v", provider, err)
		}
		if llm.Name() != want {
			t.Fatalf("NewModel(%q).Name() = %q, want %q", provider, llm.Name(), want)
		}
	}

	if _, err := NewModel(context.Background(), "bard", "x", cfg); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	if _, err := NewModel(context.Background(), "groq", "", &genai.ClientConfig{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
