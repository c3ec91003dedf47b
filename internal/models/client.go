package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/utbot/internal/types"
	"github.com/easeaico/utbot/internal/utils"
)

// Options tunes every completion issued by a Client.
type Options struct {
	Stream      bool
	Temperature float32
	TopP        float32
	MaxTokens   int32
}

// DefaultOptions mirrors the sampling settings of the terminal chat.
func DefaultOptions() Options {
	return Options{
		Stream:      true,
		Temperature: 1,
		TopP:        1,
		MaxTokens:   1024,
	}
}

// Client turns a message list into one assistant reply using an ADK model.
type Client struct {
	llm  model.LLM
	opts Options
}

// NewClient wraps llm.
func NewClient(llm model.LLM, opts Options) *Client {
	return &Client{llm: llm, opts: opts}
}

// Name returns the underlying model name.
func (c *Client) Name() string {
	if c == nil || c.llm == nil {
		return ""
	}
	return c.llm.Name()
}

// Complete sends msgs and returns the full reply text. When streaming,
// onDelta (if set) receives every chunk as it arrives.
func (c *Client) Complete(ctx context.Context, msgs []types.Message, onDelta func(string)) (string, error) {
	if c == nil || c.llm == nil {
		return "", fmt.Errorf("llm client not configured")
	}

	req := &model.LLMRequest{
		Contents: toContents(msgs),
		Config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(c.opts.Temperature),
			TopP:            genai.Ptr(c.opts.TopP),
			MaxOutputTokens: c.opts.MaxTokens,
		},
	}

	var (
		streamed  strings.Builder
		final     string
		haveFinal bool
	)
	for resp, err := range c.llm.GenerateContent(ctx, req, c.opts.Stream) {
		if err != nil {
			return "", err
		}
		if resp == nil {
			continue
		}
		text := utils.ExtractContentText(resp.Content)
		if resp.Partial {
			streamed.WriteString(text)
			if onDelta != nil && text != "" {
				onDelta(text)
			}
			continue
		}
		final = text
		haveFinal = true
	}

	if !haveFinal || final == "" {
		final = streamed.String()
	} else if streamed.Len() == 0 && onDelta != nil && final != "" {
		onDelta(final)
	}
	return final, nil
}

func toContents(msgs []types.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		role := genai.Role(msg.Role)
		if msg.Role == types.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents
}

// IsAuthError reports whether err came from a rejected API key.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") || strings.Contains(msg, "invalid_api_key")
}

// FailureText renders err as the error-marked reply shown in place of an
// assistant answer.
func FailureText(err error) string {
	if IsAuthError(err) {
		return "Error: Invalid API key. Please update your LLM API key (LLM_API_KEY)."
	}
	slog.Debug("llm call failed", "error", err)
	return fmt.Sprintf("Error connecting to LLM: %v", err)
}
