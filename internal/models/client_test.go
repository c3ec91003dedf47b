package models

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/utbot/internal/types"
)

type mockLLM struct {
	chunks  []string
	final   string
	err     error
	lastReq *model.LLMRequest
	stream  bool
}

func (m *mockLLM) Name() string { return "mock" }

func (m *mockLLM) GenerateContent(_ context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	m.lastReq = req
	m.stream = stream
	return func(yield func(*model.LLMResponse, error) bool) {
		if m.err != nil {
			yield(nil, m.err)
			return
		}
		for _, c := range m.chunks {
			resp := &model.LLMResponse{
				Content: genai.NewContentFromText(c, genai.RoleModel),
				Partial: true,
			}
			if !yield(resp, nil) {
				return
			}
		}
		yield(&model.LLMResponse{
			Content:      genai.NewContentFromText(m.final, genai.RoleModel),
			TurnComplete: true,
		}, nil)
	}
}

func TestClientCompleteStreamsDeltas(t *testing.T) {
	llm := &mockLLM{chunks: []string{"hel", "lo!"}, final: "hello!"}
	client := NewClient(llm, DefaultOptions())

	var deltas []string
	got, err := client.Complete(context.Background(), []types.Message{
		types.SystemMessage("be nice"),
		types.UserMessage("hi"),
	}, func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "hello!" {
		t.Fatalf("expected hello!, got %q", got)
	}
	if strings.Join(deltas, "") != "hello!" || len(deltas) != 2 {
		t.Fatalf("unexpected deltas: %q", deltas)
	}
	if !llm.stream {
		t.Fatalf("expected streaming request")
	}
}

func TestClientCompleteConvertsRoles(t *testing.T) {
	llm := &mockLLM{final: "ok"}
	client := NewClient(llm, Options{MaxTokens: 64, Temperature: 0.5, TopP: 0.9})

	_, err := client.Complete(context.Background(), []types.Message{
		types.SystemMessage("sys"),
		types.UserMessage("u"),
		types.AssistantMessage("a"),
	}, nil)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	contents := llm.lastReq.Contents
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	roles := []string{contents[0].Role, contents[1].Role, contents[2].Role}
	want := []string{"system", genai.RoleUser, genai.RoleModel}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("role %d: expected %q, got %q", i, want[i], roles[i])
		}
	}
	cfg := llm.lastReq.Config
	if cfg.MaxOutputTokens != 64 || *cfg.Temperature != 0.5 || *cfg.TopP != 0.9 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestClientCompleteNonStreamingCallsDeltaOnce(t *testing.T) {
	llm := &mockLLM{final: "fine"}
	opts := DefaultOptions()
	opts.Stream = false
	client := NewClient(llm, opts)

	var deltas []string
	got, err := client.Complete(context.Background(), nil, func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "fine" || len(deltas) != 1 || deltas[0] != "fine" {
		t.Fatalf("unexpected result %q deltas %q", got, deltas)
	}
}

func TestClientCompletePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	client := NewClient(&mockLLM{err: boom}, DefaultOptions())
	if _, err := client.Complete(context.Background(), nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestFailureText(t *testing.T) {
	auth := FailureText(errors.New("POST: 401 Unauthorized invalid_api_key"))
	if !strings.HasPrefix(auth, "Error: Invalid API key.") {
		t.Fatalf("unexpected auth failure text: %q", auth)
	}
	other := FailureText(errors.New("dial tcp: timeout"))
	if other != "Error connecting to LLM: dial tcp: timeout" {
		t.Fatalf("unexpected failure text: %q", other)
	}
}
