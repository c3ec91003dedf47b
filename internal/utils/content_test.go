package utils

import (
	"testing"

	"google.golang.org/genai"
)

func TestExtractContentText(t *testing.T) {
	content := &genai.Content{Parts: []*genai.Part{{Text: "hel"}, nil, {Text: "lo"}}}
	if got := ExtractContentText(content); got != "hello" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := ExtractContentText(nil); got != "" {
		t.Fatalf("expected empty text for nil content, got %q", got)
	}
}

func TestNormalizeReply(t *testing.T) {
	got := NormalizeReply("line one\n\n\r\nline two  \n\n")
	if got != "line one\nline two" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDisplayDelta(t *testing.T) {
	if got := DisplayDelta("a\n\nb\n"); got != "a\nb\n" {
		t.Fatalf("unexpected delta: %q", got)
	}
}
