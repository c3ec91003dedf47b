package prompt

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/easeaico/utbot/internal/history"
	"github.com/easeaico/utbot/internal/personality"
	"github.com/easeaico/utbot/internal/types"
)

func mustProfile(t *testing.T, kind personality.Kind, name, subject string) personality.Profile {
	t.Helper()
	p, err := personality.NewProfile(kind, name, subject)
	if err != nil {
		t.Fatalf("NewProfile() error = %v", err)
	}
	return p
}

func TestMessagesShape(t *testing.T) {
	profile := mustProfile(t, personality.Friendly, "Joy", "")
	h := history.NewStore(history.PairEviction{Exchanges: 3})
	RecordTurn(h, "hi", "hello!")

	got := BuildRequest(profile, h, "how are you").Messages()
	want := []types.Message{
		types.SystemMessage(profile.SystemHint),
		types.UserMessage("hi"),
		types.AssistantMessage("hello!"),
		types.UserMessage("how are you"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected messages (-want +got):\n%s", diff)
	}
}

func TestBuildRequestSnapshotsHistory(t *testing.T) {
	profile := mustProfile(t, personality.Funny, "", "")
	h := history.NewStore(nil)
	req := BuildRequest(profile, h, "first")
	RecordTurn(h, "first", "reply")

	if len(req.History) != 0 {
		t.Fatalf("request history changed after recording: %+v", req.History)
	}
}

func TestPromptContainsHistoryAndInput(t *testing.T) {
	profile := mustProfile(t, personality.Friendly, "Joy", "")
	h := history.NewStore(history.FixedWindow{Size: 6})
	RecordTurn(h, "hi", "hello!")

	text, err := BuildRequest(profile, h, "tell me a story").Prompt()
	if err != nil {
		t.Fatalf("Prompt() error = %v", err)
	}
	for _, want := range []string{
		"You are Joy, a casual and warm AI assistant.",
		"Recent conversation history:\nUser: hi\nAssistant: hello!",
		"Current user message: tell me a story",
		"Respond as Joy in a casual and warm manner.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("prompt missing %q:\n%s", want, text)
		}
	}
}

func TestTeacherPromptContainsSubject(t *testing.T) {
	profile := mustProfile(t, personality.Teacher, "Professor Albert", "Quantum Mechanics")
	req := BuildRequest(profile, history.NewStore(nil), "what is spin?")

	text, err := req.Prompt()
	if err != nil {
		t.Fatalf("Prompt() error = %v", err)
	}
	if strings.Count(text, "Quantum Mechanics") != 2 {
		t.Fatalf("expected subject twice in prompt:\n%s", text)
	}

	msgs := req.Messages()
	if !strings.Contains(msgs[0].Content, "Quantum Mechanics") {
		t.Fatalf("system hint misses subject: %q", msgs[0].Content)
	}
}

func TestEachKindRendersDistinctPrompt(t *testing.T) {
	seen := map[string]personality.Kind{}
	for _, kind := range []personality.Kind{personality.Generic, personality.Friendly, personality.Funny} {
		text, err := BuildRequest(mustProfile(t, kind, "Bot", ""), nil, "x").Prompt()
		if err != nil {
			t.Fatalf("Prompt() error = %v", err)
		}
		if other, dup := seen[text]; dup {
			t.Fatalf("%s and %s render the same prompt", kind, other)
		}
		seen[text] = kind
	}
}

func TestPayloadPromptShape(t *testing.T) {
	profile := mustProfile(t, personality.Generic, "", "")
	req := BuildRequest(profile, nil, "hello")

	msgs, err := req.Payload(ShapePrompt)
	if err != nil {
		t.Fatalf("Payload() error = %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != types.RoleSystem || msgs[0].Content != HelperSystemPrompt {
		t.Fatalf("unexpected prompt payload: %+v", msgs)
	}
	if msgs[1].Role != types.RoleUser || !strings.Contains(msgs[1].Content, "Current user message: hello") {
		t.Fatalf("unexpected user prompt: %+v", msgs[1])
	}

	chat, err := req.Payload(ShapeMessages)
	if err != nil {
		t.Fatalf("Payload() error = %v", err)
	}
	if diff := cmp.Diff(req.Messages(), chat); diff != "" {
		t.Fatalf("messages payload differs (-want +got):\n%s", diff)
	}
}

func TestGreetingRequestHasNoUserTurn(t *testing.T) {
	profile := mustProfile(t, personality.Funny, "", "")
	msgs := GreetingRequest(profile).Messages()
	if len(msgs) != 1 || msgs[0].Role != types.RoleSystem {
		t.Fatalf("expected only the system hint, got %+v", msgs)
	}
}

func TestRecordTurnOrder(t *testing.T) {
	h := history.NewStore(history.FixedWindow{Size: 10})
	RecordTurn(h, "q1", "a1")
	RecordTurn(h, "q2", "a2")

	got := h.Messages()
	if got[2] != types.UserMessage("q2") || got[3] != types.AssistantMessage("a2") {
		t.Fatalf("new turn not appended in order: %+v", got)
	}
}

func TestParseShape(t *testing.T) {
	if s, err := ParseShape("prompt"); err != nil || s != ShapePrompt {
		t.Fatalf("ParseShape(prompt) = %v, %v", s, err)
	}
	if _, err := ParseShape("xml"); err == nil {
		t.Fatalf("expected error for unknown shape")
	}
}
