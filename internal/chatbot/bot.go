// Package chatbot ties a persona, its bounded history and the model together
// into a Bot that answers one user turn at a time.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/easeaico/utbot/internal/history"
	"github.com/easeaico/utbot/internal/personality"
	"github.com/easeaico/utbot/internal/prompt"
	"github.com/easeaico/utbot/internal/types"
	"github.com/easeaico/utbot/internal/utils"
)

// ErrLLMFailure marks a turn whose reply is an error string instead of an answer.
var ErrLLMFailure = errors.New("llm failure")

// Completer is the model collaborator. onDelta, when non-nil, receives
// streamed chunks; the returned string is the complete reply.
type Completer interface {
	Complete(ctx context.Context, msgs []types.Message, onDelta func(string)) (string, error)
}

// Archiver persists recorded turns.
type Archiver interface {
	SaveTurn(ctx context.Context, turn types.TurnRecord) error
}

// Observer is notified once per answered turn.
type Observer interface {
	ObserveTurn(personality string, failed bool, latency time.Duration)
}

// Config configures a Bot.
type Config struct {
	// ID is generated when empty.
	ID      string
	Profile personality.Profile
	// Policy defaults to history.FixedWindow with the default size.
	Policy history.Policy
	Shape  prompt.Shape

	ResetHistoryOnPersonalityChange bool
	// DropFailedTurns keeps error replies out of the history.
	DropFailedTurns bool
	// FailureText renders a collaborator error as a reply.
	FailureText func(error) string

	Archiver Archiver
	Observer Observer
}

// Bot owns one persona and its history. A Bot is not safe for concurrent
// turns; callers serialize access (see Registry).
type Bot struct {
	id      string
	cfg     Config
	llm     Completer
	profile personality.Profile
	history *history.Store
}

// New creates a Bot with an empty history.
func New(llm Completer, cfg Config) (*Bot, error) {
	if llm == nil {
		return nil, fmt.Errorf("chatbot: completer is required")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.FailureText == nil {
		cfg.FailureText = defaultFailureText
	}
	return &Bot{
		id:      cfg.ID,
		cfg:     cfg,
		llm:     llm,
		profile: cfg.Profile,
		history: history.NewStore(cfg.Policy),
	}, nil
}

func defaultFailureText(err error) string {
	return fmt.Sprintf("Error connecting to LLM: %v", err)
}

// IsFailureText reports whether a reply carries the error marker used by
// the model collaborator.
func IsFailureText(reply string) bool {
	reply = strings.TrimSpace(reply)
	return strings.HasPrefix(reply, "Error:") || strings.HasPrefix(reply, "Error connecting")
}

func (b *Bot) ID() string { return b.id }
func (b *Bot) Name() string { return b.profile.Name }
func (b *Bot) Profile() personality.Profile { return b.profile }
func (b *Bot) History() []types.Message { return b.history.Messages() }
func (b *Bot) HistoryText() string { return b.history.Text() }
func (b *Bot) Policy() history.Policy { return b.history.Policy() }

// GenerateResponse answers input and records the turn.
func (b *Bot) GenerateResponse(ctx context.Context, input string) (string, error) {
	return b.GenerateResponseStream(ctx, input, nil)
}

// GenerateResponseStream is GenerateResponse with streamed chunks forwarded
// to onDelta. Only the assembled reply is recorded.
//
// A failed turn returns the error-marked reply together with an error
// wrapping ErrLLMFailure; the caller decides how to display it.
func (b *Bot) GenerateResponseStream(ctx context.Context, input string, onDelta func(string)) (string, error) {
	req := prompt.BuildRequest(b.profile, b.history, input)
	payload, err := req.Payload(b.cfg.Shape)
	if err != nil {
		return "", err
	}

	start := time.Now()
	reply, failed, err := b.complete(ctx, payload, onDelta)
	if err != nil {
		return "", err
	}

	if !failed || !b.cfg.DropFailedTurns {
		prompt.RecordTurn(b.history, input, reply)
	}
	// 失败的回合也归档，以 failed 标记
	b.archive(ctx, input, reply, failed)
	if b.cfg.Observer != nil {
		b.cfg.Observer.ObserveTurn(b.profile.Kind.String(), failed, time.Since(start))
	}

	if failed {
		return reply, fmt.Errorf("%w: %s", ErrLLMFailure, reply)
	}
	return reply, nil
}

// Greet opens the conversation from the persona alone. The greeting is not
// recorded. With the prompt shape the canned greeting is returned without
// calling the model.
func (b *Bot) Greet(ctx context.Context, onDelta func(string)) (string, error) {
	if b.cfg.Shape == prompt.ShapePrompt {
		if onDelta != nil {
			onDelta(prompt.Greeting)
		}
		return prompt.Greeting, nil
	}

	reply, failed, err := b.complete(ctx, prompt.GreetingRequest(b.profile).Messages(), onDelta)
	if err != nil {
		return "", err
	}
	if failed {
		return reply, fmt.Errorf("%w: %s", ErrLLMFailure, reply)
	}
	return reply, nil
}

// complete calls the model and folds collaborator errors into an
// error-marked reply. Only cancellation is returned as an error.
func (b *Bot) complete(ctx context.Context, payload []types.Message, onDelta func(string)) (string, bool, error) {
	raw, err := b.llm.Complete(ctx, payload, onDelta)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}
		slog.Warn("model call failed", "bot", b.id, "error", err.Error())
		return b.cfg.FailureText(err), true, nil
	}
	reply := utils.NormalizeReply(raw)
	return reply, IsFailureText(reply), nil
}

func (b *Bot) archive(ctx context.Context, input, reply string, failed bool) {
	if b.cfg.Archiver == nil {
		return
	}
	turn := types.TurnRecord{
		ID:          uuid.NewString(),
		BotID:       b.id,
		BotName:     b.profile.Name,
		Personality: b.profile.Kind.String(),
		UserInput:   input,
		Reply:       reply,
		Failed:      failed,
		CreatedAt:   time.Now().UTC(),
	}
	if err := b.cfg.Archiver.SaveTurn(ctx, turn); err != nil {
		slog.Error("failed to archive turn", "bot", b.id, "error", err.Error())
	}
}

// Reset clears the conversation.
func (b *Bot) Reset() {
	b.history.Clear()
}

// ChangePersonality swaps the persona. History is cleared only when the bot
// is configured to reset on change.
func (b *Bot) ChangePersonality(profile personality.Profile) {
	b.profile = profile
	if b.cfg.ResetHistoryOnPersonalityChange {
		b.history.Clear()
	}
}
