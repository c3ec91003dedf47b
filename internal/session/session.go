// Package session drives the terminal conversation: persona selection,
// chat turns and the hand-off to finance mode.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/easeaico/utbot/internal/chatbot"
	"github.com/easeaico/utbot/internal/personality"
)

// State is a step of the terminal conversation.
type State int

const (
	AwaitingPersonality State = iota
	AwaitingSubject
	AwaitingInput
	ChangingPersonality
	FinanceMode
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingPersonality:
		return "awaiting_personality"
	case AwaitingSubject:
		return "awaiting_subject"
	case AwaitingInput:
		return "awaiting_input"
	case ChangingPersonality:
		return "changing_personality"
	case FinanceMode:
		return "finance"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Commands recognised while chatting. They match exactly.
const (
	CommandExit    = "exit"
	CommandChange  = "change"
	CommandFinance = "finance"
)

// Kind classifies an Output.
type Kind int

const (
	// Notice is a message from the program itself.
	Notice Kind = iota
	// Greeting is the bot's opening line after a persona is chosen.
	Greeting
	// Reply is the bot's answer to a user turn.
	Reply
	// Failure is an error-marked reply.
	Failure
)

// Output is what the front end should show after a line is handled.
type Output struct {
	Kind    Kind
	Speaker string
	Text    string
}

// BotFactory creates the bot for the first chosen persona.
type BotFactory func(profile personality.Profile) (*chatbot.Bot, error)

// Config configures a Session.
type Config struct {
	Picker         personality.Picker
	TeacherName    string
	TeacherSubject string
	NewBot         BotFactory
	// OnDelta receives streamed reply chunks.
	OnDelta func(string)
}

// Session is the state machine of one terminal conversation. The bot is
// owned by the session; there is no process-wide persona.
type Session struct {
	cfg   Config
	state State
	bot   *chatbot.Bot
}

// New creates a session waiting for a persona choice.
func New(cfg Config) (*Session, error) {
	if cfg.NewBot == nil {
		return nil, fmt.Errorf("session: bot factory is required")
	}
	return &Session{cfg: cfg, state: AwaitingPersonality}, nil
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Bot returns the active bot, nil before the first selection.
func (s *Session) Bot() *chatbot.Bot { return s.bot }

// Prompt is the input hint for the current state.
func (s *Session) Prompt() string {
	switch s.state {
	case AwaitingPersonality, ChangingPersonality:
		return "Personality: "
	case AwaitingSubject:
		return "What subject should I teach? "
	case AwaitingInput:
		return "You: "
	default:
		return ""
	}
}

// Menu lists the selectable personas.
func Menu() string {
	var b strings.Builder
	b.WriteString("AI Personalities:\n")
	for i, k := range []personality.Kind{personality.Friendly, personality.Teacher, personality.Funny} {
		fmt.Fprintf(&b, "%d. %s\n", i+1, k.Description())
	}
	b.WriteString("Choose by typing the number, or 'random' for surprise.")
	return b.String()
}

// Handle consumes one input line.
func (s *Session) Handle(ctx context.Context, line string) (Output, error) {
	line = strings.TrimSpace(line)

	switch s.state {
	case AwaitingPersonality, ChangingPersonality:
		return s.handleChoice(ctx, line)
	case AwaitingSubject:
		return s.handleSubject(ctx, line)
	case AwaitingInput:
		return s.handleInput(ctx, line)
	case FinanceMode:
		return Output{}, fmt.Errorf("session: finance mode is driven by the caller")
	default:
		return Output{}, fmt.Errorf("session: terminated")
	}
}

// LeaveFinance returns from finance mode to chat, or ends the session.
func (s *Session) LeaveFinance(exit bool) Output {
	if s.state != FinanceMode {
		return Output{}
	}
	if exit {
		return s.terminate()
	}
	s.state = AwaitingInput
	return Output{Kind: Notice, Text: "Back to chat mode."}
}

func (s *Session) terminate() Output {
	s.state = Terminated
	return Output{Kind: Notice, Text: "Goodbye!"}
}

func (s *Session) handleChoice(ctx context.Context, line string) (Output, error) {
	if line == CommandExit {
		return s.terminate(), nil
	}
	kind, err := personality.Select(line, s.cfg.Picker)
	if err != nil {
		if errors.Is(err, personality.ErrInvalidChoice) {
			return Output{Kind: Notice, Text: "Invalid personality. Please try again."}, nil
		}
		return Output{}, err
	}

	if kind == personality.Teacher && strings.TrimSpace(s.cfg.TeacherSubject) == "" {
		s.state = AwaitingSubject
		return Output{Kind: Notice, Text: "Personality: " + kind.Description()}, nil
	}
	return s.activate(ctx, kind, s.cfg.TeacherSubject)
}

func (s *Session) handleSubject(ctx context.Context, line string) (Output, error) {
	if line == CommandExit {
		return s.terminate(), nil
	}
	if line == "" {
		return Output{Kind: Notice, Text: "A subject is required for the teacher."}, nil
	}
	return s.activate(ctx, personality.Teacher, line)
}

func (s *Session) activate(ctx context.Context, kind personality.Kind, subject string) (Output, error) {
	name := ""
	if kind == personality.Teacher {
		name = s.cfg.TeacherName
		if strings.TrimSpace(name) == "" {
			name = kind.DefaultName()
		}
	}
	profile, err := personality.NewProfile(kind, name, subject)
	if err != nil {
		return Output{}, err
	}

	if s.bot == nil {
		bot, err := s.cfg.NewBot(profile)
		if err != nil {
			return Output{}, fmt.Errorf("failed to create bot: %w", err)
		}
		s.bot = bot
	} else {
		s.bot.ChangePersonality(profile)
	}
	s.state = AwaitingInput

	text, err := s.bot.Greet(ctx, s.cfg.OnDelta)
	return s.reply(Greeting, text, err)
}

func (s *Session) handleInput(ctx context.Context, line string) (Output, error) {
	switch line {
	case CommandExit:
		return s.terminate(), nil
	case CommandChange:
		s.state = ChangingPersonality
		return Output{Kind: Notice, Text: Menu()}, nil
	case CommandFinance:
		s.state = FinanceMode
		return Output{Kind: Notice, Text: "Finance Analysis Mode"}, nil
	}

	text, err := s.bot.GenerateResponseStream(ctx, line, s.cfg.OnDelta)
	return s.reply(Reply, text, err)
}

func (s *Session) reply(kind Kind, text string, err error) (Output, error) {
	out := Output{Kind: kind, Speaker: s.bot.Name(), Text: text}
	if err != nil {
		if !errors.Is(err, chatbot.ErrLLMFailure) {
			return Output{}, err
		}
		out.Kind = Failure
	}
	return out, nil
}
