// Package prompt composes the request a bot sends to the model from its
// persona, its history and the new user utterance.
package prompt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/easeaico/utbot/internal/history"
	"github.com/easeaico/utbot/internal/personality"
	"github.com/easeaico/utbot/internal/types"
)

// Shape selects how a request is serialized for the model.
type Shape int

const (
	// ShapeMessages sends system hint, history and user input as chat messages.
	ShapeMessages Shape = iota
	// ShapePrompt flattens everything into one persona prompt.
	ShapePrompt
)

func (s Shape) String() string {
	if s == ShapePrompt {
		return "prompt"
	}
	return "messages"
}

// ParseShape maps a configuration value to a Shape.
func ParseShape(v string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "messages", "chat":
		return ShapeMessages, nil
	case "prompt", "text":
		return ShapePrompt, nil
	default:
		return ShapeMessages, fmt.Errorf("unknown request shape %q (expected messages|prompt)", v)
	}
}

// Request is one logical model request.
type Request struct {
	Profile      personality.Profile
	History      []types.Message
	UserInput    string
	HasUserInput bool
}

// BuildRequest snapshots the history and pairs it with the new user input.
func BuildRequest(profile personality.Profile, h *history.Store, userInput string) Request {
	req := Request{
		Profile:      profile,
		UserInput:    userInput,
		HasUserInput: true,
	}
	if h != nil {
		req.History = h.Messages()
	}
	return req
}

// GreetingRequest is a request carrying only the persona, used to open a
// conversation.
func GreetingRequest(profile personality.Profile) Request {
	return Request{Profile: profile}
}

// Messages returns [system(hint)] + history + [user(input)].
func (r Request) Messages() []types.Message {
	msgs := make([]types.Message, 0, len(r.History)+2)
	msgs = append(msgs, types.SystemMessage(r.Profile.SystemHint))
	msgs = append(msgs, r.History...)
	if r.HasUserInput {
		msgs = append(msgs, types.UserMessage(r.UserInput))
	}
	return msgs
}

// Prompt renders the flattened persona prompt.
func (r Request) Prompt() (string, error) {
	p := personaFor(r.Profile)
	data := struct {
		Name      string
		Persona   string
		History   string
		UserInput string
		Closing   string
	}{
		Name:      r.Profile.Name,
		Persona:   p.Persona,
		History:   history.Render(r.History),
		UserInput: r.UserInput,
		Closing:   p.Closing,
	}

	var buf bytes.Buffer
	if err := personaTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}
	return buf.String(), nil
}

// Payload serializes the request in the given shape.
func (r Request) Payload(shape Shape) ([]types.Message, error) {
	if shape != ShapePrompt {
		return r.Messages(), nil
	}
	text, err := r.Prompt()
	if err != nil {
		return nil, err
	}
	return []types.Message{
		types.SystemMessage(HelperSystemPrompt),
		types.UserMessage(text),
	}, nil
}

// RecordTurn appends the user message and then the assistant message.
func RecordTurn(h *history.Store, userInput, assistantOutput string) {
	h.Append(types.RoleUser, userInput)
	h.Append(types.RoleAssistant, assistantOutput)
}
