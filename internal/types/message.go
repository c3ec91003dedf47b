package types

import (
	"strings"
	"time"
)

// Role tags who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Title returns the capitalized role name used in flattened transcripts.
func (r Role) Title() string {
	switch r {
	case RoleSystem:
		return "System"
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	}
	if r == "" {
		return ""
	}
	s := string(r)
	return strings.ToUpper(s[:1]) + s[1:]
}

// Message is a single role-tagged chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// TurnRecord is one archived exchange.
type TurnRecord struct {
	ID          string    `json:"id"`
	BotID       string    `json:"bot_id"`
	BotName     string    `json:"bot_name"`
	Personality string    `json:"personality"`
	UserInput   string    `json:"user_input"`
	Reply       string    `json:"reply"`
	Failed      bool      `json:"failed"`
	CreatedAt   time.Time `json:"created_at"`
}
