// Package history keeps the bounded, ordered conversation a bot sends back to
// the model on every turn.
package history

import (
	"strings"

	"github.com/easeaico/utbot/internal/types"
)

// Store is an ordered message history capped by a Policy. It is owned by a
// single bot and is not safe for concurrent use.
type Store struct {
	policy   Policy
	messages []types.Message
}

// NewStore returns an empty store. A nil policy falls back to FixedWindow.
func NewStore(policy Policy) *Store {
	if policy == nil {
		policy = FixedWindow{}
	}
	return &Store{policy: policy}
}

// Policy returns the eviction policy in use.
func (s *Store) Policy() Policy {
	return s.policy
}

// Append adds a message at the end and applies eviction.
func (s *Store) Append(role types.Role, content string) {
	s.messages = append(s.messages, types.Message{Role: role, Content: content})
	kept := s.policy.Evict(s.messages)
	if len(kept) != len(s.messages) {
		// Copy so the evicted prefix is released.
		s.messages = append([]types.Message(nil), kept...)
	}
}

// Messages returns a copy of the history, oldest first.
func (s *Store) Messages() []types.Message {
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Text flattens the history into "Role: content" lines.
func (s *Store) Text() string {
	return Render(s.messages)
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	return len(s.messages)
}

// Clear empties the store.
func (s *Store) Clear() {
	s.messages = nil
}

// Render formats messages as "Role: content" lines joined by newlines,
// skipping whitespace-only lines and trimming the result.
func Render(msgs []types.Message) string {
	var sb strings.Builder
	for _, msg := range msgs {
		line := msg.Role.Title() + ": " + msg.Content
		for _, part := range strings.Split(line, "\n") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(part)
		}
	}
	return strings.TrimSpace(sb.String())
}
