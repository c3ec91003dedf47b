package history

import (
	"fmt"
	"strings"

	"github.com/easeaico/utbot/internal/types"
)

const (
	// DefaultExchanges is the pair-eviction limit used by the terminal chat.
	DefaultExchanges = 3
	// DefaultWindow is the fixed-window size used by the persona bots.
	DefaultWindow = 6
)

// Policy decides which messages survive after an append.
type Policy interface {
	// Evict returns the retained messages, oldest first. It may reuse msgs.
	Evict(msgs []types.Message) []types.Message
	// Capacity is the maximum number of messages retained.
	Capacity() int
	String() string
}

// PairEviction keeps at most Exchanges user/assistant pairs and drops the
// oldest two messages together once the limit is exceeded.
type PairEviction struct {
	Exchanges int
}

func (p PairEviction) limit() int {
	if p.Exchanges <= 0 {
		return DefaultExchanges
	}
	return p.Exchanges
}

func (p PairEviction) Evict(msgs []types.Message) []types.Message {
	for len(msgs) > 2*p.limit() {
		msgs = msgs[2:]
	}
	return msgs
}

func (p PairEviction) Capacity() int {
	return 2 * p.limit()
}

func (p PairEviction) String() string {
	return fmt.Sprintf("pair(%d)", p.limit())
}

// FixedWindow keeps the last Size messages regardless of role. The window may
// begin mid-exchange.
type FixedWindow struct {
	Size int
}

func (w FixedWindow) limit() int {
	if w.Size <= 0 {
		return DefaultWindow
	}
	return w.Size
}

func (w FixedWindow) Evict(msgs []types.Message) []types.Message {
	for len(msgs) > w.limit() {
		msgs = msgs[1:]
	}
	return msgs
}

func (w FixedWindow) Capacity() int {
	return w.limit()
}

func (w FixedWindow) String() string {
	return fmt.Sprintf("window(%d)", w.limit())
}

// ParsePolicy maps a configuration name to a policy. "pair" takes limit as an
// exchange count, "window" as a message count.
func ParsePolicy(kind string, limit int) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "pair", "pairs", "exchange":
		return PairEviction{Exchanges: limit}, nil
	case "", "window", "fixed":
		return FixedWindow{Size: limit}, nil
	default:
		return nil, fmt.Errorf("unknown history policy %q (expected pair|window)", kind)
	}
}
