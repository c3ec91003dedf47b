package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/easeaico/utbot/internal/types"
)

// InMemoryArchive keeps turns in process memory for local use.
type InMemoryArchive struct {
	mu    sync.RWMutex
	turns map[string][]types.TurnRecord
}

func NewInMemoryArchive() *InMemoryArchive {
	return &InMemoryArchive{turns: make(map[string][]types.TurnRecord)}
}

func (a *InMemoryArchive) SaveTurn(_ context.Context, turn types.TurnRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	a.turns[turn.BotID] = append(a.turns[turn.BotID], turn)
	return nil
}

func (a *InMemoryArchive) Recent(_ context.Context, botID string, limit int) ([]types.TurnRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	arr := a.turns[botID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]types.TurnRecord, limit)
	copy(out, arr[len(arr)-limit:])
	return out, nil
}

// Search matches query as a case-insensitive substring, newest first.
func (a *InMemoryArchive) Search(_ context.Context, botID, query string, limit int) ([]types.TurnRecord, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []types.TurnRecord
	arr := a.turns[botID]
	for i := len(arr) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(turnText(arr[i])), query) {
			out = append(out, arr[i])
		}
	}
	return out, nil
}

func (a *InMemoryArchive) Close() error { return nil }
