// Package storage archives recorded turns. Postgres with pgvector
// embeddings is used when a database is configured, otherwise turns stay
// in process memory.
package storage

import (
	"context"
	"strings"

	"github.com/easeaico/utbot/internal/types"
)

// Archive stores turns for later reading. It never feeds a bot's history.
type Archive interface {
	SaveTurn(ctx context.Context, turn types.TurnRecord) error
	// Recent returns up to limit turns of a bot, oldest first.
	Recent(ctx context.Context, botID string, limit int) ([]types.TurnRecord, error)
	// Search returns turns of a bot related to query, best match first.
	Search(ctx context.Context, botID, query string, limit int) ([]types.TurnRecord, error)
	Close() error
}

// NewArchive picks the backend from databaseURL. embedder may be nil.
func NewArchive(ctx context.Context, databaseURL string, embedder Embedder) (Archive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryArchive(), nil
	}
	archive, err := NewPostgresArchive(ctx, databaseURL, embedder)
	if err != nil {
		return nil, err
	}
	return archive, nil
}

func turnText(turn types.TurnRecord) string {
	return types.RoleUser.Title() + ": " + turn.UserInput + "\n" + types.RoleAssistant.Title() + ": " + turn.Reply
}
