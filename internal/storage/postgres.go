package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/easeaico/utbot/internal/types"
)

// turnModel maps to the transcripts table.
type turnModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	BotID       string `gorm:"size:36;index"`
	BotName     string `gorm:"size:255"`
	Personality string `gorm:"size:32"`
	UserInput   string `gorm:"type:text"`
	Reply       string `gorm:"type:text"`
	Failed      bool   `gorm:"default:false"`
	// Embedding of the rendered turn, used for similarity search.
	Embedding *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt time.Time        `gorm:"index"`
}

func (turnModel) TableName() string {
	return "transcripts"
}

// PostgresArchive stores turns with gorm.
type PostgresArchive struct {
	db       *gorm.DB
	embedder Embedder
}

// NewPostgresArchive opens and pings the database.
func NewPostgresArchive(ctx context.Context, databaseURL string, embedder Embedder) (*PostgresArchive, error) {
	db, err := Open(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &PostgresArchive{db: db, embedder: embedder}, nil
}

// Open connects gorm to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate creates the pgvector extension and the transcripts table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&turnModel{}); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

func (a *PostgresArchive) SaveTurn(ctx context.Context, turn types.TurnRecord) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	record := turnModel{
		ID:          turn.ID,
		BotID:       turn.BotID,
		BotName:     turn.BotName,
		Personality: turn.Personality,
		UserInput:   turn.UserInput,
		Reply:       turn.Reply,
		Failed:      turn.Failed,
		CreatedAt:   turn.CreatedAt,
	}
	if a.embedder != nil && !turn.Failed {
		vec, err := a.embedder.EmbedDocument(ctx, turnText(turn))
		if err != nil {
			// 向量化失败不影响归档
			slog.Warn("failed to embed turn", "bot", turn.BotID, "error", err.Error())
		} else if len(vec) > 0 {
			v := pgvector.NewVector(vec)
			record.Embedding = &v
		}
	}
	if err := a.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Recent(ctx context.Context, botID string, limit int) ([]types.TurnRecord, error) {
	query := a.db.WithContext(ctx).Where("bot_id = ?", botID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []turnModel
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}

	results := turnsFromModels(records)
	// Oldest -> newest
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

// Search ranks turns by cosine distance to the embedded query. Without an
// embedder it falls back to a case-insensitive text match.
func (a *PostgresArchive) Search(ctx context.Context, botID, query string, limit int) ([]types.TurnRecord, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var records []turnModel
	if a.embedder == nil {
		pattern := likePattern(query)
		if err := a.db.WithContext(ctx).
			Where("bot_id = ?", botID).
			Where(`user_input ILIKE ? ESCAPE '\' OR reply ILIKE ? ESCAPE '\'`, pattern, pattern).
			Order("created_at DESC").
			Limit(limit).
			Find(&records).Error; err != nil {
			return nil, fmt.Errorf("failed to search transcripts: %w", err)
		}
		return turnsFromModels(records), nil
	}

	vec, err := a.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, nil
	}
	if err := a.db.WithContext(ctx).
		Raw(`SELECT * FROM transcripts
		WHERE bot_id = ? AND embedding IS NOT NULL
		ORDER BY embedding <=> ?
		LIMIT ?`, botID, pgvector.NewVector(vec), limit).
		Scan(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to search similar transcripts: %w", err)
	}
	return turnsFromModels(records), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches query as a literal substring.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

func (a *PostgresArchive) Close() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func turnsFromModels(records []turnModel) []types.TurnRecord {
	results := make([]types.TurnRecord, 0, len(records))
	for _, record := range records {
		results = append(results, turnFromModel(record))
	}
	return results
}

func turnFromModel(model turnModel) types.TurnRecord {
	return types.TurnRecord{
		ID:          model.ID,
		BotID:       model.BotID,
		BotName:     model.BotName,
		Personality: model.Personality,
		UserInput:   model.UserInput,
		Reply:       model.Reply,
		Failed:      model.Failed,
		CreatedAt:   model.CreatedAt,
	}
}
