package store

import (
	"context"
	"fmt"
	"log"

	"github.com/pixel-knight/pixelknight/config"
	"github.com/pixel-knight/pixelknight/models"
)

// Usage kinds recorded against the totals.
const (
	UsageKindChat     = "chat"
	UsageKindResearch = "research"
)

// Store persists chat sessions, custom presets, and usage totals.
type Store interface {
	CreateSession(ctx context.Context, session models.ChatSession) error
	GetSession(ctx context.Context, id string) (models.ChatSession, error)
	ListSessions(ctx context.Context) ([]models.ChatSession, error)
	SearchSessions(ctx context.Context, query string) ([]models.ChatSession, error)
	UpdateSessionTitle(ctx context.Context, id, title string) error
	DeleteSession(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, sessionID string, msg models.ChatMessage) error
	UpdateMessage(ctx context.Context, sessionID, messageID, content string) error
	RemoveMessage(ctx context.Context, sessionID, messageID string) error

	ListCustomPresets(ctx context.Context) ([]models.Preset, error)
	SaveCustomPreset(ctx context.Context, preset models.Preset) error
	DeleteCustomPreset(ctx context.Context, id string) error

	RecordUsage(ctx context.Context, kind string, tokens int) error
	GetUsage(ctx context.Context) (models.UsageTotals, error)

	Close() error
}

// NewStorage opens the configured backend: Postgres when configured, the
// JSON file store otherwise.
func NewStorage(cfg config.StorageConfig) (Store, error) {
	logger := log.New(log.Writer(), "[STORE] ", log.LstdFlags)
	if cfg.Postgres.Enabled() {
		dsn, err := cfg.Postgres.DSN()
		if err != nil {
			return nil, fmt.Errorf("postgres config: %w", err)
		}
		st, err := NewPostgresStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Printf("using postgres storage")
		return st, nil
	}
	st, err := NewFileStore(cfg.File.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open file store: %w", err)
	}
	logger.Printf("using file storage at %s", cfg.File.DataDir)
	return st, nil
}
