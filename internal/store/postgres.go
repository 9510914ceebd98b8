package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/pixel-knight/pixelknight/models"
)

// PostgresStore keeps each session as a row with its messages in a JSONB
// column, mirroring the session-as-document shape of the file store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens and pings a Postgres connection.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing connection, mainly for tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) CreateSession(ctx context.Context, session models.ChatSession) error {
	messages, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, title, model, preset, messages, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.Title, session.Model, session.Preset, messages, session.CreatedAt, session.UpdatedAt)
	return err
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (models.ChatSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, model, preset, messages, created_at, updated_at FROM chat_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]models.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, model, preset, messages, created_at, updated_at FROM chat_sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (s *PostgresStore) SearchSessions(ctx context.Context, query string) ([]models.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, model, preset, messages, created_at, updated_at FROM chat_sessions
		 WHERE title ILIKE '%' || $1 || '%' OR messages::text ILIKE '%' || $1 || '%'
		 ORDER BY updated_at DESC`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (s *PostgresStore) UpdateSessionTitle(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET title = $2, updated_at = now() WHERE id = $1`, id, title)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PostgresStore) AppendMessage(ctx context.Context, sessionID string, msg models.ChatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET messages = messages || $2::jsonb, updated_at = now() WHERE id = $1`,
		sessionID, payload)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PostgresStore) UpdateMessage(ctx context.Context, sessionID, messageID, content string) error {
	return s.rewriteMessages(ctx, sessionID, func(msgs []models.ChatMessage) ([]models.ChatMessage, error) {
		for i := range msgs {
			if msgs[i].ID == messageID {
				msgs[i].Content = content
				return msgs, nil
			}
		}
		return nil, fmt.Errorf("message %s not found", messageID)
	})
}

func (s *PostgresStore) RemoveMessage(ctx context.Context, sessionID, messageID string) error {
	return s.rewriteMessages(ctx, sessionID, func(msgs []models.ChatMessage) ([]models.ChatMessage, error) {
		for i := range msgs {
			if msgs[i].ID == messageID {
				return append(msgs[:i], msgs[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("message %s not found", messageID)
	})
}

func (s *PostgresStore) rewriteMessages(ctx context.Context, sessionID string, fn func([]models.ChatMessage) ([]models.ChatMessage, error)) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	msgs, err := fn(session.Messages)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET messages = $2, updated_at = now() WHERE id = $1`, sessionID, payload)
	return err
}

func (s *PostgresStore) ListCustomPresets(ctx context.Context) ([]models.Preset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category, description, system_prompt, created_at FROM presets ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Preset
	for rows.Next() {
		var p models.Preset
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Description, &p.SystemPrompt, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveCustomPreset(ctx context.Context, preset models.Preset) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO presets (id, name, category, description, system_prompt, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category,
		   description = EXCLUDED.description, system_prompt = EXCLUDED.system_prompt`,
		preset.ID, preset.Name, preset.Category, preset.Description, preset.SystemPrompt, preset.CreatedAt)
	return err
}

func (s *PostgresStore) DeleteCustomPreset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrPresetNotFound
	}
	return nil
}

func (s *PostgresStore) RecordUsage(ctx context.Context, kind string, tokens int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_totals (kind, requests, tokens) VALUES ($1, 1, $2)
		 ON CONFLICT (kind) DO UPDATE SET requests = usage_totals.requests + 1,
		   tokens = usage_totals.tokens + EXCLUDED.tokens`,
		kind, tokens)
	return err
}

func (s *PostgresStore) GetUsage(ctx context.Context) (models.UsageTotals, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, requests, tokens FROM usage_totals`)
	if err != nil {
		return models.UsageTotals{}, err
	}
	defer rows.Close()
	var totals models.UsageTotals
	for rows.Next() {
		var kind string
		var requests, tokens int64
		if err := rows.Scan(&kind, &requests, &tokens); err != nil {
			return models.UsageTotals{}, err
		}
		totals.TotalRequests += requests
		totals.TotalTokens += tokens
		switch kind {
		case UsageKindChat:
			totals.ChatRequests = requests
		case UsageKindResearch:
			totals.ResearchSessions = requests
		}
	}
	return totals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (models.ChatSession, error) {
	var session models.ChatSession
	var messages []byte
	err := row.Scan(&session.ID, &session.Title, &session.Model, &session.Preset, &messages, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatSession{}, models.ErrSessionNotFound
	}
	if err != nil {
		return models.ChatSession{}, err
	}
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &session.Messages); err != nil {
			return models.ChatSession{}, fmt.Errorf("unmarshal messages: %w", err)
		}
	}
	if session.Messages == nil {
		session.Messages = []models.ChatMessage{}
	}
	return session, nil
}

func collectSessions(rows *sql.Rows) ([]models.ChatSession, error) {
	var out []models.ChatSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}
