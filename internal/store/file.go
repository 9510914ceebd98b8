package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pixel-knight/pixelknight/models"
)

// nowFunc is swapped in tests that pin timestamps.
var nowFunc = time.Now

// FileStore persists one JSON file per session plus shared files for presets
// and usage. It is the zero-configuration fallback backend.
type FileStore struct {
	mu      sync.Mutex
	dataDir string
}

// NewFileStore prepares the data directory layout.
func NewFileStore(dataDir string) (*FileStore, error) {
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "sessions"), 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dataDir: dataDir}, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) sessionPath(id string) string {
	return filepath.Join(s.dataDir, "sessions", id+".json")
}

func (s *FileStore) CreateSession(ctx context.Context, session models.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.Messages == nil {
		session.Messages = []models.ChatMessage{}
	}
	return writeJSON(s.sessionPath(session.ID), session)
}

func (s *FileStore) GetSession(ctx context.Context, id string) (models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSession(id)
}

func (s *FileStore) readSession(id string) (models.ChatSession, error) {
	var session models.ChatSession
	if err := readJSON(s.sessionPath(id), &session); err != nil {
		if os.IsNotExist(err) {
			return models.ChatSession{}, models.ErrSessionNotFound
		}
		return models.ChatSession{}, err
	}
	return session, nil
}

func (s *FileStore) ListSessions(ctx context.Context) ([]models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(filepath.Join(s.dataDir, "sessions"))
	if err != nil {
		return nil, err
	}
	var out []models.ChatSession
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var session models.ChatSession
		if err := readJSON(filepath.Join(s.dataDir, "sessions", e.Name()), &session); err != nil {
			continue
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *FileStore) SearchSessions(ctx context.Context, query string) ([]models.ChatSession, error) {
	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var out []models.ChatSession
	for _, session := range sessions {
		if strings.Contains(strings.ToLower(session.Title), needle) {
			out = append(out, session)
			continue
		}
		for _, m := range session.Messages {
			if strings.Contains(strings.ToLower(m.Content), needle) {
				out = append(out, session)
				break
			}
		}
	}
	return out, nil
}

func (s *FileStore) UpdateSessionTitle(ctx context.Context, id, title string) error {
	return s.rewriteSession(id, func(session *models.ChatSession) error {
		session.Title = title
		return nil
	})
}

func (s *FileStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.sessionPath(id)); err != nil {
		if os.IsNotExist(err) {
			return models.ErrSessionNotFound
		}
		return err
	}
	return nil
}

func (s *FileStore) AppendMessage(ctx context.Context, sessionID string, msg models.ChatMessage) error {
	return s.rewriteSession(sessionID, func(session *models.ChatSession) error {
		session.Messages = append(session.Messages, msg)
		return nil
	})
}

func (s *FileStore) UpdateMessage(ctx context.Context, sessionID, messageID, content string) error {
	return s.rewriteSession(sessionID, func(session *models.ChatSession) error {
		for i := range session.Messages {
			if session.Messages[i].ID == messageID {
				session.Messages[i].Content = content
				return nil
			}
		}
		return fmt.Errorf("message %s not found", messageID)
	})
}

func (s *FileStore) RemoveMessage(ctx context.Context, sessionID, messageID string) error {
	return s.rewriteSession(sessionID, func(session *models.ChatSession) error {
		for i := range session.Messages {
			if session.Messages[i].ID == messageID {
				session.Messages = append(session.Messages[:i], session.Messages[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("message %s not found", messageID)
	})
}

func (s *FileStore) rewriteSession(id string, fn func(*models.ChatSession) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.readSession(id)
	if err != nil {
		return err
	}
	if err := fn(&session); err != nil {
		return err
	}
	session.UpdatedAt = nowFunc()
	return writeJSON(s.sessionPath(id), session)
}

func (s *FileStore) presetsPath() string { return filepath.Join(s.dataDir, "presets.json") }

func (s *FileStore) ListCustomPresets(ctx context.Context) ([]models.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var presets []models.Preset
	if err := readJSON(s.presetsPath(), &presets); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return presets, nil
}

func (s *FileStore) SaveCustomPreset(ctx context.Context, preset models.Preset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var presets []models.Preset
	if err := readJSON(s.presetsPath(), &presets); err != nil && !os.IsNotExist(err) {
		return err
	}
	replaced := false
	for i := range presets {
		if presets[i].ID == preset.ID {
			presets[i] = preset
			replaced = true
			break
		}
	}
	if !replaced {
		presets = append(presets, preset)
	}
	return writeJSON(s.presetsPath(), presets)
}

func (s *FileStore) DeleteCustomPreset(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var presets []models.Preset
	if err := readJSON(s.presetsPath(), &presets); err != nil && !os.IsNotExist(err) {
		return err
	}
	for i := range presets {
		if presets[i].ID == id {
			presets = append(presets[:i], presets[i+1:]...)
			return writeJSON(s.presetsPath(), presets)
		}
	}
	return models.ErrPresetNotFound
}

type usageFile struct {
	Requests map[string]int64 `json:"requests"`
	Tokens   map[string]int64 `json:"tokens"`
}

func (s *FileStore) usagePath() string { return filepath.Join(s.dataDir, "usage.json") }

func (s *FileStore) RecordUsage(ctx context.Context, kind string, tokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	usage := usageFile{Requests: map[string]int64{}, Tokens: map[string]int64{}}
	if err := readJSON(s.usagePath(), &usage); err != nil && !os.IsNotExist(err) {
		return err
	}
	if usage.Requests == nil {
		usage.Requests = map[string]int64{}
	}
	if usage.Tokens == nil {
		usage.Tokens = map[string]int64{}
	}
	usage.Requests[kind]++
	usage.Tokens[kind] += int64(tokens)
	return writeJSON(s.usagePath(), usage)
}

func (s *FileStore) GetUsage(ctx context.Context) (models.UsageTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	usage := usageFile{}
	if err := readJSON(s.usagePath(), &usage); err != nil && !os.IsNotExist(err) {
		return models.UsageTotals{}, err
	}
	var totals models.UsageTotals
	for kind, requests := range usage.Requests {
		totals.TotalRequests += requests
		switch kind {
		case UsageKindChat:
			totals.ChatRequests = requests
		case UsageKindResearch:
			totals.ResearchSessions = requests
		}
	}
	for _, tokens := range usage.Tokens {
		totals.TotalTokens += tokens
	}
	return totals, nil
}

func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func writeJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
