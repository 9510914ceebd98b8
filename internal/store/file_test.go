package store

import (
	"context"
	"testing"
	"time"

	"github.com/pixel-knight/pixelknight/models"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	st, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return st
}

func TestFileStoreSessionRoundTrip(t *testing.T) {
	st := newFileStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	session := models.ChatSession{ID: "s1", Title: "Rosetta Stone", Model: "gpt-4o-mini", CreatedAt: now, UpdatedAt: now}

	if err := st.CreateSession(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := st.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Rosetta Stone" {
		t.Fatalf("title = %q", got.Title)
	}
	if got.Messages == nil || len(got.Messages) != 0 {
		t.Fatalf("expected empty message slice, got %#v", got.Messages)
	}
}

func TestFileStoreGetSessionNotFound(t *testing.T) {
	st := newFileStore(t)
	if _, err := st.GetSession(context.Background(), "missing"); err != models.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestFileStoreAppendAndRewriteMessages(t *testing.T) {
	st := newFileStore(t)
	ctx := context.Background()
	if err := st.CreateSession(ctx, models.ChatSession{ID: "s1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := st.AppendMessage(ctx, "s1", models.ChatMessage{ID: "m1", Role: "user", Content: "first"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := st.AppendMessage(ctx, "s1", models.ChatMessage{ID: "m2", Role: "assistant", Content: "second"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := st.UpdateMessage(ctx, "s1", "m1", "edited"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := st.RemoveMessage(ctx, "s1", "m2"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	session, err := st.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(session.Messages) != 1 || session.Messages[0].Content != "edited" {
		t.Fatalf("unexpected messages: %+v", session.Messages)
	}
}

func TestFileStoreRewriteBumpsUpdatedAt(t *testing.T) {
	st := newFileStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return base }
	t.Cleanup(func() { nowFunc = time.Now })

	if err := st.CreateSession(ctx, models.ChatSession{ID: "s1", UpdatedAt: base.Add(-time.Hour)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.UpdateSessionTitle(ctx, "s1", "renamed"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	session, err := st.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !session.UpdatedAt.Equal(base) {
		t.Fatalf("updated_at = %v, want %v", session.UpdatedAt, base)
	}
}

func TestFileStoreListOrdersByRecency(t *testing.T) {
	st := newFileStore(t)
	ctx := context.Background()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := old.Add(48 * time.Hour)
	_ = st.CreateSession(ctx, models.ChatSession{ID: "old", UpdatedAt: old})
	_ = st.CreateSession(ctx, models.ChatSession{ID: "recent", UpdatedAt: recent})

	sessions, err := st.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "recent" {
		t.Fatalf("unexpected order: %+v", sessions)
	}
}

func TestFileStoreSearchSessions(t *testing.T) {
	st := newFileStore(t)
	ctx := context.Background()
	_ = st.CreateSession(ctx, models.ChatSession{ID: "s1", Title: "Hieroglyph decoding"})
	_ = st.CreateSession(ctx, models.ChatSession{ID: "s2", Title: "Weather", Messages: []models.ChatMessage{
		{ID: "m1", Role: "user", Content: "Tell me about the Rosetta Stone"},
	}})
	_ = st.CreateSession(ctx, models.ChatSession{ID: "s3", Title: "Cooking"})

	hits, err := st.SearchSessions(ctx, "rosetta")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "s2" {
		t.Fatalf("unexpected hits: %+v", hits)
	}

	hits, err = st.SearchSessions(ctx, "HIEROGLYPH")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "s1" {
		t.Fatalf("title search failed: %+v", hits)
	}
}

func TestFileStoreDeleteSession(t *testing.T) {
	st := newFileStore(t)
	ctx := context.Background()
	_ = st.CreateSession(ctx, models.ChatSession{ID: "s1"})
	if err := st.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteSession(ctx, "s1"); err != models.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestFileStorePresets(t *testing.T) {
	st := newFileStore(t)
	ctx := context.Background()
	preset := models.Preset{ID: "custom_pirate", Name: "Pirate", Category: "fun", SystemPrompt: "Talk like a pirate."}

	if err := st.SaveCustomPreset(ctx, preset); err != nil {
		t.Fatalf("save: %v", err)
	}
	preset.Name = "Pirate Captain"
	if err := st.SaveCustomPreset(ctx, preset); err != nil {
		t.Fatalf("resave: %v", err)
	}

	presets, err := st.ListCustomPresets(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(presets) != 1 || presets[0].Name != "Pirate Captain" {
		t.Fatalf("unexpected presets: %+v", presets)
	}

	if err := st.DeleteCustomPreset(ctx, "custom_pirate"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteCustomPreset(ctx, "custom_pirate"); err != models.ErrPresetNotFound {
		t.Fatalf("expected ErrPresetNotFound, got %v", err)
	}
}

func TestFileStoreUsageTotals(t *testing.T) {
	st := newFileStore(t)
	ctx := context.Background()
	_ = st.RecordUsage(ctx, UsageKindChat, 120)
	_ = st.RecordUsage(ctx, UsageKindChat, 80)
	_ = st.RecordUsage(ctx, UsageKindResearch, 3000)

	totals, err := st.GetUsage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if totals.TotalRequests != 3 || totals.TotalTokens != 3200 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	if totals.ChatRequests != 2 || totals.ResearchSessions != 1 {
		t.Fatalf("per-kind totals wrong: %+v", totals)
	}
}
