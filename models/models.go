package models

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a chat session is not found
var ErrSessionNotFound = errors.New("session not found")

// ErrPresetNotFound is returned when a preset is not found
var ErrPresetNotFound = errors.New("preset not found")

// ErrProviderNotFound is returned when an LLM provider is not found
var ErrProviderNotFound = errors.New("provider not found")

// SearchProvider identifies a web search backend
type SearchProvider string

const (
	SearchProviderSearxNG    SearchProvider = "searxng"
	SearchProviderBrave      SearchProvider = "brave"
	SearchProviderDuckDuckGo SearchProvider = "duckduckgo"
)

// Valid reports whether the provider name is one of the known backends.
func (p SearchProvider) Valid() bool {
	switch p {
	case SearchProviderSearxNG, SearchProviderBrave, SearchProviderDuckDuckGo:
		return true
	}
	return false
}

// ChatMessage is a single turn within a chat session
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	Sources   []Source  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSession is a persisted conversation
type ChatSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Model     string        `json:"model"`
	Preset    string        `json:"preset,omitempty"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Source is a web reference surfaced to the user alongside an answer
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Preset is a reusable system prompt
type Preset struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Description  string    `json:"description,omitempty"`
	SystemPrompt string    `json:"system_prompt"`
	Builtin      bool      `json:"builtin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Provider is an OpenAI-compatible LLM endpoint registration
type Provider struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	BaseURL    string    `json:"base_url"`
	APIKey     string    `json:"api_key,omitempty"`
	Enabled    bool      `json:"enabled"`
	Models     []string  `json:"models,omitempty"`
	LastCheck  time.Time `json:"last_check,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// UsageTotals aggregates token consumption across chat and research
type UsageTotals struct {
	TotalRequests    int64 `json:"total_requests"`
	TotalTokens      int64 `json:"total_tokens"`
	ChatRequests     int64 `json:"chat_requests"`
	ResearchSessions int64 `json:"research_sessions"`
}
