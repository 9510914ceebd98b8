package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pixel-knight/pixelknight/internal/llm"
	"github.com/pixel-knight/pixelknight/models"
)

// Registry manages the set of configured LLM providers. The list is held in
// memory and persisted to a JSON file under the data directory, so the
// registry works the same whether sessions live in Postgres or on disk.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]models.Provider
	path      string
	factory   *llm.Factory
	cache     *ModelCache
	logger    *log.Logger
}

// NewRegistry loads persisted providers from dataDir. cache may be nil when
// Redis is not configured.
func NewRegistry(dataDir string, factory *llm.Factory, cache *ModelCache) (*Registry, error) {
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	r := &Registry{
		providers: map[string]models.Provider{},
		path:      filepath.Join(dataDir, "providers.json"),
		factory:   factory,
		cache:     cache,
		logger:    log.New(log.Writer(), "[PROVIDER] ", log.LstdFlags),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) load() error {
	b, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var list []models.Provider
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("decode providers file: %w", err)
	}
	for _, p := range list {
		r.providers[p.ID] = p
	}
	return nil
}

func (r *Registry) persist() error {
	list := r.sorted()
	b, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

func (r *Registry) sorted() []models.Provider {
	list := make([]models.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}

// List returns all configured providers ordered by creation time.
func (r *Registry) List() []models.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted()
}

// Get returns a provider by ID.
func (r *Registry) Get(id string) (models.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return models.Provider{}, models.ErrProviderNotFound
	}
	return p, nil
}

// Add registers a provider. A missing ID gets a fresh UUID; an ID matching a
// catalog preset inherits the preset's base URL when none is given.
func (r *Registry) Add(p models.Provider) (models.Provider, error) {
	if p.Name == "" {
		return models.Provider{}, fmt.Errorf("provider name required")
	}
	if entry, ok := CatalogEntryByID(p.ID); ok && p.BaseURL == "" {
		p.BaseURL = entry.BaseURL
	}
	if p.BaseURL == "" {
		return models.Provider{}, fmt.Errorf("provider base_url required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt = now
	p.ModifiedAt = now
	p.Enabled = true

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.ID]; exists {
		return models.Provider{}, fmt.Errorf("provider %s already exists", p.ID)
	}
	r.providers[p.ID] = p
	if err := r.persist(); err != nil {
		delete(r.providers, p.ID)
		return models.Provider{}, err
	}
	r.logger.Printf("added provider %s (%s)", p.Name, p.BaseURL)
	return p, nil
}

// Update modifies an existing provider. Empty fields keep their current
// values so a PUT without an api_key does not wipe the stored key.
func (r *Registry) Update(id string, update models.Provider) (models.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return models.Provider{}, models.ErrProviderNotFound
	}
	if update.Name != "" {
		p.Name = update.Name
	}
	if update.BaseURL != "" {
		p.BaseURL = update.BaseURL
	}
	if update.APIKey != "" {
		p.APIKey = update.APIKey
	}
	p.ModifiedAt = time.Now()
	r.providers[id] = p
	if err := r.persist(); err != nil {
		return models.Provider{}, err
	}
	return p, nil
}

// SetEnabled toggles a provider on or off without touching its credentials.
func (r *Registry) SetEnabled(id string, enabled bool) (models.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return models.Provider{}, models.ErrProviderNotFound
	}
	p.Enabled = enabled
	p.ModifiedAt = time.Now()
	r.providers[id] = p
	if err := r.persist(); err != nil {
		return models.Provider{}, err
	}
	return p, nil
}

// Remove deletes a provider and drops its cached model list.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[id]; !ok {
		return models.ErrProviderNotFound
	}
	delete(r.providers, id)
	if err := r.persist(); err != nil {
		return err
	}
	r.cache.Invalidate(ctx, id)
	return nil
}

// TestResult reports the outcome of a provider connection check.
type TestResult struct {
	OK         bool     `json:"ok"`
	Models     []string `json:"models,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// Test calls the provider's models endpoint and records the result. A
// successful check refreshes the cached model list.
func (r *Registry) Test(ctx context.Context, id string) (TestResult, error) {
	p, err := r.Get(id)
	if err != nil {
		return TestResult{}, err
	}
	start := time.Now()
	client := r.factory.Client(p.BaseURL, p.APIKey)
	ids, err := client.ListModels(ctx)
	result := TestResult{DurationMS: time.Since(start).Milliseconds()}
	if err != nil {
		result.Error = err.Error()
	} else {
		result.OK = true
		result.Models = ids
		r.cache.Put(ctx, id, ids)
	}

	r.mu.Lock()
	if cur, ok := r.providers[id]; ok {
		cur.Models = result.Models
		cur.LastCheck = time.Now()
		r.providers[id] = cur
		_ = r.persist()
	}
	r.mu.Unlock()
	return result, nil
}

// Models returns the model list for a provider, serving from the Redis cache
// when possible and falling back to a live call.
func (r *Registry) Models(ctx context.Context, id string) ([]string, error) {
	p, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if ids, ok := r.cache.Get(ctx, id); ok {
		return ids, nil
	}
	client := r.factory.Client(p.BaseURL, p.APIKey)
	ids, err := client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models for %s: %w", p.Name, err)
	}
	r.cache.Put(ctx, id, ids)
	return ids, nil
}

// AllModels aggregates enabled providers' model lists, prefixing each model
// with the provider name when more than one provider is enabled.
func (r *Registry) AllModels(ctx context.Context) []string {
	providers := r.List()
	var enabled []models.Provider
	for _, p := range providers {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	var out []string
	for _, p := range enabled {
		ids, err := r.Models(ctx, p.ID)
		if err != nil {
			r.logger.Printf("listing models for %s: %v", p.Name, err)
			continue
		}
		for _, id := range ids {
			if len(enabled) > 1 {
				out = append(out, p.Name+"/"+id)
			} else {
				out = append(out, id)
			}
		}
	}
	return out
}

// ClientFor returns an LLM client for the given provider, or an error when
// the provider is unknown or disabled.
func (r *Registry) ClientFor(id string) (*llm.Client, error) {
	p, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if !p.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", p.Name)
	}
	return r.factory.Client(p.BaseURL, p.APIKey), nil
}
