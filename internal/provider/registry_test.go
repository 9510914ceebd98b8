package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pixel-knight/pixelknight/internal/llm"
	"github.com/pixel-knight/pixelknight/models"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(t.TempDir(), llm.NewFactory(5*time.Second), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestRegistryAddAndGet(t *testing.T) {
	r := newRegistry(t)
	p, err := r.Add(models.Provider{Name: "Local", BaseURL: "http://localhost:11434/v1"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected generated ID")
	}
	if !p.Enabled {
		t.Fatal("new providers should start enabled")
	}
	got, err := r.Get(p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Local" {
		t.Fatalf("name = %q", got.Name)
	}
}

func TestRegistryCatalogBaseURLFillIn(t *testing.T) {
	r := newRegistry(t)
	p, err := r.Add(models.Provider{ID: "groq", Name: "Groq", APIKey: "gsk-test"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if p.BaseURL != "https://api.groq.com/openai/v1" {
		t.Fatalf("base url not filled from catalog: %q", p.BaseURL)
	}
}

func TestRegistryRejectsMissingBaseURL(t *testing.T) {
	r := newRegistry(t)
	if _, err := r.Add(models.Provider{Name: "Mystery"}); err == nil {
		t.Fatal("expected error for provider without base_url")
	}
}

func TestRegistryPersistsAcrossReloads(t *testing.T) {
	dir := t.TempDir()
	factory := llm.NewFactory(5 * time.Second)
	r1, err := NewRegistry(dir, factory, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	p, err := r1.Add(models.Provider{Name: "Local", BaseURL: "http://localhost:11434/v1"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	r2, err := NewRegistry(dir, factory, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, err := r2.Get(p.ID)
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if got.BaseURL != "http://localhost:11434/v1" {
		t.Fatalf("base url lost on reload: %q", got.BaseURL)
	}
}

func TestRegistryUpdateKeepsAPIKey(t *testing.T) {
	r := newRegistry(t)
	p, _ := r.Add(models.Provider{Name: "Local", BaseURL: "http://localhost:11434/v1", APIKey: "secret"})

	updated, err := r.Update(p.ID, models.Provider{Name: "Renamed"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Renamed" || updated.APIKey != "secret" {
		t.Fatalf("update clobbered fields: %+v", updated)
	}
}

func TestRegistryToggleAndClientFor(t *testing.T) {
	r := newRegistry(t)
	p, _ := r.Add(models.Provider{Name: "Local", BaseURL: "http://localhost:11434/v1"})

	if _, err := r.ClientFor(p.ID); err != nil {
		t.Fatalf("enabled provider should yield a client: %v", err)
	}
	if _, err := r.SetEnabled(p.ID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if _, err := r.ClientFor(p.ID); err == nil {
		t.Fatal("disabled provider should not yield a client")
	}
}

func TestRegistryRemove(t *testing.T) {
	r := newRegistry(t)
	p, _ := r.Add(models.Provider{Name: "Local", BaseURL: "http://localhost:11434/v1"})
	if err := r.Remove(context.Background(), p.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := r.Get(p.ID); err != models.ErrProviderNotFound {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
	if err := r.Remove(context.Background(), p.ID); err != models.ErrProviderNotFound {
		t.Fatalf("double remove: %v", err)
	}
}

func TestRegistryTestRecordsModels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/models" {
			http.NotFound(w, req)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{{"id": "llama3"}, {"id": "mistral"}},
		})
	}))
	defer ts.Close()

	r := newRegistry(t)
	p, _ := r.Add(models.Provider{Name: "Local", BaseURL: ts.URL})

	result, err := r.Test(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	if !result.OK || len(result.Models) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, _ := r.Get(p.ID)
	if len(got.Models) != 2 || got.LastCheck.IsZero() {
		t.Fatalf("model list not recorded: %+v", got)
	}
}

func TestRegistryTestReportsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "no", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	r := newRegistry(t)
	p, _ := r.Add(models.Provider{Name: "Flaky", BaseURL: ts.URL})

	result, err := r.Test(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	if result.OK || result.Error == "" {
		t.Fatalf("expected failed result, got %+v", result)
	}
}

func TestCatalogLookup(t *testing.T) {
	if _, ok := CatalogEntryByID("openrouter"); !ok {
		t.Fatal("openrouter missing from catalog")
	}
	if _, ok := CatalogEntryByID("nonsense"); ok {
		t.Fatal("unexpected catalog hit")
	}
	if len(Catalog()) != 8 {
		t.Fatalf("catalog size = %d", len(Catalog()))
	}
}
