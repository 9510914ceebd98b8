package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(writeConfig(t, `{}`))

	if cfg.Server.Address != ":10001" {
		t.Errorf("server address = %q", cfg.Server.Address)
	}
	if cfg.LLM.DefaultModel != "gpt-4o-mini" {
		t.Errorf("default model = %q", cfg.LLM.DefaultModel)
	}
	if cfg.LLM.Timeout != 120*time.Second {
		t.Errorf("llm timeout = %v", cfg.LLM.Timeout)
	}
	if cfg.Research.MaxIterations != 5 {
		t.Errorf("max iterations = %d", cfg.Research.MaxIterations)
	}
	if cfg.Storage.Postgres.Enabled() {
		t.Error("postgres should be disabled by default")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("PIXELKNIGHT_LLM_DEFAULT_MODEL", "llama-3.1-8b-instant")
	t.Setenv("PIXELKNIGHT_SEARCH_MAX_RESULTS", "9")

	cfg := LoadConfig(writeConfig(t, `{}`))

	if cfg.LLM.DefaultModel != "llama-3.1-8b-instant" {
		t.Errorf("default model = %q", cfg.LLM.DefaultModel)
	}
	if cfg.Search.MaxResults != 9 {
		t.Errorf("max results = %d", cfg.Search.MaxResults)
	}
}

func TestLoadConfigFileValues(t *testing.T) {
	cfg := LoadConfig(writeConfig(t, `{
		"llm": {"base_url": "http://localhost:11434/v1", "default_model": "qwen2.5"},
		"storage": {"postgres": {"host": "db", "dbname": "pixelknight", "user": "pk", "password": "pw"}}
	}`))

	if cfg.LLM.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("base url = %q", cfg.LLM.BaseURL)
	}
	if !cfg.Storage.Postgres.Enabled() {
		t.Fatal("postgres should be enabled")
	}
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	want := "postgres://pk:pw@db:5432/pixelknight?sslmode=disable"
	if dsn != want {
		t.Errorf("dsn = %q, want %q", dsn, want)
	}
}

func TestPostgresDSNPrefersURL(t *testing.T) {
	p := PostgresConfig{URL: "postgres://u:p@h:5433/d", Host: "ignored", DBName: "ignored"}
	dsn, err := p.DSN()
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	if dsn != "postgres://u:p@h:5433/d" {
		t.Errorf("dsn = %q", dsn)
	}
}

func TestPostgresDSNUnconfigured(t *testing.T) {
	if _, err := (PostgresConfig{}).DSN(); err == nil {
		t.Fatal("expected error for unconfigured postgres")
	}
}

func TestRedisAddrDefaultPort(t *testing.T) {
	r := RedisConfig{Host: "cache"}
	if got := r.Addr(); got != "cache:6379" {
		t.Errorf("addr = %q", got)
	}
	r.Port = "6380"
	if got := r.Addr(); got != "cache:6380" {
		t.Errorf("addr = %q", got)
	}
}
