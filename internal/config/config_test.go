package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed-server.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KVIDEO_CATALOG_BASE_URL", "https://catalog.kvideo.example")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.SessionIdleTTL != 30*time.Minute {
		t.Errorf("Expected default session TTL 30m, got %v", cfg.Server.SessionIdleTTL)
	}
	if cfg.History.Backend != "memory" {
		t.Errorf("Expected default backend memory, got %q", cfg.History.Backend)
	}
	if cfg.Feed.MaxQueries != 3 {
		t.Errorf("Expected default max queries 3, got %d", cfg.Feed.MaxQueries)
	}
	if cfg.Feed.CacheTTL != 30*time.Minute {
		t.Errorf("Expected default cache TTL 30m, got %v", cfg.Feed.CacheTTL)
	}
	if cfg.Catalog.UserAgent != "KVideo-Feed/1.0" {
		t.Errorf("Expected default user agent, got %q", cfg.Catalog.UserAgent)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level info, got %q", cfg.Logging.Level)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
catalog:
  base_url: https://catalog.kvideo.example
  timeout: 5s
history:
  backend: sqlite
  sqlite:
    path: /tmp/history.db
feed:
  cache_ttl: 10m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090 from file, got %d", cfg.Server.Port)
	}
	if cfg.Catalog.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s from file, got %v", cfg.Catalog.Timeout)
	}
	if cfg.History.Backend != "sqlite" || cfg.History.SQLite.Path != "/tmp/history.db" {
		t.Errorf("Expected sqlite backend from file, got %q %q", cfg.History.Backend, cfg.History.SQLite.Path)
	}
	if cfg.Feed.CacheTTL != 10*time.Minute {
		t.Errorf("Expected cache TTL 10m from file, got %v", cfg.Feed.CacheTTL)
	}
	// Unset fields keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected default host, got %q", cfg.Server.Host)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
catalog:
  base_url: https://catalog.kvideo.example
`)

	t.Setenv("KVIDEO_SERVER_PORT", "7070")
	t.Setenv("KVIDEO_SERVER_READ_TIMEOUT", "30s")
	t.Setenv("KVIDEO_LOGGING_LEVEL", "debug")
	t.Setenv("KVIDEO_HISTORY_BACKEND", "redis")
	t.Setenv("KVIDEO_HISTORY_REDIS_ADDR", "redis.internal:6380")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Expected env port 7070 to win, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Expected read timeout 30s from env, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug from env, got %q", cfg.Logging.Level)
	}
	if cfg.History.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Expected nested redis addr from env, got %q", cfg.History.Redis.Addr)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		errorMsg string
	}{
		{
			name: "missing catalog base URL",
			yaml: `
server:
  port: 8080
`,
			errorMsg: "BaseURL",
		},
		{
			name: "invalid port",
			yaml: `
server:
  port: 0
catalog:
  base_url: https://catalog.kvideo.example
`,
			errorMsg: "Port",
		},
		{
			name: "unknown history backend",
			yaml: `
catalog:
  base_url: https://catalog.kvideo.example
history:
  backend: postgres
`,
			errorMsg: "Backend",
		},
		{
			name: "unknown log level",
			yaml: `
catalog:
  base_url: https://catalog.kvideo.example
logging:
  level: loud
`,
			errorMsg: "Level",
		},
		{
			name: "redis backend without addr",
			yaml: `
catalog:
  base_url: https://catalog.kvideo.example
history:
  backend: redis
  redis:
    addr: ""
`,
			errorMsg: "history.redis.addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.yaml)

			_, err := Load(path)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error mentioning %q, got %v", tt.errorMsg, err)
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"KVIDEO_SERVER_PORT", "server.port"},
		{"KVIDEO_CATALOG_BASE_URL", "catalog.base_url"},
		{"KVIDEO_HISTORY_BACKEND", "history.backend"},
		{"KVIDEO_HISTORY_REDIS_ADDR", "history.redis.addr"},
		{"KVIDEO_HISTORY_SQLITE_PATH", "history.sqlite.path"},
		{"KVIDEO_FEED_MAX_PAGE_START", "feed.max_page_start"},
	}

	for _, tt := range tests {
		if got := envTransform(tt.key); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
