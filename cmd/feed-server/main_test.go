package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gujimy/KVideo/internal/config"
	"github.com/gujimy/KVideo/pkg/history"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		History: config.HistoryConfig{
			Backend:      backend,
			MaxPerViewer: 50,
		},
	}
}

func TestOpenStore_Memory(t *testing.T) {
	store, closeStore, err := openStore(testConfig("memory"))
	if err != nil {
		t.Fatalf("Failed to open memory store: %v", err)
	}
	defer closeStore()

	if _, ok := store.(*history.MemoryStore); !ok {
		t.Errorf("Expected *history.MemoryStore, got %T", store)
	}
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg := testConfig("sqlite")
	cfg.History.SQLite.Path = filepath.Join(t.TempDir(), "history.db")

	store, closeStore, err := openStore(cfg)
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	defer closeStore()

	ctx := context.Background()
	rec := history.Record{ID: "v-1", Title: "Some Movie", Tag: "action", Type: "movie", WatchedAt: time.Now()}
	if err := store.Add(ctx, "viewer-1", rec); err != nil {
		t.Fatalf("Failed to add record: %v", err)
	}
	records, err := store.Recent(ctx, "viewer-1", 10)
	if err != nil {
		t.Fatalf("Failed to read records: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record, got %d", len(records))
	}
}

func TestOpenStore_Unknown(t *testing.T) {
	if _, _, err := openStore(testConfig("postgres")); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
