package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grapesalt/engram/internal/config"
)

func TestLoadDefaultConfigAbsentFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Model != "base" {
		t.Fatalf("unexpected default model: %q", cfg.Model)
	}
	if cfg.MinDurationS != 10 {
		t.Fatalf("unexpected default min_duration_s: %d", cfg.MinDurationS)
	}
	if cfg.WorkerCount <= 0 {
		t.Fatalf("expected positive worker count, got %d", cfg.WorkerCount)
	}
	wantDataDir := filepath.Join(tempHome, ".local", "share", "engram")
	if cfg.DataDir != wantDataDir {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.DataDir, wantDataDir)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engram.toml")
	contents := `
media_roots = ["` + filepath.Join(dir, "videos") + `"]
media_extensions = [".MP4", "mkv", "mp4"]
model = "Small"
min_duration_s = 5
worker_count = 2
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if resolved != path {
		t.Fatalf("resolved = %q, want %q", resolved, path)
	}
	if len(cfg.MediaRoots) != 1 {
		t.Fatalf("MediaRoots = %v", cfg.MediaRoots)
	}
	if len(cfg.MediaExtensions) != 2 {
		t.Fatalf("expected deduplicated extensions, got %v", cfg.MediaExtensions)
	}
	if cfg.Model != "small" {
		t.Fatalf("Model = %q, want %q", cfg.Model, "small")
	}
	if cfg.MinDurationS != 5 {
		t.Fatalf("MinDurationS = %d, want 5", cfg.MinDurationS)
	}
	if cfg.WorkerCount != 2 {
		t.Fatalf("WorkerCount = %d, want 2", cfg.WorkerCount)
	}
}

func TestValidateForIndexingRequiresMediaRoots(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateForIndexing(); err == nil {
		t.Fatal("expected error with no media roots configured")
	}
	cfg.MediaRoots = []string{"/videos"}
	if err := cfg.ValidateForIndexing(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEngramDirAndIndexDir(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = "/data"
	if cfg.EngramDir() != filepath.Join("/data", "engram") {
		t.Fatalf("EngramDir = %q", cfg.EngramDir())
	}
	if cfg.IndexDir() != filepath.Join("/data", "engram", "index") {
		t.Fatalf("IndexDir = %q", cfg.IndexDir())
	}
	if cfg.CatalogPath() != filepath.Join("/data", "engram", "catalog.db") {
		t.Fatalf("CatalogPath = %q", cfg.CatalogPath())
	}
}
