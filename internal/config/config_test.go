package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/runs.db"
  relation_index_path: "./data/indices/relations"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "runs.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	wantIdx := filepath.Join(dir, "data", "indices", "relations")
	if cfg.Storage.RelationIndexPath != wantIdx {
		t.Errorf("relation_index_path = %s, want %s", cfg.Storage.RelationIndexPath, wantIdx)
	}
}

func TestLoad_agreementSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
agreement:
  dimensions: [segments, message_relations]
  segment_strict: true
  discussion_sweep: units
  workers: 2
corpus:
  anno_suffix: ".tsv"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	a := cfg.Agreement
	if len(a.Dimensions) != 2 || a.Dimensions[1] != "message_relations" {
		t.Errorf("dimensions: got %v", a.Dimensions)
	}
	if !a.SegmentStrict || a.DiscussionSweep != "units" || a.Workers != 2 {
		t.Errorf("agreement: got %+v", a)
	}
	if cfg.Corpus.AnnoSuffix != ".tsv" || cfg.Corpus.SourcePattern != "*.xml" {
		t.Errorf("corpus: got %+v", cfg.Corpus)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Corpus.IgnoreFile != ".rstignore" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if _, err := LoadOrDefault(""); err != nil {
		t.Errorf("empty path: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Agreement.DiscussionSweep != "shared" {
		t.Errorf("default sweep: got %s", cfg.Agreement.DiscussionSweep)
	}
	if cfg.Agreement.Workers != 4 {
		t.Errorf("default workers: got %d", cfg.Agreement.Workers)
	}
	if cfg.Agreement.SegmentStrict {
		t.Error("segment_strict should default to false")
	}
	if cfg.Corpus.AnnoSuffix != ".rst" || cfg.Corpus.AnnotationFormat != "auto" {
		t.Errorf("corpus defaults: got %+v", cfg.Corpus)
	}
	if len(cfg.Watch.Extensions) != 3 || cfg.Watch.Extensions[0] != ".rst" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
	if cfg.Watch.DebounceMillis != 500 {
		t.Errorf("debounce: got %d", cfg.Watch.DebounceMillis)
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("true_returns_true", func(t *testing.T) {
		v := true
		w := &WatchConfig{Recursive: &v}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
