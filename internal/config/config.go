// Package config provides configuration loading and structs for rstagree.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Agreement AgreementConfig `yaml:"agreement"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the run database and the relation index.
type StorageConfig struct {
	DatabasePath      string `yaml:"database_path"`
	RelationIndexPath string `yaml:"relation_index_path"`
}

// AgreementConfig holds the defaults of a measurement.
type AgreementConfig struct {
	// Dimensions lists the measured dimensions; empty means all.
	Dimensions       []string `yaml:"dimensions"`
	SegmentStrict    bool     `yaml:"segment_strict"`
	OutputDifference bool     `yaml:"output_difference"`
	// DiscussionSweep is "shared" or "units".
	DiscussionSweep  string   `yaml:"discussion_sweep"`
	Workers          int      `yaml:"workers"`
	NucleusRelations []string `yaml:"nucleus_relations"`
}

// CorpusConfig describes how source and annotation files are paired.
type CorpusConfig struct {
	SourcePattern    string `yaml:"source_pattern"`
	AnnoSuffix       string `yaml:"anno_suffix"`
	AnnotationFormat string `yaml:"annotation_format"`
	IgnoreFile       string `yaml:"ignore_file"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Extensions []string `yaml:"extensions"`
	Recursive  *bool    `yaml:"recursive"`
	// DebounceMillis groups bursts of file events into one re-measurement.
	DebounceMillis int `yaml:"debounce_ms"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.RelationIndexPath = expandPath(cfg.Storage.RelationIndexPath, configDir)

	return &cfg, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty or
// the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
