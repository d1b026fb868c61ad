// Package config provides configuration loading and structs for the Chajda server.
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
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Search  SearchConfig  `yaml:"search"`
	Suggest SuggestConfig `yaml:"suggest"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the concept snapshot and suggestion index.
type StorageConfig struct {
	// SnapshotPath is the SQLite concepts snapshot. Snapshots from
	// different catalog generations vary in table and column naming;
	// the schema is resolved at open time.
	SnapshotPath string `yaml:"snapshot_path"`
	// BleveIndexPath holds the suggestion term dictionary.
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// SearchConfig holds search behavior settings.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	// DedupDefault controls whether multilingual label variants are
	// collapsed (@fr preferred) unless the request says otherwise.
	DedupDefault *bool `yaml:"dedup_default"`
}

// DedupOrDefault returns the dedup default; true when unset.
func (s *SearchConfig) DedupOrDefault() bool {
	if s.DedupDefault != nil {
		return *s.DedupDefault
	}
	return true
}

// SuggestConfig holds typo-suggestion settings.
type SuggestConfig struct {
	Enabled        *bool `yaml:"enabled"`
	MaxDistance    int   `yaml:"max_distance"`
	MaxSuggestions int   `yaml:"max_suggestions"`
}

// EnabledOrDefault returns whether suggestions are on; true when unset.
func (s *SuggestConfig) EnabledOrDefault() bool {
	if s.Enabled != nil {
		return *s.Enabled
	}
	return true
}

// WatchConfig holds snapshot watch settings.
type WatchConfig struct {
	// Enabled turns on reopening the store when the snapshot file is
	// replaced on disk (e.g. a new catalog generation is dropped in).
	Enabled bool `yaml:"enabled"`
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
	cfg.Storage.SnapshotPath = expandPath(cfg.Storage.SnapshotPath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)

	return &cfg, nil
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
