// Package config provides configuration loading and structs for the Sumika server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Catalog CatalogConfig `yaml:"catalog"`
	Search  SearchConfig  `yaml:"search"`
	Suggest SuggestConfig `yaml:"suggest"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the path for the history database.
type StorageConfig struct {
	HistoryPath string `yaml:"history_path"`
}

// Catalog modes.
const (
	CatalogModeLocal  = "local"
	CatalogModeRemote = "remote"
)

// CatalogConfig selects the catalog backend. Mode "local" indexes the
// property records at DataPath in memory; "remote" proxies lookups to URL.
type CatalogConfig struct {
	Mode           string `yaml:"mode"`
	DataPath       string `yaml:"data_path"`
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SearchConfig holds the platform price bounds and page size caps that
// constrain every query.
type SearchConfig struct {
	MinPrice        int `yaml:"min_price"`
	MaxPrice        int `yaml:"max_price"`
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// SuggestConfig holds the suggestion pool settings.
type SuggestConfig struct {
	PoolPath string `yaml:"pool_path"`
}

// WatchConfig holds data-file watch settings.
type WatchConfig struct {
	Enabled        *bool `yaml:"enabled"`
	DebounceMillis int   `yaml:"debounce_millis"`
}

// EnabledOrDefault returns whether to watch data files; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// Load reads and parses the config file at path, applies environment
// overrides and defaults, and expands paths. Returns an error if the file
// cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	// A .env file next to the config is optional.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	applyEnvOverrides(&cfg)

	ApplyDefaults(&cfg)

	cfg.Storage.HistoryPath = expandPath(cfg.Storage.HistoryPath, configDir)
	if cfg.Catalog.DataPath != "" {
		cfg.Catalog.DataPath = expandPath(cfg.Catalog.DataPath, configDir)
	}
	if cfg.Suggest.PoolPath != "" {
		cfg.Suggest.PoolPath = expandPath(cfg.Suggest.PoolPath, configDir)
	}

	if cfg.Catalog.Mode != CatalogModeLocal && cfg.Catalog.Mode != CatalogModeRemote {
		return nil, fmt.Errorf("invalid catalog mode %q", cfg.Catalog.Mode)
	}
	if cfg.Catalog.Mode == CatalogModeRemote && cfg.Catalog.URL == "" {
		return nil, fmt.Errorf("catalog mode %q requires a url", CatalogModeRemote)
	}

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

// applyEnvOverrides lets deployments override the file without editing it.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SUMIKA_DEBUG"); v != "" {
		cfg.Debug = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SUMIKA_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SUMIKA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SUMIKA_HISTORY_PATH"); v != "" {
		cfg.Storage.HistoryPath = v
	}
	if v := os.Getenv("SUMIKA_CATALOG_MODE"); v != "" {
		cfg.Catalog.Mode = v
	}
	if v := os.Getenv("SUMIKA_CATALOG_URL"); v != "" {
		cfg.Catalog.URL = v
	}
	if v := os.Getenv("SUMIKA_CATALOG_DATA"); v != "" {
		cfg.Catalog.DataPath = v
	}
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
