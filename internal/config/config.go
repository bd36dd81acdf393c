package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Debug button modes for the HTML injection middleware.
const (
	DebugButtonAlways     = "always"
	DebugButtonErrorsOnly = "errors-only"
	DebugButtonOff        = "off"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	ListenAddr string

	// DatabasePath is the SQLite file backing the error store.
	DatabasePath string

	// Enabled turns error tracking on or off globally. When false,
	// every category is treated as disabled and nothing is stored.
	Enabled bool

	// LogToConsole controls the one-line summary emitted on every
	// stored error.
	LogToConsole bool

	// DebugButton controls the floating debug button injected into
	// HTML responses: "always", "errors-only" or "off".
	DebugButton string

	// CategoryFlags holds per-category enable overrides from
	// config.yaml. Categories absent from the map default to enabled.
	CategoryFlags map[string]bool

	// CustomCategories maps extra category keys to display labels,
	// merged over the built-in defaults.
	CustomCategories map[string]string
}

// fileConfig mirrors the error_logging block of config.yaml.
type fileConfig struct {
	ErrorLogging struct {
		Enabled          *bool             `yaml:"enabled"`
		DatabasePath     string            `yaml:"database_path"`
		LogToConsole     *bool             `yaml:"log_to_console"`
		Categories       map[string]bool   `yaml:"categories"`
		CustomCategories map[string]string `yaml:"custom_categories"`
	} `yaml:"error_logging"`
}

// Load reads configuration from environment variables and, if present,
// a config.yaml file. Environment variables win over file values.
func Load() *Config {
	cfg := &Config{
		ListenAddr:       getenv("APP_LISTEN_ADDR", ":5100"),
		DatabasePath:     "data/error_log.db",
		Enabled:          true,
		LogToConsole:     true,
		DebugButton:      getenv("APP_DEBUG_BUTTON", DebugButtonErrorsOnly),
		CategoryFlags:    map[string]bool{},
		CustomCategories: map[string]string{},
	}

	applyFile(cfg, os.Getenv("APP_CONFIG_PATH"))

	if v := os.Getenv("APP_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("APP_TRACKING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		}
	}

	switch cfg.DebugButton {
	case DebugButtonAlways, DebugButtonErrorsOnly, DebugButtonOff:
	default:
		cfg.DebugButton = DebugButtonErrorsOnly
	}

	return cfg
}

// applyFile merges the first readable config.yaml into cfg. Search order
// matches the original deployment layout: explicit path, ./config.yaml,
// ./config/config.yaml. Unreadable or malformed files are skipped.
func applyFile(cfg *Config, explicit string) {
	paths := []string{}
	if explicit != "" {
		paths = append(paths, explicit)
	}
	paths = append(paths, "config.yaml", filepath.Join("config", "config.yaml"))

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			continue
		}
		el := fc.ErrorLogging
		if el.Enabled != nil {
			cfg.Enabled = *el.Enabled
		}
		if el.DatabasePath != "" {
			cfg.DatabasePath = el.DatabasePath
		}
		if el.LogToConsole != nil {
			cfg.LogToConsole = *el.LogToConsole
		}
		for k, v := range el.Categories {
			cfg.CategoryFlags[k] = v
		}
		for k, v := range el.CustomCategories {
			cfg.CustomCategories[k] = v
		}
		return
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
