// Package config handles loading and saving nodetree configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/nodetree/config.yaml
//   - State:  ~/.local/state/nodetree/ (default session store)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store backends for saved sessions.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// UIConfig holds editor preferences.
type UIConfig struct {
	// PositionalAbove makes "drop above" insert directly before the target
	// instead of appending to the target's parent.
	PositionalAbove bool `yaml:"positional_above,omitempty"`
	// ShowRejections reports why a drop was refused in the status bar.
	ShowRejections bool `yaml:"show_rejections,omitempty"`
	// ExpandDepth is how many levels start expanded (default 8).
	ExpandDepth int `yaml:"expand_depth,omitempty"`
}

// SessionConfig controls optional persistence. With an empty Path every
// run starts from a lone START node.
type SessionConfig struct {
	Path     string `yaml:"path,omitempty"`
	Store    string `yaml:"store,omitempty"` // json or sqlite
	Autosave bool   `yaml:"autosave,omitempty"`
	Watch    bool   `yaml:"watch,omitempty"`
	// Discover looks for .nodetree/session.json above the working directory
	// when Path is empty.
	Discover bool `yaml:"discover,omitempty"`
	// ScanPaths are searched by --list-sessions.
	ScanPaths []string `yaml:"scan_paths,omitempty"`
	MaxDepth  int      `yaml:"max_depth,omitempty"`
}

// ExportConfig holds defaults for tree export.
type ExportConfig struct {
	Preset string `yaml:"preset,omitempty"` // compact or roomy
	Title  string `yaml:"title,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	UI      UIConfig      `yaml:"ui,omitempty"`
	Session SessionConfig `yaml:"session,omitempty"`
	Export  ExportConfig  `yaml:"export,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			ExpandDepth: 8,
		},
		Session: SessionConfig{
			Store:    StoreJSON,
			MaxDepth: 3,
		},
		Export: ExportConfig{
			Preset: "compact",
			Title:  "Node Tree",
		},
	}
}

// ConfigDir returns the XDG config directory for nodetree.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "nodetree")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nodetree")
}

// StateDir returns the XDG state directory for nodetree.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "nodetree")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "nodetree")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// normalize fills zero values and expands ~ in paths.
func (c *Config) normalize() error {
	if c.UI.ExpandDepth <= 0 {
		c.UI.ExpandDepth = DefaultConfig().UI.ExpandDepth
	}
	if c.Session.MaxDepth <= 0 {
		c.Session.MaxDepth = DefaultConfig().Session.MaxDepth
	}

	c.Session.Store = strings.ToLower(strings.TrimSpace(c.Session.Store))
	switch c.Session.Store {
	case "":
		c.Session.Store = StoreJSON
	case StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("parsing config: unknown session store %q (want json or sqlite)", c.Session.Store)
	}

	c.Session.Path = expandHome(c.Session.Path)
	for i := range c.Session.ScanPaths {
		c.Session.ScanPaths[i] = expandHome(c.Session.ScanPaths[i])
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SessionStore returns the store backend, inferring sqlite from a .db or
// .sqlite session path when the config does not say otherwise.
func (c Config) SessionStore() string {
	switch strings.ToLower(filepath.Ext(c.Session.Path)) {
	case ".db", ".sqlite", ".sqlite3":
		return StoreSQLite
	}
	if c.Session.Store == "" {
		return StoreJSON
	}
	return c.Session.Store
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
