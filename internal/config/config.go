// Package config reads and writes ~/.config/nova/config.yaml and merges it with
// flags, environment and the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/novaplanner/nova/internal/constants"
	"github.com/novaplanner/nova/internal/keyring"
	"github.com/novaplanner/nova/internal/planner"
)

// RemoteKeyring makes the remote connection string come from the OS keyring.
const RemoteKeyring = "keyring"

type Config struct {
	Local         string `yaml:"local"`
	Remote        string `yaml:"remote"`
	UserID        string `yaml:"user_id,omitempty"`
	DefaultFilter string `yaml:"default_filter"`
	DefaultSort   string `yaml:"default_sort"`
	Debug         bool   `yaml:"debug"`

	// RemoteFromKeyring is set by Resolve when Remote was read from the keyring.
	RemoteFromKeyring bool `yaml:"-"`
}

// Overrides are command-line values. Empty strings leave the lower layers alone.
type Overrides struct {
	Local  string
	Remote string
	UserID string
	Debug  bool
}

var (
	userIDFromKeyring     = keyring.GetUserID
	connStringFromKeyring = keyring.GetConnectionString
)

func Default() Config {
	return Config{
		Local:         constants.DefaultCachePath,
		Remote:        constants.RemoteNone,
		DefaultFilter: planner.FilterAll.String(),
		DefaultSort:   planner.SortManual.String(),
	}
}

func DefaultPath() string {
	return ExpandPath(constants.DefaultConfigFile)
}

// ExpandPath replaces a leading ~ with the home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// Load reads the file at path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML with owner-only permissions.
func (c Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := planner.ParseFilterState(c.DefaultFilter); err != nil {
		return fmt.Errorf("default_filter: %w", err)
	}
	if _, err := planner.ParseSortOrder(c.DefaultSort); err != nil {
		return fmt.Errorf("default_sort: %w", err)
	}
	return nil
}

// Filter returns the default filter state.
func (c Config) Filter() planner.FilterState {
	f, _ := planner.ParseFilterState(c.DefaultFilter)
	return f
}

// Sort returns the default sort order.
func (c Config) Sort() planner.SortOrder {
	s, _ := planner.ParseSortOrder(c.DefaultSort)
	return s
}

// CacheDir is the directory holding the local cache, logs, backups and lockfile.
func (c Config) CacheDir() string {
	return filepath.Dir(ExpandPath(c.Local))
}

// Resolve layers, lowest first: defaults, the config file at path, environment,
// flags. The keyring then fills a missing user id and a keyring-backed remote.
func Resolve(path string, o Overrides) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}

	if v := os.Getenv(constants.EnvUserID); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv(constants.EnvRemote); v != "" {
		cfg.Remote = v
	}

	if o.Local != "" {
		cfg.Local = o.Local
	}
	if o.Remote != "" {
		cfg.Remote = o.Remote
	}
	if o.UserID != "" {
		cfg.UserID = o.UserID
	}
	if o.Debug {
		cfg.Debug = true
	}

	cfg.Local = ExpandPath(cfg.Local)
	if cfg.Remote == "" {
		cfg.Remote = constants.RemoteNone
	}

	if cfg.UserID == "" {
		if id, err := userIDFromKeyring(); err == nil {
			cfg.UserID = id
		}
	}
	if cfg.Remote == RemoteKeyring {
		connStr, err := connStringFromKeyring()
		if err != nil {
			return cfg, fmt.Errorf("remote is set to keyring but no connection string is stored: %w", err)
		}
		cfg.Remote = connStr
		cfg.RemoteFromKeyring = true
	}
	return cfg, nil
}
