// Package config loads bvm settings from YAML, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/bvm/internal/installer"
	"github.com/blackwell-systems/bvm/internal/releases"
)

// Environment variables that override the config file.
const (
	EnvRoot    = "BVM_ROOT"
	EnvFeedURL = "BVM_FEED_URL"
)

// Dir returns the bvm config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/bvm if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "bvm"), nil
}

// StateDir returns the bvm state directory, respecting XDG_STATE_HOME.
// Defaults to ~/.local/state/bvm.
func StateDir() (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "bvm"), nil
}

// DefaultPath returns the config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Config holds the resolved settings.
type Config struct {
	// Root is the directory holding one subdirectory per version.
	Root string `yaml:"root"`
	// FeedURL is the paginated release listing.
	FeedURL string `yaml:"feed_url"`
	// InstallCommand is run through bash; {{version}} is substituted.
	InstallCommand string `yaml:"install_command"`
	// PayloadDir is where the install command leaves the runtime.
	PayloadDir string `yaml:"payload_dir"`
	// BinSubpath is the executable directory relative to a version directory.
	BinSubpath string `yaml:"bin_subpath"`
	// HTTPTimeout bounds one release page fetch.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	// HistoryDB is the SQLite install history.
	HistoryDB string `yaml:"history_db"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults(home, stateDir string) Config {
	return Config{
		Root:           filepath.Join(home, "bvm"),
		FeedURL:        releases.DefaultFeedURL,
		InstallCommand: installer.DefaultCommand,
		PayloadDir:     filepath.Join(home, ".bun"),
		BinSubpath:     ".bun/bin",
		HTTPTimeout:    30 * time.Second,
		HistoryDB:      filepath.Join(stateDir, "history.db"),
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error. Values in the file
// may start with ~/ to refer to the home directory. Paths are made absolute
// against the working directory.
func Load(path string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	stateDir, err := StateDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get state directory: %w", err)
	}
	cfg := Defaults(home, stateDir)

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvRoot); v != "" {
		cfg.Root = v
	}
	if v := os.Getenv(EnvFeedURL); v != "" {
		cfg.FeedURL = v
	}

	for _, p := range []*string{&cfg.Root, &cfg.PayloadDir, &cfg.HistoryDB} {
		if *p, err = ResolvePath(*p, home); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Root == "" {
		return errors.New("config: root must not be empty")
	}
	if !strings.Contains(c.InstallCommand, "{{version}}") {
		return errors.New("config: install_command must contain {{version}}")
	}
	if c.BinSubpath == "" {
		return errors.New("config: bin_subpath must not be empty")
	}
	if c.HTTPTimeout < 0 {
		return errors.New("config: http_timeout must not be negative")
	}
	return nil
}

// ResolvePath expands a leading ~ to home and makes path absolute. The empty
// path stays empty.
func ResolvePath(path, home string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(expandHome(path, home))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
