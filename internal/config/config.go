package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const Version = "0.1.0"

// LocalConfigName is looked up in the working directory before the global
// config file.
const LocalConfigName = "hunkline.toml"

type Config struct {
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`

	Diff     DiffConfig     `toml:"diff"`
	Render   RenderConfig   `toml:"render"`
	Conflict ConflictConfig `toml:"conflict"`

	// Resolved at runtime (not in TOML).
	BaseDir string `toml:"-"`
	Path    string `toml:"-"`
}

type DiffConfig struct {
	// ContextLines and RenameDetection are left to git's own configuration
	// when unset.
	ContextLines    *int  `toml:"context_lines"`
	RenameDetection *bool `toml:"rename_detection"`
	MaxWorkers      int   `toml:"max_workers"`
}

type RenderConfig struct {
	SyntaxHighlight bool   `toml:"syntax_highlight"`
	Style           string `toml:"style"`
	TabWidth        int    `toml:"tab_width"`
}

type ConflictConfig struct {
	Style string `toml:"style"`
}

// Load reads the config at path, applies defaults and the environment, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown config key", "path", path, "key", key.String())
	}
	cfg.BaseDir = filepath.Dir(path)
	cfg.Path = path
	applyDefaults(cfg)
	applyEnv(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	resolvePaths(cfg)
	return cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() (*Config, error) {
	cfg := &Config{}
	if wd, err := os.Getwd(); err == nil {
		cfg.BaseDir = wd
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	resolvePaths(cfg)
	return cfg, nil
}

// Resolve picks the config file to load: the explicit path if given, else
// ./hunkline.toml, else the global config file. It returns "" when none of
// the implicit locations exist. An explicit path must exist.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config %s: %w", explicit, err)
		}
		return explicit, nil
	}
	candidates := []string{LocalConfigName}
	if global, err := GlobalConfigPath(); err == nil {
		candidates = append(candidates, global)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat config %s: %w", c, err)
		}
	}
	return "", nil
}

// LoadResolved loads the config selected by Resolve, falling back to
// defaults when there is none.
func LoadResolved(explicit string) (*Config, error) {
	path, err := Resolve(explicit)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Default()
	}
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		if d, err := DataDir(); err == nil {
			cfg.DBPath = filepath.Join(d, "hunkline.db")
		} else {
			cfg.DBPath = "hunkline.db"
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Render.Style == "" {
		cfg.Render.Style = "monokai"
	}
	if cfg.Render.TabWidth == 0 {
		cfg.Render.TabWidth = 4
	}
	if cfg.Conflict.Style == "" {
		cfg.Conflict.Style = "merge"
	}
}

// applyEnv lets HUNKLINE_LOG_LEVEL win over the file.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("HUNKLINE_LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
}

func validate(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log_level: %q", cfg.LogLevel)
	}
	if cfg.Diff.ContextLines != nil && *cfg.Diff.ContextLines < 0 {
		return fmt.Errorf("invalid diff.context_lines %d: must be >= 0", *cfg.Diff.ContextLines)
	}
	if cfg.Diff.MaxWorkers < 0 {
		return fmt.Errorf("invalid diff.max_workers %d: must be >= 0", cfg.Diff.MaxWorkers)
	}
	if cfg.Render.TabWidth < 1 || cfg.Render.TabWidth > 16 {
		return fmt.Errorf("invalid render.tab_width %d: must be between 1 and 16", cfg.Render.TabWidth)
	}
	switch cfg.Conflict.Style {
	case "merge", "diff3", "zdiff3":
	default:
		return fmt.Errorf("unsupported conflict.style: %q (must be merge, diff3 or zdiff3)", cfg.Conflict.Style)
	}
	return nil
}

func resolvePaths(cfg *Config) {
	cfg.DBPath = absPath(cfg.BaseDir, cfg.DBPath)
}

func absPath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func (cfg *Config) SlogLevel() slog.Level {
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Encode writes cfg as TOML, for `hl config show`.
func (cfg *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}
