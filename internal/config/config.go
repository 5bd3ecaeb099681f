// Package config handles elq configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aidanlsb/elements/internal/atomicfile"
)

// EnvPath names the environment variable that overrides the config location.
const EnvPath = "ELEMENTS_CONFIG"

// Defaults applied when a key is absent.
const (
	DefaultLocale = "en-us"
	DefaultLimit  = 100
)

var localePattern = regexp.MustCompile(`^[a-z]{2,3}(-[a-z0-9]{2,8})*$`)

// Config represents the elq configuration file.
type Config struct {
	// Database is the SQLite file holding the element store.
	Database string `toml:"database"`

	// PrimaryLocale is used for kinds that are not localized and when no
	// locale is requested.
	PrimaryLocale string `toml:"primary_locale"`

	// Locales lists every locale the site serves. The primary locale is
	// always first.
	Locales []string `toml:"locales"`

	// StrictCriteria makes unknown criteria attributes and field handles an
	// error instead of being ignored.
	StrictCriteria bool `toml:"strict_criteria"`

	// DefaultLimit caps queries that do not set a limit. Zero means the
	// built-in default; negative means unlimited.
	DefaultLimit int `toml:"default_limit"`

	Log    LogConfig    `toml:"log"`
	Audit  AuditConfig  `toml:"audit"`
	Assets AssetsConfig `toml:"assets"`
	UI     UIConfig     `toml:"ui"`

	// path is the file the config was read from, if any.
	path string
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	// Level is a zerolog level name (debug, info, warn, error).
	Level string `toml:"level"`
	// Format is "json" or "console". Empty picks console on a terminal.
	Format string `toml:"format"`
	// File sends logs to a file instead of stderr.
	File string `toml:"file"`
}

// AuditConfig controls the append-only mutation log.
type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// AssetsConfig locates the files behind local asset sources.
type AssetsConfig struct {
	// Root is the directory local asset sources are resolved against.
	Root string `toml:"root"`
}

// UIConfig controls terminal rendering.
type UIConfig struct {
	// Accent is an ANSI color code or hex color; "none" disables it.
	Accent string `toml:"accent"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults("")
	return cfg
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults(filepath.Dir(path))
	cfg.path = path
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Parse decodes a config from TOML text. Relative paths resolve against dir.
func Parse(data, dir string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults(dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults(dir string) {
	c.PrimaryLocale = strings.ToLower(strings.TrimSpace(c.PrimaryLocale))
	if c.PrimaryLocale == "" {
		if len(c.Locales) > 0 {
			c.PrimaryLocale = strings.ToLower(strings.TrimSpace(c.Locales[0]))
		} else {
			c.PrimaryLocale = DefaultLocale
		}
	}

	locales := []string{c.PrimaryLocale}
	seen := map[string]bool{c.PrimaryLocale: true}
	for _, l := range c.Locales {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		locales = append(locales, l)
	}
	c.Locales = locales

	if c.DefaultLimit == 0 {
		c.DefaultLimit = DefaultLimit
	}
	if c.Database == "" {
		c.Database = "elements.db"
	}
	c.Database = resolve(dir, c.Database)
	if c.Audit.Enabled && c.Audit.Path == "" {
		c.Audit.Path = filepath.Join(filepath.Dir(c.Database), "audit.log")
	}
	c.Audit.Path = resolve(dir, c.Audit.Path)
	c.Log.File = resolve(dir, c.Log.File)
	c.Assets.Root = resolve(dir, c.Assets.Root)
}

func resolve(dir, p string) string {
	if p == "" || dir == "" || filepath.IsAbs(p) {
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return filepath.Join(dir, p)
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	for _, l := range c.Locales {
		if !localePattern.MatchString(l) {
			return fmt.Errorf("invalid locale %q", l)
		}
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log format %q (expected json or console)", c.Log.Format)
	}
	return nil
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// HasLocale reports whether locale is one the site serves.
func (c *Config) HasLocale(locale string) bool {
	for _, l := range c.Locales {
		if l == locale {
			return true
		}
	}
	return false
}

// DefaultPath returns the config file path.
// $ELEMENTS_CONFIG wins, then ~/.config/elq/config.toml (XDG style),
// then the OS-specific location.
func DefaultPath() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}

	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "elq", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "elq", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}

const defaultConfig = `# elq configuration

# SQLite database holding elements (relative to this file)
database = "elements.db"

# primary_locale = "en-us"
# locales = ["en-us", "de"]

# Reject unknown criteria attributes instead of ignoring them
# strict_criteria = false

# default_limit = 100

# [log]
# level = "info"
# format = "console"
# file = "elq.log"

# [audit]
# enabled = true
# path = "audit.log"

# [assets]
# root = "assets"

# [ui]
# accent = "#A78BFA"
`

// CreateDefault writes a commented default config to path if none exists.
func CreateDefault(path string) (string, error) {
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := atomicfile.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
