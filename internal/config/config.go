package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"sigother/internal/paths"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Config represents the complete sigother configuration
type Config struct {
	Version int `toml:"version" json:"version" yaml:"version" mapstructure:"version"`

	Roots    RootsConfig    `toml:"roots" json:"roots" yaml:"roots" mapstructure:"roots"`
	Matching MatchingConfig `toml:"matching" json:"matching" yaml:"matching" mapstructure:"matching"`
	Scan     ScanConfig     `toml:"scan" json:"scan" yaml:"scan" mapstructure:"scan"`
	Cache    CacheConfig    `toml:"cache" json:"cache" yaml:"cache" mapstructure:"cache"`
	Watch    WatchConfig    `toml:"watch" json:"watch" yaml:"watch" mapstructure:"watch"`
	Logging  LoggingConfig  `toml:"logging" json:"logging" yaml:"logging" mapstructure:"logging"`
}

// RootsConfig controls which project roots are searched
type RootsConfig struct {
	// Strategy is "first" (only the root owning the file) or "all".
	Strategy string `toml:"strategy" json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	// Extra roots, absolute or relative to the project root.
	Extra []string `toml:"extra" json:"extra" yaml:"extra" mapstructure:"extra"`
}

// MatchingConfig controls file name matching
type MatchingConfig struct {
	TestSuffixes []string `toml:"testSuffixes" json:"testSuffixes" yaml:"testSuffixes" mapstructure:"testSuffixes"`
}

// ScanConfig controls directory traversal
type ScanConfig struct {
	ExcludeVcsIgnores bool     `toml:"excludeVcsIgnores" json:"excludeVcsIgnores" yaml:"excludeVcsIgnores" mapstructure:"excludeVcsIgnores"`
	Exclude           []string `toml:"exclude" json:"exclude" yaml:"exclude" mapstructure:"exclude"`
	MaxFiles          int      `toml:"maxFiles" json:"maxFiles" yaml:"maxFiles" mapstructure:"maxFiles"`
	TimeoutMs         int      `toml:"timeoutMs" json:"timeoutMs" yaml:"timeoutMs" mapstructure:"timeoutMs"`
	SortMatches       bool     `toml:"sortMatches" json:"sortMatches" yaml:"sortMatches" mapstructure:"sortMatches"`
}

// CacheConfig contains result cache configuration
type CacheConfig struct {
	Enabled            bool `toml:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	NegativeTtlSeconds int  `toml:"negativeTtlSeconds" json:"negativeTtlSeconds" yaml:"negativeTtlSeconds" mapstructure:"negativeTtlSeconds"`
}

// WatchConfig contains file watcher configuration
type WatchConfig struct {
	DebounceMs int      `toml:"debounceMs" json:"debounceMs" yaml:"debounceMs" mapstructure:"debounceMs"`
	Ignore     []string `toml:"ignore" json:"ignore" yaml:"ignore" mapstructure:"ignore"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `toml:"format" json:"format" yaml:"format" mapstructure:"format"`
	Level  string `toml:"level" json:"level" yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Roots: RootsConfig{
			Strategy: "all",
			Extra:    []string{},
		},
		Matching: MatchingConfig{
			TestSuffixes: []string{".test", "_test", "_spec", "-spec"},
		},
		Scan: ScanConfig{
			ExcludeVcsIgnores: true,
			Exclude:           []string{},
			MaxFiles:          200000,
			TimeoutMs:         30000,
			SortMatches:       false,
		},
		Cache: CacheConfig{
			Enabled:            true,
			NegativeTtlSeconds: 60,
		},
		Watch: WatchConfig{
			DebounceMs: 500,
			Ignore: []string{
				"**/.git/**",
				"**/.sigother/**",
				"**/node_modules/**",
				"**/*.swp",
				"**/*~",
			},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// LoadResult describes where a configuration came from
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
	EnvOverrides []EnvOverride
}

// LoadConfig loads configuration from .sigother/config.toml and applies
// SIGOTHER_* environment overrides.
func LoadConfig(projectRoot string) (*Config, error) {
	result, err := LoadConfigWithDetails(projectRoot)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadConfigWithDetails is LoadConfig plus provenance. SIGOTHER_CONFIG_PATH
// replaces the standard location.
func LoadConfigWithDetails(projectRoot string) (*LoadResult, error) {
	configPath := paths.ConfigPath(projectRoot)
	if env := os.Getenv(EnvConfigPath); env != "" {
		configPath = env
	}

	result := &LoadResult{ConfigPath: configPath}

	cfg, err := LoadConfigFromPath(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = DefaultConfig()
		result.UsedDefaults = true
		result.ConfigPath = ""
	case err != nil:
		return nil, err
	}

	result.EnvOverrides, err = ApplyEnvOverrides(cfg)
	if err != nil {
		return nil, err
	}
	result.Config = cfg
	return result, nil
}

// LoadConfigFromPath reads one TOML config file on top of the defaults.
func LoadConfigFromPath(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", configPath, err)
	}
	return cfg, nil
}

// Save writes the configuration to .sigother/config.toml
func (c *Config) Save(projectRoot string) error {
	if _, err := paths.EnsureDataDir(projectRoot); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(paths.ConfigPath(projectRoot), data, 0o644)
}

// ExtraRoots resolves Roots.Extra against the project root.
func (c *Config) ExtraRoots(projectRoot string) []string {
	roots := make([]string, 0, len(c.Roots.Extra))
	for _, r := range c.Roots.Extra {
		if r == "" {
			continue
		}
		if !filepath.IsAbs(r) {
			r = filepath.Join(projectRoot, r)
		}
		roots = append(roots, filepath.Clean(r))
	}
	return roots
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}

	switch c.Roots.Strategy {
	case "first", "all":
	default:
		return &ConfigError{Field: "roots.strategy", Message: fmt.Sprintf("unknown strategy %q (want first or all)", c.Roots.Strategy)}
	}

	if len(c.Matching.TestSuffixes) == 0 {
		return &ConfigError{Field: "matching.testSuffixes", Message: "at least one suffix is required"}
	}
	for _, s := range c.Matching.TestSuffixes {
		if strings.TrimSpace(s) == "" || strings.ContainsAny(s, "/\\") {
			return &ConfigError{Field: "matching.testSuffixes", Message: fmt.Sprintf("invalid suffix %q", s)}
		}
	}

	for _, pattern := range c.Scan.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return &ConfigError{Field: "scan.exclude", Message: fmt.Sprintf("invalid glob %q", pattern)}
		}
	}
	for _, pattern := range c.Watch.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return &ConfigError{Field: "watch.ignore", Message: fmt.Sprintf("invalid glob %q", pattern)}
		}
	}

	if c.Scan.MaxFiles < 0 {
		return &ConfigError{Field: "scan.maxFiles", Message: "must not be negative"}
	}
	if c.Scan.TimeoutMs < 0 {
		return &ConfigError{Field: "scan.timeoutMs", Message: "must not be negative"}
	}
	if c.Cache.NegativeTtlSeconds < 0 {
		return &ConfigError{Field: "cache.negativeTtlSeconds", Message: "must not be negative"}
	}

	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

func parseBool(s string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(s))
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
