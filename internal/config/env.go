package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// EnvConfigPath points LoadConfigWithDetails at a different config file.
const EnvConfigPath = "SIGOTHER_CONFIG_PATH"

// EnvOverride records one environment variable that changed the config
type EnvOverride struct {
	EnvVar string `json:"envVar" yaml:"envVar"`
	Path   string `json:"path" yaml:"path"`
	Value  string `json:"value" yaml:"value"`
}

type envBinding struct {
	path  string
	apply func(cfg *Config, value string) error
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		*field(cfg) = n
		return nil
	}
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		*field(cfg) = b
		return nil
	}
}

func stringSetter(field func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		*field(cfg) = strings.TrimSpace(value)
		return nil
	}
}

func listSetter(field func(*Config) *[]string) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		*field(cfg) = parseList(value)
		return nil
	}
}

var envBindings = map[string]envBinding{
	"SIGOTHER_ROOTS_STRATEGY": {"roots.strategy", stringSetter(func(c *Config) *string { return &c.Roots.Strategy })},
	"SIGOTHER_ROOTS_EXTRA":    {"roots.extra", listSetter(func(c *Config) *[]string { return &c.Roots.Extra })},

	"SIGOTHER_MATCHING_TEST_SUFFIXES": {"matching.testSuffixes", listSetter(func(c *Config) *[]string { return &c.Matching.TestSuffixes })},

	"SIGOTHER_SCAN_EXCLUDE_VCS_IGNORES": {"scan.excludeVcsIgnores", boolSetter(func(c *Config) *bool { return &c.Scan.ExcludeVcsIgnores })},
	"SIGOTHER_SCAN_EXCLUDE":             {"scan.exclude", listSetter(func(c *Config) *[]string { return &c.Scan.Exclude })},
	"SIGOTHER_SCAN_MAX_FILES":           {"scan.maxFiles", intSetter(func(c *Config) *int { return &c.Scan.MaxFiles })},
	"SIGOTHER_SCAN_TIMEOUT_MS":          {"scan.timeoutMs", intSetter(func(c *Config) *int { return &c.Scan.TimeoutMs })},
	"SIGOTHER_SCAN_SORT_MATCHES":        {"scan.sortMatches", boolSetter(func(c *Config) *bool { return &c.Scan.SortMatches })},

	"SIGOTHER_CACHE_ENABLED":              {"cache.enabled", boolSetter(func(c *Config) *bool { return &c.Cache.Enabled })},
	"SIGOTHER_CACHE_NEGATIVE_TTL_SECONDS": {"cache.negativeTtlSeconds", intSetter(func(c *Config) *int { return &c.Cache.NegativeTtlSeconds })},

	"SIGOTHER_WATCH_DEBOUNCE_MS": {"watch.debounceMs", intSetter(func(c *Config) *int { return &c.Watch.DebounceMs })},

	"SIGOTHER_LOG_FORMAT": {"logging.format", stringSetter(func(c *Config) *string { return &c.Logging.Format })},
	"SIGOTHER_LOG_LEVEL":  {"logging.level", stringSetter(func(c *Config) *string { return &c.Logging.Level })},
}

// ApplyEnvOverrides applies every set SIGOTHER_* variable to cfg and returns
// the ones that took effect. Values that fail to parse leave cfg untouched
// and are reported together as *ConfigError values.
func ApplyEnvOverrides(cfg *Config) ([]EnvOverride, error) {
	var applied []EnvOverride
	var errs []error
	for _, name := range GetSupportedEnvVars() {
		value, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		binding := envBindings[name]
		if err := binding.apply(cfg, value); err != nil {
			errs = append(errs, &ConfigError{
				Field:   binding.path,
				Message: fmt.Sprintf("%s=%q is not valid: %v", name, value, err),
			})
			continue
		}
		applied = append(applied, EnvOverride{EnvVar: name, Path: binding.path, Value: value})
	}
	return applied, errors.Join(errs...)
}

// GetSupportedEnvVars lists the override variables in sorted order.
func GetSupportedEnvVars() []string {
	names := make([]string, 0, len(envBindings))
	for name := range envBindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnvVarPath returns the config key an override variable sets.
func EnvVarPath(name string) (string, error) {
	binding, ok := envBindings[name]
	if !ok {
		return "", fmt.Errorf("unsupported environment variable %s", name)
	}
	return binding.path, nil
}
