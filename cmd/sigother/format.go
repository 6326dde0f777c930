package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"sigother/internal/config"
	"sigother/internal/lookup"
	"sigother/internal/storage"
	"sigother/internal/version"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatTOML  OutputFormat = "toml"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatTOML:
		return formatTOML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(resp); err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func formatTOML(resp interface{}) (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(resp); err != nil {
		return "", fmt.Errorf("failed to marshal TOML: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *lookup.Result:
		return formatResultHuman(v), nil
	case *CacheStatsResponse:
		return formatCacheStatsHuman(v), nil
	case *ConfigShowResponse:
		return formatConfigHuman(v)
	case version.BuildInfo:
		return formatVersionHuman(v), nil
	default:
		return formatJSON(resp)
	}
}

// formatResultHuman prints only the complement so the output can feed
// other tools directly. Misses print nothing.
func formatResultHuman(res *lookup.Result) string {
	if !res.Found {
		return ""
	}
	return res.Complement
}

// CacheStatsResponse is the output of `cache stats`
type CacheStatsResponse struct {
	Database string             `json:"database" yaml:"database"`
	Enabled  bool               `json:"enabled" yaml:"enabled"`
	Stats    storage.CacheStats `json:"stats" yaml:"stats"`
}

func formatCacheStatsHuman(resp *CacheStatsResponse) string {
	var b strings.Builder

	b.WriteString("sigother cache\n")
	b.WriteString(strings.Repeat("─", 50) + "\n")
	b.WriteString(fmt.Sprintf("Database: %s\n", resp.Database))
	enabled := "yes"
	if !resp.Enabled {
		enabled = "no (cache.enabled = false)"
	}
	b.WriteString(fmt.Sprintf("Enabled: %s\n", enabled))
	b.WriteString(fmt.Sprintf("Pair entries: %d\n", resp.Stats.Pairs))
	b.WriteString(fmt.Sprintf("Remembered misses: %d (%d expired)\n", resp.Stats.Negative, resp.Stats.ExpiredNegative))

	return strings.TrimRight(b.String(), "\n")
}

// ConfigShowResponse is the output of `config show`
type ConfigShowResponse struct {
	ConfigPath   string               `json:"configPath,omitempty" yaml:"configPath,omitempty"`
	UsedDefaults bool                 `json:"usedDefaults" yaml:"usedDefaults"`
	EnvOverrides []config.EnvOverride `json:"envOverrides,omitempty" yaml:"envOverrides,omitempty"`
	Config       *config.Config       `json:"config" yaml:"config"`
}

func formatConfigHuman(resp *ConfigShowResponse) (string, error) {
	var b strings.Builder

	b.WriteString("sigother configuration\n")
	b.WriteString(strings.Repeat("─", 50) + "\n")
	if resp.UsedDefaults {
		b.WriteString("Source: defaults (no config file found)\n")
	} else {
		b.WriteString(fmt.Sprintf("Source: %s\n", resp.ConfigPath))
	}

	if len(resp.EnvOverrides) > 0 {
		b.WriteString("\nEnvironment overrides:\n")
		for _, ov := range resp.EnvOverrides {
			b.WriteString(fmt.Sprintf("  %s=%s → %s\n", ov.EnvVar, ov.Value, ov.Path))
		}
	}
	b.WriteString("\n")

	body, err := formatTOML(resp.Config)
	if err != nil {
		return "", err
	}
	b.WriteString(body)
	return b.String(), nil
}

func formatVersionHuman(info version.BuildInfo) string {
	return fmt.Sprintf("sigother version %s\nCommit: %s\nBuilt: %s\nGo: %s %s",
		info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
}

// parseOutputFormat validates a --format value against the allowed set.
func parseOutputFormat(value string, allowed ...OutputFormat) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(value))
	if f == "yml" {
		f = FormatYAML
	}
	for _, a := range allowed {
		if f == a {
			return f, nil
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return "", fmt.Errorf("unsupported format %q (want %s)", value, strings.Join(names, ", "))
}
