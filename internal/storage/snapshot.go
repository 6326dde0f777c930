package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// SnapshotVersion is written into every exported snapshot
const SnapshotVersion = 1

// Format is a snapshot serialization format
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Snapshot is the portable form of the pair cache
type Snapshot struct {
	Version    int         `json:"version" yaml:"version" toml:"version"`
	ExportedAt time.Time   `json:"exportedAt" yaml:"exportedAt" toml:"exportedAt"`
	Entries    []PairEntry `json:"entries" yaml:"entries" toml:"entries"`
}

// NewSnapshot wraps entries with the current version and time
func NewSnapshot(entries []PairEntry) *Snapshot {
	if entries == nil {
		entries = []PairEntry{}
	}
	return &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Entries:    entries,
	}
}

// ParseFormat accepts json, yaml/yml and toml
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unknown snapshot format %q", s)
}

// FormatFromPath infers the format from a file name. A trailing .zst
// marks the file as zstd-compressed; the extension before it picks the
// format. Unknown extensions fall back to JSON.
func FormatFromPath(name string) (format Format, compressed bool) {
	base := strings.ToLower(filepath.Base(name))
	if strings.HasSuffix(base, ".zst") {
		compressed = true
		base = strings.TrimSuffix(base, ".zst")
	}
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(base), "."))
	if err != nil {
		return FormatJSON, compressed
	}
	return f, compressed
}

// ExportSnapshot encodes snap to w
func ExportSnapshot(w io.Writer, snap *Snapshot, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(snap)
	}
	return fmt.Errorf("unknown snapshot format %q", format)
}

// ImportSnapshot decodes a snapshot from r
func ImportSnapshot(r io.Reader, format Format) (*Snapshot, error) {
	var snap Snapshot

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return nil, fmt.Errorf("failed to decode json snapshot: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
			return nil, fmt.Errorf("failed to decode yaml snapshot: %w", err)
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&snap); err != nil {
			return nil, fmt.Errorf("failed to decode toml snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}

	if snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", snap.Version, SnapshotVersion)
	}
	return &snap, nil
}

// WriteSnapshotFile exports snap to path, compressing when the name ends
// in .zst.
func WriteSnapshotFile(path string, snap *Snapshot, format Format) (err error) {
	_, compressed := FormatFromPath(path)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if !compressed {
		return ExportSnapshot(f, snap, format)
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := ExportSnapshot(enc, snap, format); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// ReadSnapshotFile imports a snapshot written by WriteSnapshotFile
func ReadSnapshotFile(path string, format Format) (*Snapshot, error) {
	_, compressed := FormatFromPath(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !compressed {
		return ImportSnapshot(f, format)
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	return ImportSnapshot(dec, format)
}
