package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	sigerrors "sigother/internal/errors"
	"sigother/internal/storage"
)

var (
	cacheFormat       string
	cacheExportFormat string
	cacheImportFormat string
	cacheImportClear  bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the result cache",
	Long:  "Inspect and manage the pair cache stored in .sigother/sigother.db",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached pairs and remembered misses",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCacheCommand(func(a *app, cache *storage.PairCache) error {
			if err := cache.Clear(); err != nil {
				return err
			}
			fmt.Println("Cache cleared")
			return nil
		})
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCacheCommand(func(a *app, cache *storage.PairCache) error {
			return writeCacheStats(os.Stdout, a, cache)
		})
	},
}

var cacheExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write cached pairs to a snapshot file",
	Long: `Write every cached pair to a snapshot file. The format follows the file
extension (.json, .yaml, .toml) unless --format is given; a trailing .zst
compresses the file with zstd. Use "-" to write to stdout.

Examples:
  sigother cache export pairs.json
  sigother cache export pairs.toml.zst`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runCacheCommand(func(a *app, cache *storage.PairCache) error {
			n, err := exportCache(cache, args[0], cacheExportFormat, os.Stdout)
			if err != nil {
				return err
			}
			if args[0] != "-" {
				fmt.Fprintf(os.Stderr, "Exported %d entries to %s\n", n, args[0])
			}
			return nil
		})
	},
}

var cacheImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load cached pairs from a snapshot file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runCacheCommand(func(a *app, cache *storage.PairCache) error {
			n, err := importCache(cache, args[0], cacheImportFormat, cacheImportClear)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d entries\n", n)
			return nil
		})
	},
}

func init() {
	cacheStatsCmd.Flags().StringVar(&cacheFormat, "format", "human", "Output format (human, json, yaml)")
	cacheExportCmd.Flags().StringVar(&cacheExportFormat, "format", "", "Snapshot format (json, yaml, toml)")
	cacheImportCmd.Flags().StringVar(&cacheImportFormat, "format", "", "Snapshot format (json, yaml, toml)")
	cacheImportCmd.Flags().BoolVar(&cacheImportClear, "replace", false, "Clear the cache before importing")

	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheExportCmd)
	cacheCmd.AddCommand(cacheImportCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheCommand(fn func(a *app, cache *storage.PairCache) error) {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(err)
	}
	a, err := loadApp(cwd, os.Stderr)
	if err != nil {
		exitWithError(err)
	}
	defer a.Close()

	if err := a.openCache(true); err != nil {
		exitWithError(err)
	}
	if err := fn(a, a.pairCache()); err != nil {
		a.Close()
		exitWithError(err)
	}
}

func writeCacheStats(w io.Writer, a *app, cache *storage.PairCache) error {
	format, err := parseOutputFormat(cacheFormat, FormatHuman, FormatJSON, FormatYAML)
	if err != nil {
		return err
	}
	stats, err := cache.Stats()
	if err != nil {
		return err
	}
	out, err := FormatResponse(&CacheStatsResponse{
		Database: a.db.Path(),
		Enabled:  a.cfg.Cache.Enabled,
		Stats:    stats,
	}, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)
	return nil
}

// snapshotFormat returns the explicit format if given, otherwise the one
// implied by the file name.
func snapshotFormat(path, explicit string) (storage.Format, error) {
	if explicit != "" {
		format, err := storage.ParseFormat(explicit)
		if err != nil {
			return "", sigerrors.New(sigerrors.InvalidFormat, "cannot use snapshot format "+explicit, err)
		}
		return format, nil
	}
	format, _ := storage.FormatFromPath(path)
	return format, nil
}

func exportCache(cache *storage.PairCache, path, explicitFormat string, stdout io.Writer) (int, error) {
	format, err := snapshotFormat(path, explicitFormat)
	if err != nil {
		return 0, err
	}
	entries, err := cache.Entries()
	if err != nil {
		return 0, err
	}
	snap := storage.NewSnapshot(entries)

	if path == "-" {
		return len(entries), storage.ExportSnapshot(stdout, snap, format)
	}
	return len(entries), storage.WriteSnapshotFile(path, snap, format)
}

func importCache(cache *storage.PairCache, path, explicitFormat string, replace bool) (int, error) {
	format, err := snapshotFormat(path, explicitFormat)
	if err != nil {
		return 0, err
	}

	var snap *storage.Snapshot
	if path == "-" {
		snap, err = storage.ImportSnapshot(os.Stdin, format)
	} else {
		snap, err = storage.ReadSnapshotFile(path, format)
	}
	if err != nil {
		return 0, err
	}

	if replace {
		if err := cache.Clear(); err != nil {
			return 0, err
		}
	}
	return cache.Import(snap.Entries)
}
