package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sigother/internal/watcher"
)

var watchRoots []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the result cache in sync with file changes",
	Long: `Watch the project roots and invalidate cached pairs when files are
deleted or renamed. New files clear remembered misses. Runs until
interrupted.`,
	Args: cobra.NoArgs,
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().StringArrayVar(&watchRoots, "root", nil, "Root to watch (repeatable; default: project roots)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	a, err := loadApp(mustGetwd(), os.Stderr)
	if err != nil {
		exitWithError(err)
	}
	defer a.Close()

	if err := a.openCache(true); err != nil {
		exitWithError(err)
	}
	svc, err := a.lookupService("", true)
	if err != nil {
		exitWithError(err)
	}

	w, err := watcher.New(watcher.Config{
		DebounceMs:     a.cfg.Watch.DebounceMs,
		IgnorePatterns: a.cfg.Watch.Ignore,
	}, a.logger, watcher.CacheHandler(svc, a.logger))
	if err != nil {
		exitWithError(err)
	}

	roots := a.roots(watchRoots)
	for _, root := range roots {
		if err := w.WatchRoot(root); err != nil {
			_ = w.Stop()
			exitWithError(err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	cleanupEvery := time.Duration(a.cfg.Cache.NegativeTtlSeconds) * time.Second
	if cleanupEvery <= 0 {
		cleanupEvery = time.Minute
	}
	ticker := time.NewTicker(cleanupEvery)
	defer ticker.Stop()

	w.Start(ctx)
	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl-C to stop)\n", strings.Join(roots, ", "))

	cache := a.pairCache()
	for {
		select {
		case <-ctx.Done():
			if err := w.Stop(); err != nil {
				a.logger.Warn("Watcher stop failed", "error", err)
			}
			return
		case <-ticker.C:
			if n, err := cache.CleanupExpired(); err != nil {
				a.logger.Warn("Negative cache cleanup failed", "error", err)
			} else if n > 0 {
				a.logger.Debug("Removed expired misses", "count", n)
			}
		}
	}
}
