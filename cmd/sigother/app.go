package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"sigother/internal/config"
	sigerrors "sigother/internal/errors"
	"sigother/internal/lookup"
	"sigother/internal/matchmaker"
	"sigother/internal/paths"
	"sigother/internal/scanner"
	"sigother/internal/slogutil"
	"sigother/internal/storage"
)

// app bundles what every command needs: the project root, its
// configuration, a logger and, when requested, the cache database.
type app struct {
	projectRoot string
	cfg         *config.Config
	logger      *slog.Logger
	db          *storage.DB
}

// loadApp locates the project for start (a file or directory) and loads
// its configuration. --project wins over discovery.
func loadApp(start string, logOut io.Writer) (*app, error) {
	root, err := findProjectRoot(start)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg, logOut)
	logger.Debug("Loaded project", "root", root)

	return &app{projectRoot: root, cfg: cfg, logger: logger}, nil
}

func findProjectRoot(start string) (string, error) {
	if projectFlag != "" {
		abs, err := filepath.Abs(projectFlag)
		if err != nil {
			return "", err
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return "", sigerrors.Newf(sigerrors.RootNotFound, "project root %s is not a directory", abs)
		}
		return abs, nil
	}

	if root := paths.FindProjectRoot(start); root != "" {
		return root, nil
	}

	// No marker anywhere up the tree: use the start directory itself.
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	return abs, nil
}

// newLogger builds the CLI logger.
// Precedence: --quiet > -v count > logging.level.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slogutil.EffectiveLevel(cfg.Logging.Level, verbosity, quietFlag)
	return slogutil.NewFormattedLogger(w, slogutil.Format(cfg.Logging.Format), level)
}

// openCache opens the cache database. When required is false a failure is
// logged and the app carries on without a cache.
func (a *app) openCache(required bool) error {
	if a.db != nil {
		return nil
	}
	db, err := storage.Open(a.projectRoot, a.logger)
	if err != nil {
		cacheErr := sigerrors.New(sigerrors.CacheUnavailable, "cannot open the result cache", err)
		if required {
			return cacheErr
		}
		a.logger.Warn("Continuing without cache", "error", cacheErr.Error())
		return nil
	}
	a.db = db
	return nil
}

func (a *app) pairCache() *storage.PairCache {
	if a.db == nil {
		return nil
	}
	return storage.NewPairCache(a.db)
}

// Close releases the database, if open.
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close cache database", "error", err)
		}
	}
}

// roots returns the search roots. Explicit --root values replace the
// project root and its configured extras.
func (a *app) roots(explicit []string) []string {
	candidates := explicit
	if len(candidates) == 0 {
		candidates = append([]string{a.projectRoot}, a.cfg.ExtraRoots(a.projectRoot)...)
	}

	seen := make(map[string]bool, len(candidates))
	roots := make([]string, 0, len(candidates))
	for _, r := range candidates {
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		if !seen[abs] {
			seen[abs] = true
			roots = append(roots, abs)
		}
	}
	return roots
}

// resolverOptions maps configuration onto resolver options. A non-empty
// strategy overrides roots.strategy.
func (a *app) resolverOptions(strategy string) (matchmaker.Options, error) {
	opts := matchmaker.DefaultOptions()
	opts.TestSuffixes = a.cfg.Matching.TestSuffixes
	opts.ExcludeVcsIgnores = a.cfg.Scan.ExcludeVcsIgnores
	opts.Exclusions = append([]string{"**/" + paths.DataDirName}, a.cfg.Scan.Exclude...)
	opts.MaxFiles = a.cfg.Scan.MaxFiles
	opts.Timeout = time.Duration(a.cfg.Scan.TimeoutMs) * time.Millisecond
	opts.SortMatches = a.cfg.Scan.SortMatches

	if strategy == "" {
		strategy = a.cfg.Roots.Strategy
	}
	switch matchmaker.RootStrategy(strategy) {
	case matchmaker.StrategyFirst, matchmaker.StrategyAll:
		opts.Strategy = matchmaker.RootStrategy(strategy)
	default:
		return opts, fmt.Errorf("unknown root strategy %q (want first or all)", strategy)
	}
	return opts, nil
}

// lookupService wires scanner, resolver and cache together.
func (a *app) lookupService(strategy string, useCache bool) (*lookup.Service, error) {
	opts, err := a.resolverOptions(strategy)
	if err != nil {
		return nil, err
	}
	resolver := matchmaker.NewResolver(scanner.New(a.logger), opts, a.logger)

	var cache *storage.PairCache
	if useCache && a.cfg.Cache.Enabled {
		if err := a.openCache(false); err != nil {
			return nil, err
		}
		cache = a.pairCache()
	}

	return lookup.NewService(resolver, cache, lookup.Options{
		NegativeTTL: time.Duration(a.cfg.Cache.NegativeTtlSeconds) * time.Second,
	}, a.logger), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// exitWithError prints err, with suggested fixes for coded errors, and exits.
func exitWithError(err error) {
	printError(os.Stderr, err)
	os.Exit(1)
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var fixes []sigerrors.FixAction
	var se *sigerrors.SigError
	if errors.As(err, &se) {
		fixes = se.SuggestedFixes
	}
	if len(fixes) == 0 {
		return
	}
	fmt.Fprintln(w, "Suggested fixes:")
	for _, fix := range fixes {
		fmt.Fprintf(w, "  - %s\n", fix.Description)
		if fix.Command != "" {
			fmt.Fprintf(w, "    $ %s\n", fix.Command)
		}
	}
}
