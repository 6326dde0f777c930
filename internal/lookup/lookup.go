// Package lookup answers complementary path queries for the CLI and the
// watcher, putting the SQLite pair cache in front of the resolver.
package lookup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"sigother/internal/matchmaker"
	"sigother/internal/paths"
	"sigother/internal/slogutil"
	"sigother/internal/storage"
)

// Source tells where a result came from
type Source string

const (
	SourceCache Source = "cache"
	SourceScan  Source = "scan"
)

// Result is the answer to one Find call
type Result struct {
	RequestID  string `json:"requestId" yaml:"requestId"`
	Candidate  string `json:"candidate" yaml:"candidate"`
	Complement string `json:"complement,omitempty" yaml:"complement,omitempty"`
	Found      bool   `json:"found" yaml:"found"`
	Source     Source `json:"source" yaml:"source"`
	Root       string `json:"root,omitempty" yaml:"root,omitempty"`
	Pattern    string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Rounds     int    `json:"rounds" yaml:"rounds"`
	DurationMs int64  `json:"durationMs" yaml:"durationMs"`
}

// Options configures a Service
type Options struct {
	// NegativeTTL is how long a miss is remembered. Zero disables the
	// negative cache.
	NegativeTTL time.Duration
}

// FindOptions tunes a single lookup
type FindOptions struct {
	NoCache bool
}

// Service resolves candidates through an optional cache
type Service struct {
	resolver *matchmaker.Resolver
	cache    *storage.PairCache
	opts     Options
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// NewService creates a lookup service. cache may be nil, in which case
// every Find scans.
func NewService(resolver *matchmaker.Resolver, cache *storage.PairCache, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Service{
		resolver: resolver,
		cache:    cache,
		opts:     opts,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Find returns the complementary file of candidate within roots. Resolver
// errors are returned unchanged; cache failures are logged and the lookup
// falls back to scanning.
func (s *Service) Find(ctx context.Context, candidate string, roots []string, fo FindOptions) (*Result, error) {
	start := s.now()
	result := &Result{RequestID: s.newID()}

	abs, err := filepath.Abs(candidate)
	if err != nil {
		abs = filepath.Clean(candidate)
	}
	result.Candidate = abs

	logger := s.logger.With("request_id", result.RequestID)
	useCache := s.cache != nil && !fo.NoCache

	scope := s.resolver.Scope(roots)

	if useCache && inRoots(abs, roots) {
		if hit := s.fromCache(abs, roots, scope, logger, result); hit {
			result.DurationMs = s.now().Sub(start).Milliseconds()
			return result, nil
		}
	}

	res, err := s.resolver.Resolve(ctx, abs, roots)
	if err != nil {
		return nil, err
	}

	result.Source = SourceScan
	result.Found = res.Found
	result.Complement = res.Path
	result.Root = res.Root
	result.Pattern = res.Pattern
	result.Rounds = res.Rounds
	result.DurationMs = s.now().Sub(start).Milliseconds()

	if useCache {
		s.store(abs, roots, scope, res, logger)
	}

	logger.Info("Lookup finished",
		"candidate", abs,
		"found", result.Found,
		"rounds", result.Rounds,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

// fromCache fills result from the cache. An entry counts only when it was
// written under the same scope. A cached complement is trusted only while it
// still exists and lies inside a root the current strategy searches.
func (s *Service) fromCache(candidate string, roots []string, scope string, logger *slog.Logger, result *Result) bool {
	entry, ok, err := s.cache.Get(candidate)
	if err != nil {
		logger.Warn("Pair cache read failed", "error", err)
		return false
	}
	if ok && entry.Scope == scope {
		if s.searchable(entry.Complement, candidate, roots) && fileExists(entry.Complement) {
			logger.Debug("Pair cache hit", "candidate", candidate, "complement", entry.Complement)
			result.Source = SourceCache
			result.Found = true
			result.Complement = entry.Complement
			result.Root = entry.Root
			return true
		}
		logger.Debug("Dropping stale pair", "candidate", candidate, "complement", entry.Complement)
		if _, err := s.cache.Invalidate(entry.Complement); err != nil {
			logger.Warn("Pair cache invalidation failed", "error", err)
		}
		return false
	}
	if ok {
		logger.Debug("Pair cache scope mismatch", "candidate", candidate)
		return false
	}

	if s.opts.NegativeTTL <= 0 {
		return false
	}
	neg, err := s.cache.GetNegative(candidate)
	if err != nil {
		logger.Warn("Negative cache read failed", "error", err)
		return false
	}
	if neg == nil || neg.Scope != scope || !inRoots(candidate, []string{neg.Root}) {
		return false
	}

	logger.Debug("Negative cache hit", "candidate", candidate, "expires_at", neg.ExpiresAt)
	result.Source = SourceCache
	result.Found = false
	return true
}

// searchable reports whether a lookup of candidate could reach complement:
// any root under StrategyAll, only the owning root under StrategyFirst.
func (s *Service) searchable(complement, candidate string, roots []string) bool {
	if s.resolver.Strategy() == matchmaker.StrategyFirst {
		root := owner(candidate, roots)
		return root != "" && inRoots(complement, []string{root})
	}
	return inRoots(complement, roots)
}

func (s *Service) store(candidate string, roots []string, scope string, res *matchmaker.Resolution, logger *slog.Logger) {
	if res.Found {
		if err := s.cache.Put(candidate, res.Path, res.Root, scope); err != nil {
			logger.Warn("Pair cache write failed", "error", err)
		}
		return
	}

	root := owner(candidate, roots)
	if err := s.cache.PutNegative(candidate, root, scope, s.opts.NegativeTTL); err != nil {
		logger.Warn("Negative cache write failed", "error", err)
	}
}

// Invalidate drops every cache entry that mentions path
func (s *Service) Invalidate(path string) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	removed, err := s.cache.Invalidate(path)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Debug("Invalidated cache entries", "path", path, "removed", removed)
	}
	return removed, nil
}

// ForgetMisses drops the negative cache
func (s *Service) ForgetMisses() (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.ClearNegative()
}

// Clear empties the cache
func (s *Service) Clear() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear()
}

func owner(candidate string, roots []string) string {
	for _, root := range roots {
		if inRoots(candidate, []string{root}) {
			return filepath.Clean(root)
		}
	}
	return ""
}

func inRoots(path string, roots []string) bool {
	for _, root := range roots {
		if paths.IsWithinRoot(path, filepath.Clean(root)) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
