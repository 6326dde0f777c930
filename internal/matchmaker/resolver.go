// Package matchmaker finds the "significant other" of a source file: the test
// for an implementation file, or the implementation for a test.
//
// Given app/models/post.rb the resolver searches, in order:
//
//	**/models/post?(.test|_test|_spec|-spec).rb
//	**/post?(.test|_test|_spec|-spec).rb
//
// and given test/models/post_test.rb:
//
//	**/models/post.rb
//	**/post.rb
//
// Each round drops one more leading directory. The first file found in scan
// order wins; the search ends with no result once no directory is left to drop.
package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sigerrors "sigother/internal/errors"
	"sigother/internal/paths"
	"sigother/internal/scanner"
	"sigother/internal/slogutil"
)

// RootStrategy selects which project roots are searched.
type RootStrategy string

const (
	// StrategyFirst searches only the root that contains the candidate.
	StrategyFirst RootStrategy = "first"
	// StrategyAll searches the owning root, then every other root in order.
	StrategyAll RootStrategy = "all"
)

// Options tune a Resolver. Zero values select the defaults.
type Options struct {
	TestSuffixes      []string
	Strategy          RootStrategy
	ExcludeVcsIgnores bool
	Exclusions        []string
	MaxFiles          int
	Timeout           time.Duration
	// SortMatches picks the lexicographically smallest match of a round
	// instead of the first one discovered.
	SortMatches bool
}

// DefaultOptions mirror the behavior of the original package.
func DefaultOptions() Options {
	return Options{
		TestSuffixes:      DefaultTestSuffixes,
		Strategy:          StrategyAll,
		ExcludeVcsIgnores: true,
	}
}

// Resolution describes the outcome of one lookup. Path is empty and Found is
// false when no complementary file exists.
type Resolution struct {
	Candidate string
	Relative  string
	Path      string
	Found     bool
	Root      string
	Pattern   string
	Rounds    int
}

// Resolver locates complementary paths.
type Resolver struct {
	scanner scanner.PathScanner
	opts    Options
	logger  *slog.Logger
}

// NewResolver creates a resolver on top of a path scanner.
func NewResolver(s scanner.PathScanner, opts Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if len(opts.TestSuffixes) == 0 {
		opts.TestSuffixes = DefaultTestSuffixes
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyAll
	}
	return &Resolver{scanner: s, opts: opts, logger: logger}
}

// ComplementaryPath returns the absolute path of the candidate's
// complementary file. found is false when there is none; that is not an error.
func (r *Resolver) ComplementaryPath(ctx context.Context, candidate string, roots []string) (string, bool, error) {
	res, err := r.Resolve(ctx, candidate, roots)
	if err != nil {
		return "", false, err
	}
	return res.Path, res.Found, nil
}

// Resolve runs the widening search and reports how the result was reached.
func (r *Resolver) Resolve(ctx context.Context, candidate string, roots []string) (*Resolution, error) {
	if len(roots) == 0 {
		return nil, sigerrors.New(sigerrors.NoProjectRoots, "no project roots given", nil)
	}

	owner, rel, err := owningRoot(candidate, roots)
	if err != nil {
		return nil, err
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	res := &Resolution{Candidate: candidate, Relative: rel}
	plan := Plan(rel, r.opts.TestSuffixes)

	for _, root := range r.searchOrder(owner, roots) {
		for _, pattern := range plan {
			res.Rounds++

			match, found, err := r.scanRound(ctx, root, rel, pattern)
			if err != nil {
				return nil, r.wrapScanError(err, root, pattern)
			}

			r.logger.Debug("Search round",
				"root", root,
				"depth", pattern.Depth,
				"pattern", pattern.String(),
				"found", found,
			)

			if found {
				res.Path = match
				res.Found = true
				res.Root = root
				res.Pattern = pattern.String()
				return res, nil
			}
		}
	}

	return res, nil
}

// searchOrder lists the roots to search: the owning root first, then the
// others in their given order when the strategy allows it.
func (r *Resolver) searchOrder(owner string, roots []string) []string {
	order := []string{owner}
	if r.opts.Strategy != StrategyAll {
		return order
	}
	for _, root := range roots {
		if filepath.Clean(root) != owner {
			order = append(order, filepath.Clean(root))
		}
	}
	return order
}

func (r *Resolver) scanRound(ctx context.Context, root, rel string, pattern Pattern) (string, bool, error) {
	opts := scanner.Options{
		Root:              root,
		Inclusions:        pattern.Globs(),
		Exclusions:        append([]string{escapeMeta(rel)}, r.opts.Exclusions...),
		ExcludeVcsIgnores: r.opts.ExcludeVcsIgnores,
		MaxFiles:          r.opts.MaxFiles,
	}

	if !r.opts.SortMatches {
		return scanner.FirstMatch(ctx, r.scanner, opts)
	}

	matches, err := scanner.Collect(ctx, r.scanner, opts)
	if err != nil || len(matches) == 0 {
		return "", false, err
	}
	sort.Strings(matches)
	return matches[0], true, nil
}

func (r *Resolver) wrapScanError(err error, root string, pattern Pattern) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return sigerrors.New(sigerrors.Timeout,
			fmt.Sprintf("lookup timed out after %s", r.opts.Timeout), err)
	}
	if errors.Is(err, context.Canceled) {
		return sigerrors.New(sigerrors.Canceled, "lookup canceled", err)
	}
	var se *sigerrors.SigError
	if errors.As(err, &se) {
		return err
	}
	return sigerrors.New(sigerrors.ScanFailed,
		fmt.Sprintf("scan of %s for %s failed", root, pattern.String()), err)
}

// owningRoot returns the first root containing candidate and the candidate's
// slash-separated path relative to it.
func owningRoot(candidate string, roots []string) (string, string, error) {
	for _, root := range roots {
		root = filepath.Clean(root)
		rel, err := paths.RelativeTo(candidate, root)
		if err != nil || rel == "." || strings.HasPrefix(rel, "../") || rel == ".." {
			continue
		}
		return root, rel, nil
	}
	return "", "", sigerrors.New(sigerrors.PathOutsideRoots,
		fmt.Sprintf("%s is not inside any project root", candidate), nil).
		WithDetails(map[string]interface{}{"roots": roots})
}
