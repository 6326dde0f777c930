// Package scanner walks a directory tree and streams the files that match a
// set of doublestar globs.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	sigerrors "sigother/internal/errors"
	"sigother/internal/slogutil"
)

// EventType distinguishes "a path was found" from the terminal events.
type EventType int

const (
	EventPathFound EventType = iota
	EventFinished
	EventError
)

// String returns a string representation of the event type
func (t EventType) String() string {
	switch t {
	case EventPathFound:
		return "path-found"
	case EventFinished:
		return "finished-scanning"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one item of a scan stream. Path is set for EventPathFound, Count
// (number of matches) for EventFinished and Err for EventError.
type Event struct {
	Type  EventType
	Path  string
	Count int
	Err   error
}

// Options describes one scan.
type Options struct {
	// Root is the directory to walk.
	Root string

	// Inclusions are doublestar globs matched against slash-separated paths
	// relative to Root. A file is reported when it matches any of them.
	Inclusions []string

	// Exclusions are doublestar globs (or literal relative paths) that are
	// never reported. A directory matching an exclusion is not descended.
	Exclusions []string

	// ExcludeVcsIgnores skips .git directories and anything matched by
	// .gitignore files or .git/info/exclude.
	ExcludeVcsIgnores bool

	// MaxFiles bounds the number of files visited. Zero means no limit.
	MaxFiles int
}

// PathScanner produces a stream of matching paths for one traversal.
type PathScanner interface {
	Scan(ctx context.Context, opts Options) <-chan Event
}

// Scanner is the filesystem PathScanner.
type Scanner struct {
	logger *slog.Logger
}

// New creates a filesystem scanner. A nil logger discards output.
func New(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Scanner{logger: logger}
}

// Scan walks opts.Root in lexical order and sends an EventPathFound for every
// matching file, followed by exactly one EventFinished or EventError. The
// channel is closed when the walk ends. Cancelling ctx abandons the walk; in
// that case no terminal event is sent.
func (s *Scanner) Scan(ctx context.Context, opts Options) <-chan Event {
	out := make(chan Event, 1)

	go func() {
		defer close(out)

		start := time.Now()
		count, visited, err := s.walk(ctx, opts, out)

		if ctx.Err() != nil {
			return
		}

		var terminal Event
		if err != nil {
			terminal = Event{Type: EventError, Err: err}
			s.logger.Debug("Scan failed",
				"root", opts.Root,
				"visited", visited,
				"error", err.Error(),
			)
		} else {
			terminal = Event{Type: EventFinished, Count: count}
			s.logger.Debug("Scan finished",
				"root", opts.Root,
				"visited", visited,
				"matches", count,
				"duration", time.Since(start),
			)
		}

		select {
		case out <- terminal:
		case <-ctx.Done():
		}
	}()

	return out
}

func (s *Scanner) walk(ctx context.Context, opts Options, out chan<- Event) (count, visited int, err error) {
	info, err := os.Stat(opts.Root)
	if err != nil || !info.IsDir() {
		return 0, 0, sigerrors.New(sigerrors.RootNotFound, fmt.Sprintf("project root %s is not a directory", opts.Root), err)
	}

	for _, pattern := range append(append([]string{}, opts.Inclusions...), opts.Exclusions...) {
		if !doublestar.ValidatePattern(pattern) {
			return 0, 0, sigerrors.Newf(sigerrors.ScanFailed, "invalid glob pattern %q", pattern)
		}
	}

	var vcs *vcsIgnores
	if opts.ExcludeVcsIgnores {
		vcs = newVcsIgnores()
	}

	walkErr := filepath.WalkDir(opts.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(opts.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				if vcs != nil {
					vcs.loadRoot(p)
				}
				return nil
			}
			if vcs != nil {
				if d.Name() == ".git" || vcs.ignored(rel, true) {
					return fs.SkipDir
				}
			}
			if matchesAny(opts.Exclusions, rel) {
				return fs.SkipDir
			}
			if vcs != nil {
				vcs.load(p, rel)
			}
			return nil
		}

		if !isFile(p, d) {
			return nil
		}

		visited++
		if opts.MaxFiles > 0 && visited > opts.MaxFiles {
			return sigerrors.Newf(sigerrors.ScanLimitExceeded, "scan of %s visited more than %d files", opts.Root, opts.MaxFiles).
				WithDetails(map[string]interface{}{"root": opts.Root, "maxFiles": opts.MaxFiles})
		}

		if vcs != nil && vcs.ignored(rel, false) {
			return nil
		}
		if !matchesAny(opts.Inclusions, rel) || matchesAny(opts.Exclusions, rel) {
			return nil
		}

		count++
		select {
		case out <- Event{Type: EventPathFound, Path: p}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if walkErr != nil {
		var se *sigerrors.SigError
		if errors.As(walkErr, &se) || errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return count, visited, walkErr
		}
		return count, visited, sigerrors.New(sigerrors.ScanFailed, fmt.Sprintf("scan of %s failed", opts.Root), walkErr)
	}
	return count, visited, nil
}

// isFile reports whether the entry is a regular file or a symlink to one.
// Symlinked directories are not followed.
func isFile(p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func matchesAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// FirstMatch returns the first path the scan discovers and abandons the rest
// of the scan.
func FirstMatch(ctx context.Context, s PathScanner, opts Options) (string, bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for ev := range s.Scan(ctx, opts) {
		switch ev.Type {
		case EventPathFound:
			return ev.Path, true, nil
		case EventError:
			return "", false, ev.Err
		case EventFinished:
			return "", false, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return "", false, nil
}

// Collect drains a scan and returns every match in discovery order.
func Collect(ctx context.Context, s PathScanner, opts Options) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var matches []string
	for ev := range s.Scan(ctx, opts) {
		switch ev.Type {
		case EventPathFound:
			matches = append(matches, ev.Path)
		case EventError:
			return matches, ev.Err
		case EventFinished:
			return matches, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return matches, err
	}
	return matches, nil
}
