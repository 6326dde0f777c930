// Package testutil builds throwaway project trees for tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Layouts are the project shapes the resolver has to handle, keyed by name.
// Paths are slash-separated and relative to the project root.
var Layouts = map[string][]string{
	"coffee": {
		"lib/release-notes-view.coffee",
		"spec/release-notes-view-spec.coffee",
	},
	"js": {
		"lib/views/hunk-view.js",
		"test/views/hunk-view.test.js",
	},
	"rails": {
		"app/models/post.rb",
		"test/models/post_test.rb",
	},
	"octokit": {
		"lib/octokit.rb",
		"spec/octokit_spec.rb",
		"lib/octokit/client/pull_requests.rb",
		"spec/client/pull_requests_spec.rb",
	},
	"lonely": {
		"lib/main.coffee",
	},
}

// Project is a temporary directory tree.
type Project struct {
	t    *testing.T
	Root string
}

// NewProject creates a project under t.TempDir() containing the given files.
// Root has symlinks resolved so scanned paths compare equal to Path().
func NewProject(t *testing.T, files ...string) *Project {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}

	p := &Project{t: t, Root: root}
	for _, f := range files {
		p.Write(f, "")
	}
	return p
}

// NewLayout creates a project from one of the named Layouts.
func NewLayout(t *testing.T, name string) *Project {
	t.Helper()

	files, ok := Layouts[name]
	if !ok {
		t.Fatalf("Unknown layout: %s", name)
	}
	return NewProject(t, files...)
}

// Path returns the absolute path of a slash-separated relative path.
func (p *Project) Path(rel string) string {
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// Write creates or replaces a file, creating parent directories.
func (p *Project) Write(rel, content string) string {
	p.t.Helper()

	abs := p.Path(rel)
	if strings.HasSuffix(rel, "/") {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			p.t.Fatalf("Failed to create %s: %v", rel, err)
		}
		return abs
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		p.t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		p.t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return abs
}

// Remove deletes a file.
func (p *Project) Remove(rel string) {
	p.t.Helper()

	if err := os.Remove(p.Path(rel)); err != nil {
		p.t.Fatalf("Failed to remove %s: %v", rel, err)
	}
}
