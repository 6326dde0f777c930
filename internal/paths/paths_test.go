package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRelativeTo(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name string
		path string
		want string
	}{
		{"nested file", filepath.Join(root, "app", "models", "post.rb"), "app/models/post.rb"},
		{"top-level file", filepath.Join(root, "main.go"), "main.go"},
		{"root itself", root, "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RelativeTo(tt.path, root)
			if err != nil {
				t.Fatalf("RelativeTo() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RelativeTo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRelativeTo_OutsideRoot(t *testing.T) {
	root := t.TempDir()

	got, err := RelativeTo(filepath.Join(filepath.Dir(root), "other.rb"), root)
	if err != nil {
		t.Fatalf("RelativeTo() error = %v", err)
	}
	if !escapes(filepath.FromSlash(got)) {
		t.Errorf("RelativeTo() = %q, want a path escaping the root", got)
	}
}

func TestRelativeTo_SymlinkedRoot(t *testing.T) {
	real := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(real, "lib"), 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(real, "lib", "a.rb")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := RelativeTo(file, link)
	if err != nil {
		t.Fatalf("RelativeTo() error = %v", err)
	}
	if got != "lib/a.rb" {
		t.Errorf("RelativeTo() = %q, want %q", got, "lib/a.rb")
	}
}

func TestIsWithinRoot(t *testing.T) {
	root := t.TempDir()

	if !IsWithinRoot(filepath.Join(root, "a", "b.go"), root) {
		t.Error("nested path should be within root")
	}
	if IsWithinRoot(root, root) {
		t.Error("root itself should not count as within root")
	}
	if IsWithinRoot(filepath.Dir(root), root) {
		t.Error("parent should not be within root")
	}
}

func TestJoinRootPath(t *testing.T) {
	got := JoinRootPath("/repo", "spec/models/post_spec.rb")
	want := filepath.Join("/repo", "spec", "models", "post_spec.rb")
	if got != want {
		t.Errorf("JoinRootPath() = %q, want %q", got, want)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "lib", "views")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(nested, "hunk-view.js")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	want, _ := filepath.EvalSymlinks(root)
	for _, start := range []string{nested, file} {
		got, _ := filepath.EvalSymlinks(FindProjectRoot(start))
		if got != want {
			t.Errorf("FindProjectRoot(%q) = %q, want %q", start, got, want)
		}
	}
}

func TestDataPaths(t *testing.T) {
	root := t.TempDir()

	dir, err := EnsureDataDir(root)
	if err != nil {
		t.Fatalf("EnsureDataDir() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("data dir was not created: %v", err)
	}
	if ConfigPath(root) != filepath.Join(root, ".sigother", "config.toml") {
		t.Errorf("ConfigPath() = %q", ConfigPath(root))
	}
	if DatabasePath(root) != filepath.Join(root, ".sigother", "sigother.db") {
		t.Errorf("DatabasePath() = %q", DatabasePath(root))
	}
}
