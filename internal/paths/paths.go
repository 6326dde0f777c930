package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DataDirName is the per-project directory holding config and cache.
	DataDirName = ".sigother"
	// ConfigFileName is the config file inside DataDirName.
	ConfigFileName = "config.toml"
	// DatabaseFileName is the cache database inside DataDirName.
	DatabaseFileName = "sigother.db"
)

// projectMarkers are files/directories that indicate a project root.
var projectMarkers = []string{
	DataDirName,
	".git",
	"go.mod",
	"package.json",
	"Gemfile",
	"Cargo.toml",
	"pyproject.toml",
}

// RelativeTo expresses absolutePath relative to root with forward slashes.
// When the plain relation escapes root, symlinks on both sides are resolved
// and the relation is retried, so /var/x and /private/var/x compare equal.
func RelativeTo(absolutePath, root string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(absolutePath))
	if err == nil && !escapes(rel) {
		return filepath.ToSlash(rel), nil
	}

	resolvedPath, err := resolve(absolutePath)
	if err != nil {
		return "", err
	}
	resolvedRoot, err := resolve(root)
	if err != nil {
		return "", err
	}

	rel, err = filepath.Rel(resolvedRoot, resolvedPath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRoot checks if a path is strictly inside root.
func IsWithinRoot(path, root string) bool {
	rel, err := RelativeTo(path, root)
	if err != nil {
		return false
	}
	return rel != "." && !escapes(rel)
}

// JoinRootPath joins a root with a slash-separated relative path.
func JoinRootPath(root, rel string) string {
	parts := strings.Split(strings.ReplaceAll(rel, "\\", "/"), "/")
	return filepath.Join(append([]string{root}, parts...)...)
}

// FindProjectRoot walks up from start looking for a project root marker.
// Returns "" when none is found before the filesystem root.
func FindProjectRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// DataDir returns <projectRoot>/.sigother.
func DataDir(projectRoot string) string {
	return filepath.Join(projectRoot, DataDirName)
}

// EnsureDataDir creates <projectRoot>/.sigother if needed.
func EnsureDataDir(projectRoot string) (string, error) {
	dir := DataDir(projectRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ConfigPath returns <projectRoot>/.sigother/config.toml.
func ConfigPath(projectRoot string) string {
	return filepath.Join(DataDir(projectRoot), ConfigFileName)
}

// DatabasePath returns <projectRoot>/.sigother/sigother.db.
func DatabasePath(projectRoot string) string {
	return filepath.Join(DataDir(projectRoot), DatabaseFileName)
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func resolve(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Clean(p), nil
		}
		return "", err
	}
	return resolved, nil
}
