package scanner

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// vcsIgnores holds the compiled .gitignore rules of every directory visited
// so far, keyed by slash-separated directory path relative to the root ("" for
// the root itself).
type vcsIgnores struct {
	rules map[string]*ignore.GitIgnore
}

func newVcsIgnores() *vcsIgnores {
	return &vcsIgnores{rules: make(map[string]*ignore.GitIgnore)}
}

// loadRoot reads the root .gitignore and .git/info/exclude.
func (v *vcsIgnores) loadRoot(root string) {
	lines := readLines(filepath.Join(root, ".gitignore"))
	lines = append(lines, readLines(filepath.Join(root, ".git", "info", "exclude"))...)
	if len(lines) > 0 {
		v.rules[""] = ignore.CompileIgnoreLines(lines...)
	}
}

// load reads the .gitignore of a directory below the root.
func (v *vcsIgnores) load(dir, rel string) {
	if lines := readLines(filepath.Join(dir, ".gitignore")); len(lines) > 0 {
		v.rules[rel] = ignore.CompileIgnoreLines(lines...)
	}
}

// ignored checks rel against the rules of every ancestor directory. Rules
// are evaluated against the path relative to the directory that declared them.
func (v *vcsIgnores) ignored(rel string, isDir bool) bool {
	dir := path.Dir(rel)
	for {
		base := dir
		if base == "." {
			base = ""
		}
		if gi, ok := v.rules[base]; ok {
			sub := rel
			if base != "" {
				sub = strings.TrimPrefix(rel, base+"/")
			}
			if gi.MatchesPath(sub) || (isDir && gi.MatchesPath(sub+"/")) {
				return true
			}
		}
		if base == "" {
			return false
		}
		dir = path.Dir(dir)
	}
}

func readLines(p string) []string {
	f, err := os.Open(p)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
