package matchmaker

import (
	"path"
	"strings"
)

// DefaultTestSuffixes are the stem suffixes that mark a file as a test.
var DefaultTestSuffixes = []string{".test", "_test", "_spec", "-spec"}

// recursiveWildcard matches any number of directory levels, including zero.
const recursiveWildcard = "**"

// Pattern is the search pattern for one widening round.
//
// Directory is "**" or "**/<dirs>". When Suffixes is empty the file name must
// be exactly Stem+Ext; otherwise Stem may be followed by at most one of the
// suffixes.
type Pattern struct {
	Depth     int
	Directory string
	Stem      string
	Suffixes  []string
	Ext       string
}

// Filename renders the file name part in extglob form.
func (p Pattern) Filename() string {
	if len(p.Suffixes) == 0 {
		return p.Stem + p.Ext
	}
	return p.Stem + "?(" + strings.Join(p.Suffixes, "|") + ")" + p.Ext
}

// String renders the combined pattern, e.g. "**/models/post?(.test|_test|_spec|-spec).rb".
func (p Pattern) String() string {
	return p.Directory + "/" + p.Filename()
}

// Globs expands the pattern into doublestar globs: one for the bare name and
// one per optional suffix. Glob metacharacters in file and directory names
// are escaped so they only match literally.
func (p Pattern) Globs() []string {
	dir := recursiveWildcard
	if rest := strings.TrimPrefix(p.Directory, recursiveWildcard+"/"); rest != p.Directory {
		dir = recursiveWildcard + "/" + escapeMeta(rest)
	}

	stem := escapeMeta(p.Stem)
	ext := escapeMeta(p.Ext)

	globs := make([]string, 0, len(p.Suffixes)+1)
	globs = append(globs, dir+"/"+stem+ext)
	for _, suffix := range p.Suffixes {
		globs = append(globs, dir+"/"+stem+escapeMeta(suffix)+ext)
	}
	return globs
}

// FilenamePattern derives stem, optional suffixes and extension from a
// slash-separated path. A stem that already ends with a test suffix is
// stripped of it and gets no optional group; any other stem gets the full
// suffix set as an optional group. The extension is kept unchanged.
func FilenamePattern(rel string, suffixes []string) (stem string, optional []string, ext string) {
	base := path.Base(rel)
	ext = path.Ext(base)
	stem = strings.TrimSuffix(base, ext)
	if stem == "" {
		// Dotfiles such as ".eslintrc" have no extension.
		stem, ext = base, ""
	}

	if suffix, ok := testSuffix(stem, suffixes); ok {
		return strings.TrimSuffix(stem, suffix), nil, ext
	}

	optional = make([]string, len(suffixes))
	copy(optional, suffixes)
	return stem, optional, ext
}

func testSuffix(stem string, suffixes []string) (string, bool) {
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(stem, suffix) {
			return suffix, true
		}
	}
	return "", false
}

// HasDirectory reports whether a slash-separated path has at least one
// directory segment.
//
//	HasDirectory("a/b.coffee") // true
//	HasDirectory("b.coffee")   // false
func HasDirectory(p string) bool {
	return path.Dir(p) != "."
}

// WithoutLeadingDirectories drops n leading directory segments from p,
// keeping the base name.
func WithoutLeadingDirectories(p string, n int) string {
	base := path.Base(p)
	if !HasDirectory(p) {
		return base
	}

	dirs := strings.Split(path.Dir(p), "/")
	if n >= len(dirs) {
		return base
	}
	if n < 0 {
		n = 0
	}
	return strings.Join(append(dirs[n:], base), "/")
}

// DirectoryPattern prefixes the directory part of p with the recursive
// wildcard, or returns the wildcard alone when p has no directory.
func DirectoryPattern(p string) string {
	if !HasDirectory(p) {
		return recursiveWildcard
	}
	return recursiveWildcard + "/" + path.Dir(p)
}

// Plan returns the pattern of every widening round for a root-relative,
// slash-separated path. Round d drops d leading directory segments; the plan
// ends with the first round whose remaining path has no directory, so it has
// max(1, directory depth) entries.
func Plan(rel string, suffixes []string) []Pattern {
	stem, optional, ext := FilenamePattern(rel, suffixes)

	var plan []Pattern
	for depth := 1; ; depth++ {
		partial := WithoutLeadingDirectories(rel, depth)
		plan = append(plan, Pattern{
			Depth:     depth,
			Directory: DirectoryPattern(partial),
			Stem:      stem,
			Suffixes:  optional,
			Ext:       ext,
		})
		if !HasDirectory(partial) {
			return plan
		}
	}
}

// escapeMeta backslash-escapes doublestar metacharacters.
func escapeMeta(s string) string {
	if !strings.ContainsAny(s, `*?[]{}\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
