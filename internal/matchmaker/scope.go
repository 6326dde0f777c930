package matchmaker

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"
)

// Strategy returns the root strategy the resolver runs with
func (r *Resolver) Strategy() RootStrategy {
	return r.opts.Strategy
}

// Scope fingerprints everything besides the file tree that decides a
// Resolve outcome for roots: the strategy, the ordered roots, the test
// suffixes and the exclusions. Two calls with equal scopes over an unchanged
// tree give the same answer.
func (r *Resolver) Scope(roots []string) string {
	parts := []string{"strategy:" + string(r.opts.Strategy)}
	for _, root := range roots {
		parts = append(parts, "root:"+filepath.Clean(root))
	}
	for _, suffix := range r.opts.TestSuffixes {
		parts = append(parts, "suffix:"+suffix)
	}
	for _, ex := range r.opts.Exclusions {
		parts = append(parts, "exclude:"+ex)
	}
	parts = append(parts,
		"vcs:"+strconv.FormatBool(r.opts.ExcludeVcsIgnores),
		"sort:"+strconv.FormatBool(r.opts.SortMatches),
	)

	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:16])
}
