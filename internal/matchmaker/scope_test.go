package matchmaker

import (
	"testing"
)

func TestScope(t *testing.T) {
	base := DefaultOptions()
	roots := []string{"/a", "/b"}
	want := NewResolver(nil, base, nil).Scope(roots)

	if got := NewResolver(nil, base, nil).Scope([]string{"/a/", "/b/./"}); got != want {
		t.Errorf("unclean roots changed the scope: %s != %s", got, want)
	}

	first := base
	first.Strategy = StrategyFirst
	suffixes := base
	suffixes.TestSuffixes = []string{"_test"}
	excluded := base
	excluded.Exclusions = []string{"**/vendor/**"}

	tests := []struct {
		name  string
		opts  Options
		roots []string
	}{
		{"strategy", first, roots},
		{"suffixes", suffixes, roots},
		{"exclusions", excluded, roots},
		{"fewer roots", base, roots[:1]},
		{"root order", base, []string{"/b", "/a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewResolver(nil, tt.opts, nil).Scope(tt.roots); got == want {
				t.Errorf("scope did not change: %s", got)
			}
		})
	}
}

func TestStrategyDefaultsToAll(t *testing.T) {
	if got := NewResolver(nil, Options{}, nil).Strategy(); got != StrategyAll {
		t.Errorf("Strategy() = %q, want %q", got, StrategyAll)
	}
}
