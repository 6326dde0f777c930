package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sigerrors "sigother/internal/errors"
	"sigother/internal/lookup"
	"sigother/internal/paths"
	"sigother/internal/testutil"
)

// withFlags points the package-level flags at a project and restores them.
func withFlags(t *testing.T, project string) {
	t.Helper()
	saved := struct {
		project, strategy, format string
		roots                     []string
		noCache, quiet            bool
	}{projectFlag, resolveStrategy, resolveFormat, resolveRoots, resolveNoCache, quietFlag}

	projectFlag = project
	resolveStrategy = ""
	resolveFormat = "human"
	resolveRoots = nil
	resolveNoCache = false
	quietFlag = true

	t.Cleanup(func() {
		projectFlag = saved.project
		resolveStrategy = saved.strategy
		resolveFormat = saved.format
		resolveRoots = saved.roots
		resolveNoCache = saved.noCache
		quietFlag = saved.quiet
	})
}

func TestResolveFileHuman(t *testing.T) {
	p := testutil.NewLayout(t, "coffee")
	withFlags(t, p.Root)

	var stdout, stderr bytes.Buffer
	found, err := resolveFile(context.Background(), &stdout, &stderr, p.Path("lib/release-notes-view.coffee"))
	if err != nil {
		t.Fatalf("resolveFile failed: %v", err)
	}
	if !found {
		t.Fatal("expected a complement")
	}
	want := p.Path("spec/release-notes-view-spec.coffee")
	if strings.TrimSpace(stdout.String()) != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
}

func TestResolveFileNotFound(t *testing.T) {
	p := testutil.NewLayout(t, "lonely")
	withFlags(t, p.Root)

	var stdout, stderr bytes.Buffer
	found, err := resolveFile(context.Background(), &stdout, &stderr, p.Path("lib/main.coffee"))
	if err != nil {
		t.Fatalf("resolveFile failed: %v", err)
	}
	if found {
		t.Error("lonely file should have no complement")
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout should be empty, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), notFoundMessage) {
		t.Errorf("stderr = %q, want %q", stderr.String(), notFoundMessage)
	}
}

func TestResolveFileJSONUsesCache(t *testing.T) {
	p := testutil.NewLayout(t, "rails")
	withFlags(t, p.Root)
	resolveFormat = "json"

	run := func() lookup.Result {
		t.Helper()
		var stdout, stderr bytes.Buffer
		if _, err := resolveFile(context.Background(), &stdout, &stderr, p.Path("test/models/post_test.rb")); err != nil {
			t.Fatalf("resolveFile failed: %v", err)
		}
		var res lookup.Result
		if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
			t.Fatalf("invalid JSON %q: %v", stdout.String(), err)
		}
		return res
	}

	first := run()
	if !first.Found || first.Complement != p.Path("app/models/post.rb") || first.Source != lookup.SourceScan {
		t.Errorf("first = %+v", first)
	}
	second := run()
	if second.Source != lookup.SourceCache || second.Complement != first.Complement {
		t.Errorf("second = %+v", second)
	}

	resolveNoCache = true
	third := run()
	if third.Source != lookup.SourceScan {
		t.Errorf("--no-cache result = %+v", third)
	}
}

func TestResolveFileExplicitRoots(t *testing.T) {
	p := testutil.NewLayout(t, "js")
	other := testutil.NewProject(t, "test/views/hunk-view.test.js")
	withFlags(t, p.Root)

	p.Remove("test/views/hunk-view.test.js")
	resolveRoots = []string{p.Root, other.Root}

	var stdout, stderr bytes.Buffer
	found, err := resolveFile(context.Background(), &stdout, &stderr, p.Path("lib/views/hunk-view.js"))
	if err != nil {
		t.Fatal(err)
	}
	if !found || strings.TrimSpace(stdout.String()) != other.Path("test/views/hunk-view.test.js") {
		t.Errorf("found=%v stdout=%q", found, stdout.String())
	}

	stdout.Reset()
	resolveStrategy = "first"
	resolveNoCache = true
	found, err = resolveFile(context.Background(), &stdout, &stderr, p.Path("lib/views/hunk-view.js"))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Errorf("strategy first should stay in the owning root, got %q", stdout.String())
	}
}

func TestResolveFileErrors(t *testing.T) {
	p := testutil.NewLayout(t, "js")
	outside := testutil.NewProject(t, "x.js")
	withFlags(t, p.Root)

	var stdout, stderr bytes.Buffer
	_, err := resolveFile(context.Background(), &stdout, &stderr, outside.Path("x.js"))
	if !sigerrors.Is(err, sigerrors.PathOutsideRoots) {
		t.Errorf("err = %v, want %s", err, sigerrors.PathOutsideRoots)
	}

	resolveFormat = "xml"
	if _, err := resolveFile(context.Background(), &stdout, &stderr, p.Path("lib/views/hunk-view.js")); err == nil {
		t.Error("expected error for unsupported format")
	}

	resolveFormat = "human"
	resolveStrategy = "sideways"
	if _, err := resolveFile(context.Background(), &stdout, &stderr, p.Path("lib/views/hunk-view.js")); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestPrintErrorShowsFixes(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, sigerrors.New(sigerrors.PathOutsideRoots, "x is not inside any project root", nil))

	out := buf.String()
	if !strings.Contains(out, "PATH_OUTSIDE_ROOTS") {
		t.Errorf("missing code: %q", out)
	}
	if !strings.Contains(out, "Suggested fixes:") {
		t.Errorf("missing fixes: %q", out)
	}
}

func TestCacheExportImport(t *testing.T) {
	p := testutil.NewLayout(t, "octokit")
	withFlags(t, p.Root)

	var stdout, stderr bytes.Buffer
	if _, err := resolveFile(context.Background(), &stdout, &stderr, p.Path("lib/octokit.rb")); err != nil {
		t.Fatal(err)
	}

	a, err := loadApp(p.Root, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if err := a.openCache(true); err != nil {
		t.Fatal(err)
	}
	cache := a.pairCache()

	for _, name := range []string{"pairs.json", "pairs.yaml.zst", "pairs.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			n, err := exportCache(cache, path, "", nil)
			if err != nil {
				t.Fatalf("exportCache failed: %v", err)
			}
			if n != 2 {
				t.Errorf("exported %d entries, want 2", n)
			}

			imported, err := importCache(cache, path, "", true)
			if err != nil {
				t.Fatalf("importCache failed: %v", err)
			}
			if imported != 2 {
				t.Errorf("imported %d entries, want 2", imported)
			}

			entry, ok, err := cache.Get(p.Path("spec/octokit_spec.rb"))
			if err != nil || !ok || entry.Complement != p.Path("lib/octokit.rb") {
				t.Errorf("Get after import = %+v, %v, %v", entry, ok, err)
			}
		})
	}

	var out bytes.Buffer
	if _, err := exportCache(cache, "-", "yaml", &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "complement:") {
		t.Errorf("yaml export to stdout = %q", out.String())
	}

	if _, err := exportCache(cache, "pairs.out", "xml", nil); !sigerrors.Is(err, sigerrors.InvalidFormat) {
		t.Errorf("err = %v, want %s", err, sigerrors.InvalidFormat)
	}

	cacheFormat = "json"
	defer func() { cacheFormat = "human" }()
	out.Reset()
	if err := writeCacheStats(&out, a, cache); err != nil {
		t.Fatal(err)
	}
	var stats CacheStatsResponse
	if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
		t.Fatalf("invalid stats JSON: %v", err)
	}
	if stats.Stats.Pairs != 2 || stats.Database != paths.DatabasePath(p.Root) {
		t.Errorf("stats = %+v", stats)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	p := testutil.NewProject(t, "lib/a.js")
	withFlags(t, p.Root)

	path, err := initConfig(p.Root, false)
	if err != nil {
		t.Fatalf("initConfig failed: %v", err)
	}
	if path != paths.ConfigPath(p.Root) {
		t.Errorf("path = %q", path)
	}
	if _, err := initConfig(p.Root, false); err == nil {
		t.Error("second init without --force should fail")
	}
	if _, err := initConfig(p.Root, true); err != nil {
		t.Errorf("init --force failed: %v", err)
	}

	saved := configFormat
	defer func() { configFormat = saved }()

	configFormat = "toml"
	var out bytes.Buffer
	if err := showConfig(&out, p.Root); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "[roots]") || !strings.Contains(out.String(), `strategy = "all"`) {
		t.Errorf("toml output:\n%s", out.String())
	}

	configFormat = "json"
	out.Reset()
	if err := showConfig(&out, p.Root); err != nil {
		t.Fatal(err)
	}
	var resp ConfigShowResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.UsedDefaults || resp.ConfigPath != path {
		t.Errorf("resp = %+v", resp)
	}
}

func TestListEnvVars(t *testing.T) {
	var out bytes.Buffer
	listEnvVars(&out)
	for _, want := range []string{"SIGOTHER_CONFIG_PATH", "SIGOTHER_ROOTS_STRATEGY", "roots.strategy"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %s", want)
		}
	}
	if strings.Contains(out.String(), "Invalid values") {
		t.Errorf("unexpected invalid section:\n%s", out.String())
	}
}

func TestListEnvVarsReportsMalformedValues(t *testing.T) {
	t.Setenv("SIGOTHER_SCAN_MAX_FILES", "abc")

	var out bytes.Buffer
	listEnvVars(&out)
	if !strings.Contains(out.String(), "Invalid values") || !strings.Contains(out.String(), `SIGOTHER_SCAN_MAX_FILES="abc"`) {
		t.Errorf("output does not report the malformed value:\n%s", out.String())
	}
}

func TestFindProjectRootFallsBackToStart(t *testing.T) {
	withFlags(t, "")
	dir := t.TempDir()

	root, err := findProjectRoot(dir)
	if err != nil {
		t.Fatal(err)
	}
	// Some ancestor of the temp dir may carry a marker; either way the
	// result contains dir.
	if !strings.HasPrefix(dir, root) {
		t.Errorf("root %q does not contain %q", root, dir)
	}

	projectFlag = filepath.Join(dir, "missing")
	if _, err := findProjectRoot(dir); !sigerrors.Is(err, sigerrors.RootNotFound) {
		t.Errorf("err = %v, want %s", err, sigerrors.RootNotFound)
	}
}

func TestAppRootsDedupes(t *testing.T) {
	p := testutil.NewProject(t, "lib/a.js")
	withFlags(t, p.Root)

	a, err := loadApp(p.Root, os.Stderr)
	if err != nil {
		t.Fatal(err)
	}
	a.cfg.Roots.Extra = []string{"vendor", p.Root}

	roots := a.roots(nil)
	if len(roots) != 2 || roots[0] != p.Root || roots[1] != p.Path("vendor") {
		t.Errorf("roots = %v", roots)
	}

	explicit := a.roots([]string{"/a", "/a", "/b"})
	if len(explicit) != 2 {
		t.Errorf("explicit roots = %v", explicit)
	}
}
