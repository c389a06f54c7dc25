package filetools_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ROTl24/ai-web-generator/internal/filetools"
	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/store"
	"github.com/ROTl24/ai-web-generator/internal/ttlcache"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// --- Test helpers ---

// fakeLedger serves a fixed active version for every app.
type fakeLedger struct {
	mu      sync.Mutex
	root    string
	version int
	genType versions.GenType
	err     error
}

func (f *fakeLedger) ResolveActiveVersion(appID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

func (f *fakeLedger) AppGenType(appID int64) (versions.GenType, error) {
	return f.genType, f.err
}

func (f *fakeLedger) BuildVersionDir(g versions.GenType, appID int64, v int) string {
	return versions.VersionDir(f.root, g, appID, v)
}

func (f *fakeLedger) setVersion(v int) {
	f.mu.Lock()
	f.version = v
	f.mu.Unlock()
}

func newTestGuard(t *testing.T, l filetools.Ledger) *filetools.Guard {
	t.Helper()
	g := filetools.NewGuard(l, ttlcache.Options{MaxEntries: 1000, AfterWrite: 30 * time.Minute, AfterAccess: 10 * time.Minute}, logging.Discard())
	t.Cleanup(g.Close)
	return g
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// --- Write ---

func TestWrite_InterceptsSecondWrite(t *testing.T) {
	l := &fakeLedger{root: t.TempDir(), version: 1, genType: versions.GenVue}
	g := newTestGuard(t, l)
	ctx := context.Background()

	first := g.Write(ctx, 1, "./src/App.vue", "v1")
	if first.IsError {
		t.Fatalf("first write failed: %s", first.Text)
	}
	if !strings.HasPrefix(first.Text, "written: src/App.vue (1 files: [src/App.vue], version=1)") {
		t.Errorf("first.Text = %q", first.Text)
	}

	second := g.Write(ctx, 1, `.\src\App.vue`, "v2")
	if second.IsError {
		t.Fatalf("interception should not be an error: %s", second.Text)
	}
	if !strings.HasPrefix(second.Text, "Skipped: src/App.vue") {
		t.Errorf("second.Text = %q, want interception", second.Text)
	}

	target := filepath.Join(l.root, "vue_project_1", "v1", "src", "App.vue")
	if got := readFile(t, target); got != "v1" {
		t.Errorf("file content = %q, want v1", got)
	}
}

func TestWrite_AllowedAgainAfterClear(t *testing.T) {
	l := &fakeLedger{root: t.TempDir(), version: 1, genType: versions.GenHTML}
	g := newTestGuard(t, l)
	ctx := context.Background()

	g.Write(ctx, 3, "index.html", "a")
	g.Clear(3)
	if got := g.List(3); len(got) != 0 {
		t.Fatalf("List after Clear = %v, want empty", got)
	}

	res := g.Write(ctx, 3, "index.html", "b")
	if !strings.HasPrefix(res.Text, "written: index.html") {
		t.Fatalf("write after Clear = %q", res.Text)
	}
	if got := readFile(t, filepath.Join(l.root, "html_3", "v1", "index.html")); got != "b" {
		t.Errorf("content = %q, want b", got)
	}
}

func TestWrite_AllowedAgainInNewVersion(t *testing.T) {
	l := &fakeLedger{root: t.TempDir(), version: 1, genType: versions.GenHTML}
	g := newTestGuard(t, l)
	ctx := context.Background()

	g.Write(ctx, 3, "index.html", "a")
	l.setVersion(2)

	res := g.Write(ctx, 3, "index.html", "b")
	if !strings.Contains(res.Text, "version=2") {
		t.Fatalf("write in new version = %q", res.Text)
	}
	if got := readFile(t, filepath.Join(l.root, "html_3", "v2", "index.html")); got != "b" {
		t.Errorf("v2 content = %q, want b", got)
	}
}

func TestWrite_Errors(t *testing.T) {
	l := &fakeLedger{root: t.TempDir(), version: 1, genType: versions.GenHTML}
	g := newTestGuard(t, l)
	ctx := context.Background()

	if res := g.Write(ctx, 1, "  ", "x"); !res.IsError {
		t.Error("empty path should be an error result")
	}
	if res := g.Write(ctx, 1, "../../escape.txt", "x"); !res.IsError {
		t.Error("escaping path should be an error result")
	}
	if got := g.List(1); len(got) != 0 {
		t.Errorf("failed write left a record: %v", got)
	}

	l.err = errors.New("db down")
	if res := g.Write(ctx, 1, "a.txt", "x"); !res.IsError || !strings.Contains(res.Text, "db down") {
		t.Errorf("ledger failure result = %+v", res)
	}
}

func TestWrite_FailedWriteCanBeRetried(t *testing.T) {
	l := &fakeLedger{root: t.TempDir(), version: 1, genType: versions.GenHTML}
	g := newTestGuard(t, l)
	ctx := context.Background()

	// A regular file where a directory is needed makes MkdirAll fail.
	dir := filepath.Join(l.root, "html_1", "v1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src"), []byte("blocker"), 0o644); err != nil {
		t.Fatal(err)
	}

	if res := g.Write(ctx, 1, "src/app.js", "x"); !res.IsError {
		t.Fatalf("expected error, got %q", res.Text)
	}
	if err := os.Remove(filepath.Join(dir, "src")); err != nil {
		t.Fatal(err)
	}
	if res := g.Write(ctx, 1, "src/app.js", "x"); res.IsError {
		t.Fatalf("retry failed: %s", res.Text)
	}
}

func TestList_ReturnsCopy(t *testing.T) {
	l := &fakeLedger{root: t.TempDir(), version: 1, genType: versions.GenHTML}
	g := newTestGuard(t, l)
	ctx := context.Background()

	g.Write(ctx, 1, "b.css", "")
	g.Write(ctx, 1, "a.html", "")

	got := g.List(1)
	if strings.Join(got, ",") != "a.html,b.css" {
		t.Fatalf("List = %v", got)
	}
	got[0] = "mutated"
	if g.List(1)[0] != "a.html" {
		t.Error("List must return a copy")
	}
}

// --- Scenario: application 42 ---

func TestScenario_App42DuplicateIndex(t *testing.T) {
	st, err := store.New(store.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	root := t.TempDir()
	ledger := versions.NewLedger(st, versions.Options{
		OutputRoot: root,
		Generating: ttlcache.Options{MaxEntries: 10, AfterWrite: 30 * time.Minute},
		Current:    ttlcache.Options{MaxEntries: 10, AfterWrite: 10 * time.Minute},
		Logger:     logging.Discard(),
	})
	t.Cleanup(ledger.Close)

	if err := ledger.EnsureApp(42, versions.GenMultiFile, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.CreateVersion(context.Background(), 42, versions.GenMultiFile, 1); err != nil {
		t.Fatal(err)
	}
	if v, _ := ledger.CurrentVersion(42); v != 1 {
		t.Fatalf("CurrentVersion(42) = %d, want 1", v)
	}

	g := newTestGuard(t, ledger)
	ctx := context.Background()

	if res := g.Write(ctx, 42, "index.html", "<h1>first</h1>"); res.IsError {
		t.Fatalf("first write: %s", res.Text)
	}
	res := g.Write(ctx, 42, "index.html", "<h1>second</h1>")
	if !strings.Contains(res.Text, "[index.html]") || !strings.HasPrefix(res.Text, "Skipped") {
		t.Errorf("second write = %q, want interception listing [index.html]", res.Text)
	}

	path := filepath.Join(root, "multi_file_42", "v1", "index.html")
	if got := readFile(t, path); got != "<h1>first</h1>" {
		t.Errorf("index.html = %q, want first write", got)
	}
}
