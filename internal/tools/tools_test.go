package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ROTl24/ai-web-generator/internal/builder"
	"github.com/ROTl24/ai-web-generator/internal/diff"
	"github.com/ROTl24/ai-web-generator/internal/filetools"
	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/store"
	"github.com/ROTl24/ai-web-generator/internal/ttlcache"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// --- Test helpers ---

type testEnv struct {
	ledger *versions.Ledger
	guard  *filetools.Guard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.New(store.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	l := versions.NewLedger(st, versions.Options{OutputRoot: t.TempDir(), DeployHost: "http://localhost:8123/static", Logger: logging.Discard()})
	t.Cleanup(l.Close)
	g := filetools.NewGuard(l, ttlcache.Options{MaxEntries: 100, AfterWrite: time.Hour}, logging.Discard())
	t.Cleanup(g.Close)
	return &testEnv{ledger: l, guard: g}
}

func (e *testEnv) newVersion(t *testing.T, appID int64, g versions.GenType) *versions.Version {
	t.Helper()
	if err := e.ledger.EnsureApp(appID, g, 1); err != nil {
		t.Fatalf("EnsureApp: %v", err)
	}
	v, err := e.ledger.CreateVersion(context.Background(), appID, g, 1)
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	return v
}

func call(t *testing.T, handle func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	return result
}

// isErrorResult checks if a CallToolResult represents an error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// --- File tools ---

func TestFileTools_Definitions(t *testing.T) {
	env := newTestEnv(t)
	ws := env.guard.Workspace
	names := map[string]mcp.Tool{
		"writeFile":    NewWriteFileTool(env.guard).Definition(),
		"readFile":     NewReadFileTool(ws).Definition(),
		"readDir":      NewReadDirTool(ws).Definition(),
		"deleteFile":   NewDeleteFileTool(ws).Definition(),
		"clear_writes": NewClearWritesTool(env.guard).Definition(),
	}
	for want, def := range names {
		if def.Name != want {
			t.Errorf("name = %q, want %q", def.Name, want)
		}
	}
}

func TestWriteFileTool_DuplicateIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVersion(t, 42, versions.GenMultiFile)
	tool := NewWriteFileTool(env.guard)

	first := call(t, tool.Handle, map[string]interface{}{"app_id": float64(42), "relativeFilePath": "index.html", "content": "<h1>one</h1>"})
	if isErrorResult(first) {
		t.Fatalf("expected success, got error: %s", getResultText(first))
	}

	second := call(t, tool.Handle, map[string]interface{}{"app_id": float64(42), "relativeFilePath": "./index.html", "content": "<h1>two</h1>"})
	if isErrorResult(second) {
		t.Fatalf("interception should not be an error: %s", getResultText(second))
	}
	if !strings.Contains(getResultText(second), "[index.html]") {
		t.Errorf("interception text = %q, want the written list", getResultText(second))
	}

	data, err := os.ReadFile(filepath.Join(v.CodeDir, "index.html"))
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if string(data) != "<h1>one</h1>" {
		t.Errorf("content = %q, want first write", data)
	}

	cleared := call(t, NewClearWritesTool(env.guard).Handle, map[string]interface{}{"app_id": float64(42)})
	if !strings.Contains(getResultText(cleared), "Cleared 1 tracked files") {
		t.Errorf("clear text = %q", getResultText(cleared))
	}
	third := call(t, tool.Handle, map[string]interface{}{"app_id": float64(42), "relativeFilePath": "index.html", "content": "<h1>three</h1>"})
	if !strings.HasPrefix(getResultText(third), "written: index.html") {
		t.Errorf("after clear = %q, want written", getResultText(third))
	}
}

func TestFileTools_MissingAppID(t *testing.T) {
	env := newTestEnv(t)
	result := call(t, NewReadFileTool(env.guard.Workspace).Handle, map[string]interface{}{"relativeFilePath": "a"})
	if !isErrorResult(result) {
		t.Fatal("expected error for missing app_id")
	}
}

func TestReadAndDeleteTools(t *testing.T) {
	env := newTestEnv(t)
	env.newVersion(t, 5, versions.GenVue)
	ws := env.guard.Workspace

	env.guard.Write(context.Background(), 5, "src/App.vue", "<template/>")
	env.guard.Write(context.Background(), 5, "src/components/Hello.vue", "<template/>")

	read := call(t, NewReadFileTool(ws).Handle, map[string]interface{}{"app_id": float64(5), "relativeFilePath": "src/App.vue"})
	if getResultText(read) != "<template/>" {
		t.Errorf("readFile = %q", getResultText(read))
	}

	listing := getResultText(call(t, NewReadDirTool(ws).Handle, map[string]interface{}{"app_id": float64(5)}))
	if !strings.Contains(listing, "src/components/Hello.vue") {
		t.Errorf("readDir = %q", listing)
	}

	protected := call(t, NewDeleteFileTool(ws).Handle, map[string]interface{}{"app_id": float64(5), "relativeFilePath": "src/App.vue"})
	if !isErrorResult(protected) {
		t.Errorf("deleting App.vue should be refused, got %q", getResultText(protected))
	}
	deleted := call(t, NewDeleteFileTool(ws).Handle, map[string]interface{}{"app_id": float64(5), "relativeFilePath": "src/components/Hello.vue"})
	if isErrorResult(deleted) {
		t.Errorf("delete failed: %s", getResultText(deleted))
	}
}

// --- Version tools ---

func TestVersionListAndRollback(t *testing.T) {
	env := newTestEnv(t)
	env.newVersion(t, 3, versions.GenHTML)
	if err := env.ledger.MarkReady(3, 1); err != nil {
		t.Fatal(err)
	}
	env.newVersion(t, 3, versions.GenHTML)
	if err := env.ledger.MarkFailed(3, 2, "boom"); err != nil {
		t.Fatal(err)
	}

	list := getResultText(call(t, NewVersionListTool(env.ledger).Handle, map[string]interface{}{"app_id": float64(3)}))
	if !strings.Contains(list, "| v2 (current) | failed |") {
		t.Errorf("list = %q", list)
	}
	if !strings.Contains(list, "http://localhost:8123/static/html_3/?version=1") {
		t.Errorf("list should carry preview urls: %q", list)
	}

	rb := NewVersionRollbackTool(env.ledger)
	if r := call(t, rb.Handle, map[string]interface{}{"app_id": float64(3), "version": float64(2)}); !strings.HasPrefix(getResultText(r), "OPERATION_ERROR") {
		t.Errorf("rollback to failed version = %q, want OPERATION_ERROR", getResultText(r))
	}
	r := call(t, rb.Handle, map[string]interface{}{"app_id": float64(3), "version": float64(1)})
	if isErrorResult(r) {
		t.Fatalf("rollback: %s", getResultText(r))
	}
	if cur, _ := env.ledger.CurrentVersion(3); cur != 1 {
		t.Errorf("current = %d, want 1", cur)
	}
}

func TestVersionDiffTool(t *testing.T) {
	env := newTestEnv(t)
	env.newVersion(t, 6, versions.GenHTML)
	env.guard.Write(context.Background(), 6, "index.html", "<p>1</p>")
	env.ledger.MarkReady(6, 1)
	env.newVersion(t, 6, versions.GenHTML)
	env.guard.Write(context.Background(), 6, "index.html", "<p>2</p>")

	tool := NewVersionDiffTool(&diff.Comparer{Ledger: env.ledger})
	result := call(t, tool.Handle, map[string]interface{}{"app_id": float64(6), "from": float64(1), "to": float64(2)})
	if isErrorResult(result) {
		t.Fatalf("diff: %s", getResultText(result))
	}
	if !strings.Contains(getResultText(result), `"changeType": "modified"`) {
		t.Errorf("diff = %q", getResultText(result))
	}

	missing := call(t, tool.Handle, map[string]interface{}{"app_id": float64(6), "from": float64(1), "to": float64(9)})
	if !strings.HasPrefix(getResultText(missing), "NOT_FOUND_ERROR") {
		t.Errorf("missing version = %q", getResultText(missing))
	}
}

// --- Build tools ---

type distRunner struct{ runs int }

func (r *distRunner) Run(_ context.Context, dir string, _ time.Duration, _ string, args ...string) (builder.Output, error) {
	r.runs++
	if len(args) == 2 && args[1] == "build" {
		return builder.Output{}, os.MkdirAll(filepath.Join(dir, builder.OutputDir), 0o755)
	}
	return builder.Output{}, nil
}

func TestBuildTools(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVersion(t, 8, versions.GenVue)
	env.guard.Write(context.Background(), 8, "package.json", "{}")

	o := builder.New(builder.Options{Runner: &distRunner{}, Logger: logging.Discard()})
	t.Cleanup(o.Close)

	status := NewBuildStatusTool(env.ledger, o)
	if text := getResultText(call(t, status.Handle, map[string]interface{}{"app_id": float64(8)})); !strings.HasPrefix(text, "No build recorded") {
		t.Errorf("status before build = %q", text)
	}

	result := call(t, NewBuildProjectTool(env.ledger, o).Handle, map[string]interface{}{"app_id": float64(8)})
	if isErrorResult(result) {
		t.Fatalf("build: %s", getResultText(result))
	}
	if _, err := os.Stat(filepath.Join(v.CodeDir, builder.OutputDir)); err != nil {
		t.Errorf("dist missing: %v", err)
	}

	text := getResultText(call(t, status.Handle, map[string]interface{}{"app_id": float64(8), "version": float64(1)}))
	if !strings.HasPrefix(text, "success: done (100%)") {
		t.Errorf("status = %q", text)
	}
}

func TestBuildTools_StaticTypeHasNothingToBuild(t *testing.T) {
	env := newTestEnv(t)
	env.newVersion(t, 9, versions.GenHTML)
	o := builder.New(builder.Options{Runner: &distRunner{}, Logger: logging.Discard()})
	t.Cleanup(o.Close)

	result := call(t, NewBuildProjectTool(env.ledger, o).Handle, map[string]interface{}{"app_id": float64(9)})
	if !isErrorResult(result) {
		t.Errorf("expected error, got %q", getResultText(result))
	}
}
