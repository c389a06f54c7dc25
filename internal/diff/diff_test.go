package diff

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ROTl24/ai-web-generator/internal/apperr"
	"github.com/ROTl24/ai-web-generator/internal/builder"
	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

// --- DiffFiles ---

func TestDiffFiles_SameDirectoryIsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"index.html": "<h1>hi</h1>", "src/a.js": "x"})

	got, err := DiffFiles(dir, dir)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiffFiles_SingleAddedFile(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeTree(t, a, map[string]string{"index.html": "same"})
	writeTree(t, b, map[string]string{"index.html": "same", "style.css": "body{}\nh1{}\n"})

	got, err := DiffFiles(a, b)
	require.NoError(t, err)
	require.Len(t, got, 1)

	e := got[0]
	assert.Equal(t, "style.css", e.Path)
	assert.Equal(t, Added, e.ChangeType)
	assert.Nil(t, e.BeforeHash)
	require.NotNil(t, e.AfterHash)
	assert.Len(t, *e.AfterHash, 64)
	require.NotNil(t, e.AfterLines)
	assert.Equal(t, 2, *e.AfterLines)
	assert.Nil(t, e.BeforeExcerpt)
	assert.Empty(t, e.Patch)
}

func TestDiffFiles_RemovedAndModifiedSorted(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeTree(t, a, map[string]string{"z.js": "old", "b.txt": "line1\nline2\n", "logo.png": "\x89PNG"})
	writeTree(t, b, map[string]string{"b.txt": "line1\nline3\n", "logo.png": "\x89PNG2"})

	got, err := DiffFiles(a, b)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b.txt", "logo.png", "z.js"}, []string{got[0].Path, got[1].Path, got[2].Path})

	mod := got[0]
	assert.Equal(t, Modified, mod.ChangeType)
	assert.NotEqual(t, *mod.BeforeHash, *mod.AfterHash)
	assert.Contains(t, mod.Patch, "-line2")
	assert.Contains(t, mod.Patch, "+line3")

	bin := got[1]
	assert.Equal(t, Modified, bin.ChangeType)
	assert.Nil(t, bin.AfterLines, "binary files carry no text info")
	assert.Empty(t, bin.Patch)

	rem := got[2]
	assert.Equal(t, Removed, rem.ChangeType)
	assert.NotNil(t, rem.BeforeHash)
	assert.Nil(t, rem.AfterHash)
}

func TestDiffFiles_IgnoresNoise(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeTree(t, b, map[string]string{
		"node_modules/vue/index.js": "x",
		"dist/index.html":           "x",
		".git/HEAD":                 "x",
		"src/debug.log":             "x",
		"src/App.vue":               "<template/>",
	})

	got, err := DiffFiles(a, b)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "src/App.vue", got[0].Path)
}

func TestDiffFiles_MissingDirIsEmpty(t *testing.T) {
	b := t.TempDir()
	writeTree(t, b, map[string]string{"a.md": "# a"})

	got, err := DiffFiles(filepath.Join(t.TempDir(), "missing"), b)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Added, got[0].ChangeType)
}

func TestDiffFiles_ExcerptIsCapped(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeTree(t, b, map[string]string{"big.txt": strings.Repeat("é", ExcerptLimit+50)})

	got, err := DiffFiles(a, b)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ExcerptLimit, len([]rune(*got[0].AfterExcerpt)))
}

// --- DiffVersions ---

type fakeLedger struct {
	root    string
	genType versions.GenType
	err     error
}

func (f fakeLedger) AppGenType(int64) (versions.GenType, error) { return f.genType, f.err }
func (f fakeLedger) BuildVersionDir(g versions.GenType, appID int64, v int) string {
	return versions.VersionDir(f.root, g, appID, v)
}
func (f fakeLedger) PreviewURL(g versions.GenType, appID int64, v int) string {
	return versions.PreviewURL("http://host/static", g, appID, v)
}

type fakeBuilder struct{ calls []string }

func (f *fakeBuilder) Build(_ context.Context, p string) (builder.Result, error) {
	f.calls = append(f.calls, p)
	return builder.Result{Success: true}, nil
}

type fakeSnapshotter struct{ failFor string }

func (f fakeSnapshotter) Snapshot(_ context.Context, u string) (string, error) {
	if u == f.failFor {
		return "", errors.New("browser crashed")
	}
	return "http://img/" + u[len(u)-1:], nil
}

func TestDiffVersions(t *testing.T) {
	root := t.TempDir()
	l := fakeLedger{root: root, genType: versions.GenVue}
	writeTree(t, l.BuildVersionDir(l.genType, 9, 1), map[string]string{"src/App.vue": "a"})
	writeTree(t, l.BuildVersionDir(l.genType, 9, 2), map[string]string{"src/App.vue": "b", "dist/index.html": "x"})

	b := &fakeBuilder{}
	c := &Comparer{
		Ledger:      l,
		Builder:     b,
		Snapshotter: fakeSnapshotter{failFor: l.PreviewURL(l.genType, 9, 1)},
		Logger:      logging.Discard(),
	}

	got, err := c.DiffVersions(context.Background(), 9, 1, 2, true)
	require.NoError(t, err)
	require.Len(t, got.Files, 1)
	assert.Equal(t, Modified, got.Files[0].ChangeType)
	assert.Equal(t, "http://host/static/vue_project_9/?version=2", got.ToPreviewURL)

	assert.Equal(t, []string{l.BuildVersionDir(l.genType, 9, 1)}, b.calls, "only the side without dist is built")
	assert.Empty(t, got.FromSnapshotURL, "a failed snapshot leaves the field empty")
	assert.Equal(t, "http://img/2", got.ToSnapshotURL)
}

func TestDiffVersions_Errors(t *testing.T) {
	root := t.TempDir()
	l := fakeLedger{root: root, genType: versions.GenHTML}
	writeTree(t, l.BuildVersionDir(l.genType, 3, 1), map[string]string{"index.html": "a"})
	c := &Comparer{Ledger: l}

	_, err := c.DiffVersions(context.Background(), 0, 1, 2, false)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = c.DiffVersions(context.Background(), 3, 0, 2, false)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = c.DiffVersions(context.Background(), 3, 1, 2, false)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	got, err := c.DiffVersions(context.Background(), 3, 1, 1, false)
	require.NoError(t, err)
	assert.NotNil(t, got.Files)
	assert.Empty(t, got.Files)
}
