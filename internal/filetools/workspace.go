package filetools

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ROTl24/ai-web-generator/internal/pathmatch"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// Ledger is the part of the version ledger the tools need to find the
// active project directory of an application.
type Ledger interface {
	ResolveActiveVersion(appID int64) int
	AppGenType(appID int64) (versions.GenType, error)
	BuildVersionDir(genType versions.GenType, appID int64, version int) string
}

// protectedFiles cannot be deleted by the agent, wherever they live.
var protectedFiles = map[string]bool{
	"package.json":       true,
	"package-lock.json":  true,
	"yarn.lock":          true,
	"pnpm-lock.yaml":     true,
	"vite.config.js":     true,
	"vite.config.ts":     true,
	"vue.config.js":      true,
	"tsconfig.json":      true,
	"tsconfig.app.json":  true,
	"tsconfig.node.json": true,
	"index.html":         true,
	"main.js":            true,
	"main.ts":            true,
	"app.vue":            true,
	".gitignore":         true,
	"readme.md":          true,
}

// IsProtected reports whether the base name of p is a project-critical
// file. The comparison ignores case.
func IsProtected(p string) bool {
	return protectedFiles[strings.ToLower(path.Base(strings.ReplaceAll(p, "\\", "/")))]
}

// Workspace resolves agent paths against an application's active
// version directory. It carries no dedup state.
type Workspace struct {
	ledger Ledger
}

// NewWorkspace creates a Workspace over the ledger.
func NewWorkspace(l Ledger) *Workspace {
	return &Workspace{ledger: l}
}

// Root returns the active version directory of appID and its number.
func (w *Workspace) Root(appID int64) (string, int, error) {
	if appID <= 0 {
		return "", 0, fmt.Errorf("invalid app id %d", appID)
	}
	genType, err := w.ledger.AppGenType(appID)
	if err != nil {
		return "", 0, err
	}
	version := w.ledger.ResolveActiveVersion(appID)
	return w.ledger.BuildVersionDir(genType, appID, version), version, nil
}

// Resolve normalizes p and maps it into appID's active version directory.
func (w *Workspace) Resolve(appID int64, p string) (target, normalized string, version int, err error) {
	normalized = NormalizeRelativePath(p)
	root, version, err := w.Root(appID)
	if err != nil {
		return "", normalized, 0, err
	}
	if normalized == "" {
		return root, normalized, version, nil
	}
	target, err = resolveIn(root, normalized)
	return target, normalized, version, err
}

// ReadFile returns the content of one project file.
func (w *Workspace) ReadFile(appID int64, p string) Result {
	target, normalized, _, err := w.Resolve(appID, p)
	if err != nil {
		return fail("Error: %v", err)
	}
	if normalized == "" {
		return fail("Error: file path is required")
	}

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return fail("Error: file %s does not exist", normalized)
		}
		return fail("Error: reading %s: %v", normalized, err)
	}
	if !info.Mode().IsRegular() {
		return fail("Error: %s is not a regular file", normalized)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return fail("Error: reading %s: %v", normalized, err)
	}
	return ok("%s", data)
}

// ReadDir lists the files under p (the project root when empty),
// recursively, skipping pathmatch.Listing.
func (w *Workspace) ReadDir(appID int64, p string) Result {
	target, normalized, version, err := w.Resolve(appID, p)
	if err != nil {
		return fail("Error: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		if normalized == "" {
			return ok("Project is empty (version %d).", version)
		}
		return fail("Error: directory %s does not exist", normalized)
	}

	var entries []string
	walkErr := filepath.WalkDir(target, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(target, full)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)
		if pathmatch.Listing.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			entries = append(entries, rel+"/")
			return nil
		}
		entries = append(entries, rel)
		return nil
	})
	if walkErr != nil {
		return fail("Error: listing %s: %v", displayPath(normalized), walkErr)
	}
	sort.Strings(entries)

	var b strings.Builder
	fmt.Fprintf(&b, "Files in %s (version %d):\n", displayPath(normalized), version)
	if len(entries) == 0 {
		b.WriteString("(empty)\n")
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	return ok("%s", b.String())
}

// DeleteFile removes one regular file, refusing protected names.
func (w *Workspace) DeleteFile(appID int64, p string) Result {
	target, normalized, _, err := w.Resolve(appID, p)
	if err != nil {
		return fail("Error: %v", err)
	}
	if normalized == "" {
		return fail("Error: file path is required")
	}
	if IsProtected(normalized) {
		return fail("Error: %s is a protected project file and cannot be deleted", normalized)
	}

	info, err := os.Lstat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return ok("Warning: file %s does not exist, nothing deleted", normalized)
		}
		return fail("Error: deleting %s: %v", normalized, err)
	}
	if !info.Mode().IsRegular() {
		return fail("Error: %s is not a regular file", normalized)
	}
	if err := os.Remove(target); err != nil {
		return fail("Error: deleting %s: %v", normalized, err)
	}
	return ok("deleted: %s", normalized)
}

func displayPath(normalized string) string {
	if normalized == "" {
		return "project root"
	}
	return normalized
}
