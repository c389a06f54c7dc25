// Package diff compares the code directories of two versions of an
// application and reports the files that changed.
package diff

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ROTl24/ai-web-generator/internal/pathmatch"
)

// ChangeType classifies one path.
type ChangeType string

const (
	Added     ChangeType = "added"
	Removed   ChangeType = "removed"
	Modified  ChangeType = "modified"
	Unchanged ChangeType = "unchanged"
)

// ExcerptLimit caps the leading excerpt of a text file, in characters.
const ExcerptLimit = 2000

// FileDiffEntry describes one changed path. Pointer fields are nil for
// an absent side, or when the file is not text.
type FileDiffEntry struct {
	Path          string     `json:"path"`
	ChangeType    ChangeType `json:"changeType"`
	BeforeHash    *string    `json:"beforeSha"`
	AfterHash     *string    `json:"afterSha"`
	BeforeLines   *int       `json:"beforeLines"`
	AfterLines    *int       `json:"afterLines"`
	BeforeExcerpt *string    `json:"beforeExcerpt"`
	AfterExcerpt  *string    `json:"afterExcerpt"`
	Patch         string     `json:"patch,omitempty"`
}

var textExtensions = map[string]bool{
	".html": true, ".css": true, ".js": true, ".ts": true, ".vue": true,
	".json": true, ".md": true, ".txt": true, ".yml": true, ".yaml": true,
	".xml": true, ".svg": true,
}

// IsText reports whether name has an extension treated as text.
func IsText(name string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(name))]
}

// DiffFiles compares baseDir with targetDir. Unchanged files are left
// out and the result is sorted by path. A missing directory counts as
// empty.
func DiffFiles(baseDir, targetDir string) ([]FileDiffEntry, error) {
	base, err := listFiles(baseDir)
	if err != nil {
		return nil, err
	}
	target, err := listFiles(targetDir)
	if err != nil {
		return nil, err
	}

	paths := make(map[string]struct{}, len(base)+len(target))
	for p := range base {
		paths[p] = struct{}{}
	}
	for p := range target {
		paths[p] = struct{}{}
	}

	var out []FileDiffEntry
	for p := range paths {
		e, err := compare(p, base[p], target[p])
		if err != nil {
			return nil, err
		}
		if e.ChangeType != Unchanged {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func compare(rel, before, after string) (FileDiffEntry, error) {
	e := FileDiffEntry{Path: rel}
	var err error
	if before != "" {
		if e.BeforeHash, err = hashFile(before); err != nil {
			return e, err
		}
	}
	if after != "" {
		if e.AfterHash, err = hashFile(after); err != nil {
			return e, err
		}
	}

	switch {
	case before == "":
		e.ChangeType = Added
	case after == "":
		e.ChangeType = Removed
	case *e.BeforeHash == *e.AfterHash:
		e.ChangeType = Unchanged
		return e, nil
	default:
		e.ChangeType = Modified
	}

	if !IsText(rel) {
		return e, nil
	}
	var beforeText, afterText string
	if before != "" {
		beforeText = readText(before)
		e.BeforeLines, e.BeforeExcerpt = textInfo(beforeText)
	}
	if after != "" {
		afterText = readText(after)
		e.AfterLines, e.AfterExcerpt = textInfo(afterText)
	}
	if e.ChangeType == Modified {
		e.Patch = unifiedPatch(beforeText, afterText)
	}
	return e, nil
}

// listFiles maps slash-separated relative paths to absolute file paths.
func listFiles(root string) (map[string]string, error) {
	files := make(map[string]string)
	if strings.TrimSpace(root) == "" {
		return files, nil
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return files, nil
	}

	err = filepath.WalkDir(root, func(full string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, full)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if pathmatch.Diff.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files[rel] = full
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	return files, nil
}

func hashFile(p string) (*string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", p, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hashing %s: %w", p, err)
	}
	sum := hex.EncodeToString(h.Sum(nil))
	return &sum, nil
}

// readText returns "" for unreadable files; excerpts are best effort.
func readText(p string) string {
	data, err := os.ReadFile(p)
	if err != nil {
		return ""
	}
	return string(data)
}

func textInfo(s string) (*int, *string) {
	lines := countLines(s)
	excerpt := truncate(s, ExcerptLimit)
	return &lines, &excerpt
}

func countLines(s string) int {
	n := 0
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, 64*1024), len(s)+1)
	for sc.Scan() {
		n++
	}
	return n
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}

func unifiedPatch(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	return dmp.PatchToText(dmp.PatchMake(before, diffs))
}
