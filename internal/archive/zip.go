// Package archive packs a generated project into a zip file for
// download.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ROTl24/ai-web-generator/internal/pathmatch"
)

// ErrNoProject is returned when the project directory does not exist.
var ErrNoProject = errors.New("project directory does not exist")

// Excluded is what a download leaves out: dependency caches, VCS and
// editor metadata, build output, logs and temp files.
var Excluded = pathmatch.Diff

// WriteZip streams the regular files under root to w as a zip archive,
// skipping paths matched by ignore. Entry names are slash-separated and
// relative to root. It returns the number of files written.
func WriteZip(ctx context.Context, w io.Writer, root string, ignore pathmatch.Set) (int, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return 0, fmt.Errorf("%w: %s", ErrNoProject, root)
	}

	zw := zip.NewWriter(w)
	n := 0
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)
		if ignore.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := addFile(zw, p, rel); err != nil {
			return err
		}
		n++
		return nil
	})
	if walkErr != nil {
		_ = zw.Close()
		return n, walkErr
	}
	if err := zw.Close(); err != nil {
		return n, fmt.Errorf("closing zip: %w", err)
	}
	return n, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header for %s: %w", name, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// FileName is the download name of one version of an app.
func FileName(genType string, appID int64, version int) string {
	if version <= 0 {
		return fmt.Sprintf("%s_%d.zip", genType, appID)
	}
	return fmt.Sprintf("%s_%d_v%d.zip", genType, appID, version)
}
