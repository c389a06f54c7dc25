package versions

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// seedSkip names directories that are never carried into a new version.
// Dependencies are reinstalled and bundles rebuilt per version.
var seedSkip = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
}

// seedVersionDir copies src into dst, skipping seedSkip. When src is the
// app's base directory its top-level v{n} directories are skipped too.
// A missing src leaves dst empty.
func seedVersionDir(src, dst string, fromBase bool) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if !DirExists(src) {
		return nil
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if seedSkip[d.Name()] || (fromBase && filepath.Dir(rel) == "." && isVersionDirName(d.Name())) {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, filepath.Join(dst, rel))
	})
}

func isVersionDirName(name string) bool {
	if len(name) < 2 || name[0] != 'v' {
		return false
	}
	for _, r := range name[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
