// Package filetools implements the file operations the generating agent
// calls while it builds a project: guarded writes, reads, directory
// listings and deletes.
//
// Every operation returns a Result instead of an error. The text is fed
// back to the agent as conversational feedback, so a failed call must
// never abort the surrounding agent loop.
package filetools

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Result is the outcome of one tool call.
type Result struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

func ok(format string, args ...any) Result {
	return Result{Text: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Result {
	return Result{Text: fmt.Sprintf(format, args...), IsError: true}
}

var drivePrefix = regexp.MustCompile(`^[a-zA-Z]:[\\/]`)

// HasDrivePrefix reports whether p starts with a Windows drive root
// such as C:\ or C:/.
func HasDrivePrefix(p string) bool {
	return drivePrefix.MatchString(p)
}

// NormalizeRelativePath turns an agent-supplied path into the key used
// for dedup and resolution: backslashes become slashes, a leading ./ is
// dropped and leading slashes are stripped so the path cannot escape to
// the filesystem root. Drive-rooted paths are returned unchanged.
func NormalizeRelativePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || HasDrivePrefix(p) {
		return p
	}
	p = strings.ReplaceAll(p, "\\", "/")
	for {
		switch {
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/"):
			p = strings.TrimLeft(p, "/")
		default:
			return p
		}
	}
}

// resolveIn joins a normalized path onto root. Drive-rooted paths are
// used as they are; anything else must stay inside root.
func resolveIn(root, normalized string) (string, error) {
	if HasDrivePrefix(normalized) {
		return normalized, nil
	}
	target := filepath.Join(root, filepath.FromSlash(normalized))
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", normalized, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the project directory", normalized)
	}
	return target, nil
}
