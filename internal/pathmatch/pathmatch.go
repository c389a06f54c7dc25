// Package pathmatch holds the ignore rules applied when walking a
// generated project, expressed as doublestar patterns over
// slash-separated relative paths.
package pathmatch

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Set is a list of doublestar patterns. A path is ignored when any
// pattern matches it.
type Set []string

// Listing hides dependency caches, VCS and editor metadata, build
// output and transient files from directory listings shown to the agent.
var Listing = Set{
	"**/node_modules", "**/.git", "**/dist", "**/build", "**/.DS_Store",
	"**/.env", "**/target", "**/.mvn", "**/.idea", "**/.vscode", "**/coverage",
	"**/*.log", "**/*.tmp", "**/*.cache", "**/*.lock",
}

// Diff excludes the same kind of noise from version comparison, but
// only at the project root, plus log and temp files anywhere.
var Diff = Set{
	"node_modules/**", ".git/**", ".idea/**", ".vscode/**", "dist/**",
	"**/*.log", "**/*.tmp",
}

// Match reports whether rel, or one of its parent directories, is
// ignored. rel may use either separator.
func (s Set) Match(rel string) bool {
	rel = strings.Trim(strings.ReplaceAll(rel, "\\", "/"), "/")
	if rel == "" || rel == "." {
		return false
	}
	for p := rel; p != "." && p != ""; p = path.Dir(p) {
		for _, pattern := range s {
			if ok, _ := doublestar.Match(pattern, p); ok {
				return true
			}
		}
		if !strings.Contains(p, "/") {
			break
		}
	}
	return false
}
