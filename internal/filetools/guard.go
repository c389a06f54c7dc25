package filetools

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/ttlcache"
)

// pathSet is the set of normalized paths written during one session.
type pathSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newPathSet() *pathSet {
	return &pathSet{paths: make(map[string]struct{})}
}

// reserve adds p and reports whether it was absent.
func (s *pathSet) reserve(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.paths[p]; seen {
		return false
	}
	s.paths[p] = struct{}{}
	return true
}

func (s *pathSet) release(p string) {
	s.mu.Lock()
	delete(s.paths, p)
	s.mu.Unlock()
}

func (s *pathSet) sorted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Guard intercepts repeated writes of the same file within one
// generation session. A session is one (application, active version)
// pair; its record expires on its own and expiry never touches files.
type Guard struct {
	*Workspace
	tracker *ttlcache.Cache[string, *pathSet]
	logger  *slog.Logger
}

// NewGuard creates a Guard. Call Close to stop the tracker sweep.
func NewGuard(l Ledger, opts ttlcache.Options, logger *slog.Logger) *Guard {
	return &Guard{
		Workspace: NewWorkspace(l),
		tracker:   ttlcache.New[string, *pathSet](opts),
		logger:    logging.Or(logger).With("component", "write_guard"),
	}
}

// Close stops the tracker sweep.
func (g *Guard) Close() {
	g.tracker.Close()
}

func trackingKey(appID int64, version int) string {
	return fmt.Sprintf("%d:%d", appID, version)
}

// Write stores content at relativePath inside the active version of
// appID unless that path was already written in this session, in which
// case nothing is written and the returned text tells the agent which
// files are done.
func (g *Guard) Write(ctx context.Context, appID int64, relativePath, content string) Result {
	normalized := NormalizeRelativePath(relativePath)
	if normalized == "" {
		return fail("Error: file path is required")
	}
	if err := ctx.Err(); err != nil {
		return fail("Error: write of %s cancelled: %v", normalized, err)
	}

	root, version, err := g.Root(appID)
	if err != nil {
		return fail("Error: %v", err)
	}

	set := g.tracker.GetOrInsert(trackingKey(appID, version), newPathSet)
	if !set.reserve(normalized) {
		written := set.sorted()
		g.logger.Info("duplicate write intercepted", "app_id", appID, "version", version, "path", normalized)
		return ok("Skipped: %s was already written in this session (version %d). "+
			"Files written so far (%d): [%s]. Do not write them again; continue with the remaining files, "+
			"or finish if the project is complete.",
			normalized, version, len(written), strings.Join(written, ", "))
	}

	target, err := resolveIn(root, normalized)
	if err == nil {
		err = writeFile(target, content)
	}
	if err != nil {
		set.release(normalized)
		g.logger.Warn("write failed", "app_id", appID, "version", version, "path", normalized, "error", err)
		return fail("Error: writing %s: %v", normalized, err)
	}

	written := set.sorted()
	return ok("written: %s (%d files: [%s], version=%d)",
		normalized, len(written), strings.Join(written, ", "), version)
}

// Clear forgets every path written in the active session of appID, so
// the agent may rewrite them. Used when a full regeneration is requested.
func (g *Guard) Clear(appID int64) {
	version := g.ledger.ResolveActiveVersion(appID)
	g.tracker.Invalidate(trackingKey(appID, version))
}

// List returns the paths written in the active session of appID.
func (g *Guard) List(appID int64) []string {
	version := g.ledger.ResolveActiveVersion(appID)
	set, found := g.tracker.GetIfPresent(trackingKey(appID, version))
	if !found {
		return []string{}
	}
	return set.sorted()
}

func writeFile(target, content string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(target, []byte(content), 0o644)
}
