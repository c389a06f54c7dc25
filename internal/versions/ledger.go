package versions

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/ROTl24/ai-web-generator/internal/apperr"
	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/store"
	"github.com/ROTl24/ai-web-generator/internal/ttlcache"
)

// Store is the persistence the ledger needs. *store.Store satisfies it.
type Store interface {
	EnsureApp(id int64, genType string, userID int64) error
	GetApp(id int64) (*store.App, error)
	CreateVersion(p store.CreateVersionParams) (*store.Version, error)
	FinishVersion(appID int64, version int, status string, reason string) (bool, error)
	SetCurrentVersion(appID int64, version int, status string) error
	GetVersion(appID int64, version int) (*store.Version, error)
	ListVersions(appID int64) ([]store.Version, error)
}

// Options configures a Ledger.
type Options struct {
	OutputRoot string
	DeployHost string

	// Generating tracks versions created but not yet finished.
	Generating ttlcache.Options
	// Current fronts the persisted current-version pointer.
	Current ttlcache.Options

	Logger *slog.Logger
}

// Ledger records version history and answers "which version is active".
type Ledger struct {
	store      Store
	outputRoot string
	deployHost string
	generating *ttlcache.Cache[int64, int]
	current    *ttlcache.Cache[int64, int]
	logger     *slog.Logger
}

// Cache bounds used when Options leaves them unset.
var (
	DefaultGenerating = ttlcache.Options{MaxEntries: 1000, AfterWrite: 30 * time.Minute, AfterAccess: 10 * time.Minute}
	DefaultCurrent    = ttlcache.Options{MaxEntries: 1000, AfterWrite: 10 * time.Minute, AfterAccess: 5 * time.Minute}
)

// NewLedger creates a Ledger. Call Close to stop the cache sweepers.
func NewLedger(st Store, opts Options) *Ledger {
	if opts.Generating.MaxEntries <= 0 {
		opts.Generating = withClock(DefaultGenerating, opts.Generating.Clock)
	}
	if opts.Current.MaxEntries <= 0 {
		opts.Current = withClock(DefaultCurrent, opts.Current.Clock)
	}
	return &Ledger{
		store:      st,
		outputRoot: opts.OutputRoot,
		deployHost: opts.DeployHost,
		generating: ttlcache.New[int64, int](opts.Generating),
		current:    ttlcache.New[int64, int](opts.Current),
		logger:     logging.Or(opts.Logger).With("component", "versions"),
	}
}

func withClock(o ttlcache.Options, clock func() time.Time) ttlcache.Options {
	o.Clock = clock
	return o
}

// Close stops the background cache sweeps.
func (l *Ledger) Close() {
	l.generating.Close()
	l.current.Close()
}

// OutputRoot is the directory every app's versions live under.
func (l *Ledger) OutputRoot() string { return l.outputRoot }

// ─── Applications ────────────────────────────────────────────────────────────

// EnsureApp registers an application if it is not known yet.
func (l *Ledger) EnsureApp(appID int64, genType GenType, userID int64) error {
	if appID <= 0 {
		return apperr.Validation("invalid app id %d", appID)
	}
	if !validGenTypes[genType] {
		return apperr.Validation("invalid generation type %q", genType)
	}
	if userID <= 0 {
		return apperr.Validation("invalid user id %d", userID)
	}
	if err := l.store.EnsureApp(appID, string(genType), userID); err != nil {
		return apperr.Operation("registering app", err)
	}
	return nil
}

// AppGenType returns the generation type recorded for an application.
func (l *Ledger) AppGenType(appID int64) (GenType, error) {
	app, err := l.loadApp(appID)
	if err != nil {
		return "", err
	}
	return GenType(app.GenType), nil
}

func (l *Ledger) loadApp(appID int64) (*store.App, error) {
	if appID <= 0 {
		return nil, apperr.Validation("invalid app id %d", appID)
	}
	app, err := l.store.GetApp(appID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("app %d not found", appID)
		}
		return nil, apperr.Operation("loading app", err)
	}
	return app, nil
}

// ─── Lifecycle ───────────────────────────────────────────────────────────────

// CreateVersion allocates the next version of appID in status
// generating and points the application at it. For build-requiring
// types the new directory is seeded from the previous version, or from
// the base directory when there is none; a failed copy is only logged.
func (l *Ledger) CreateVersion(ctx context.Context, appID int64, genType GenType, userID int64) (*Version, error) {
	if appID <= 0 {
		return nil, apperr.Validation("invalid app id %d", appID)
	}
	if !validGenTypes[genType] {
		return nil, apperr.Validation("invalid generation type %q", genType)
	}
	if userID <= 0 {
		return nil, apperr.Validation("invalid user id %d", userID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	app, err := l.loadApp(appID)
	if err != nil {
		return nil, err
	}
	previous := app.CurrentVersion

	row, err := l.store.CreateVersion(store.CreateVersionParams{
		AppID:     appID,
		GenType:   string(genType),
		CreatedBy: userID,
		CodeDir: func(n int) string {
			return VersionDir(l.outputRoot, genType, appID, n)
		},
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("app %d not found", appID)
		}
		return nil, apperr.Operation("creating version", err)
	}

	if genType.RequiresBuild() {
		src := VersionDir(l.outputRoot, genType, appID, previous)
		if err := seedVersionDir(src, row.CodeDir, previous <= 0); err != nil {
			l.logger.Warn("seeding version directory failed",
				"app_id", appID, "version", row.Number, "from", src, "error", err)
		}
	}

	l.generating.Set(appID, row.Number)
	l.current.Set(appID, row.Number)

	l.logger.Info("version created", "app_id", appID, "version", row.Number, "gen_type", genType)
	return fromRow(row), nil
}

// MarkReady finishes a generating version successfully.
func (l *Ledger) MarkReady(appID int64, version int) error {
	return l.finish(appID, version, VersionReady, "")
}

// MarkFailed finishes a generating version with a failure reason.
func (l *Ledger) MarkFailed(appID int64, version int, reason string) error {
	return l.finish(appID, version, VersionFailed, reason)
}

func (l *Ledger) finish(appID int64, version int, status VersionStatus, reason string) error {
	if appID <= 0 || version <= 0 {
		return nil
	}
	if err := CanTransition(VersionGenerating, status); err != nil {
		return apperr.System("finishing version %d: %v", version, err)
	}

	changed, err := l.store.FinishVersion(appID, version, string(status), reason)
	if err != nil {
		return apperr.Operation("updating version status", err)
	}
	if cached, ok := l.generating.GetIfPresent(appID); ok && cached == version {
		l.generating.Invalidate(appID)
	}
	if changed {
		l.logger.Info("version finished", "app_id", appID, "version", version, "status", status)
	}
	return nil
}

// Rollback makes an existing, non-failed version the current one. It is
// refused while a generation is in flight, since tool calls of that
// session resolve through the current pointer once the generating
// entry expires.
func (l *Ledger) Rollback(appID int64, version int) error {
	if appID <= 0 || version <= 0 {
		return apperr.Validation("invalid rollback target app=%d version=%d", appID, version)
	}
	if g, ok := l.generating.GetIfPresent(appID); ok {
		return apperr.Validation("app %d is generating version %d; roll back after it finishes", appID, g)
	}
	v, err := l.GetVersion(appID, version)
	if err != nil {
		return err
	}
	if err := CanRollbackTo(v); err != nil {
		return apperr.Operation(err.Error(), err)
	}

	if err := l.store.SetCurrentVersion(appID, version, string(AppReady)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("app %d not found", appID)
		}
		return apperr.Operation("rolling back", err)
	}
	l.current.Set(appID, version)

	l.logger.Info("version rolled back", "app_id", appID, "version", version)
	return nil
}

// ─── Lookups ─────────────────────────────────────────────────────────────────

// CurrentVersion returns the persisted current version, 0 when the app
// has none yet or appID is invalid.
func (l *Ledger) CurrentVersion(appID int64) (int, error) {
	if appID <= 0 {
		return 0, nil
	}
	if v, ok := l.current.GetIfPresent(appID); ok {
		return v, nil
	}
	app, err := l.loadApp(appID)
	if err != nil {
		return 0, err
	}
	l.current.Set(appID, app.CurrentVersion)
	return app.CurrentVersion, nil
}

// ResolveActiveVersion prefers the version being generated, then the
// current one. Lookup failures resolve to 0.
func (l *Ledger) ResolveActiveVersion(appID int64) int {
	if appID <= 0 {
		return 0
	}
	if v, ok := l.generating.GetIfPresent(appID); ok {
		return v
	}
	v, err := l.CurrentVersion(appID)
	if err != nil {
		l.logger.Warn("resolving active version", "app_id", appID, "error", err)
		return 0
	}
	return v
}

// Generating reports the version currently being generated, if any.
func (l *Ledger) Generating(appID int64) (int, bool) {
	return l.generating.GetIfPresent(appID)
}

// GetVersion loads one version.
func (l *Ledger) GetVersion(appID int64, version int) (*Version, error) {
	row, err := l.store.GetVersion(appID, version)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("version %d of app %d not found", version, appID)
		}
		return nil, apperr.Operation("loading version", err)
	}
	return fromRow(row), nil
}

// ListVersions returns every version of appID, newest first.
func (l *Ledger) ListVersions(appID int64) ([]Version, error) {
	if appID <= 0 {
		return nil, apperr.Validation("invalid app id %d", appID)
	}
	rows, err := l.store.ListVersions(appID)
	if err != nil {
		return nil, apperr.Operation("listing versions", err)
	}
	out := make([]Version, 0, len(rows))
	for i := range rows {
		out = append(out, *fromRow(&rows[i]))
	}
	return out, nil
}

// ─── Paths ───────────────────────────────────────────────────────────────────

// BuildBaseDir returns the unversioned directory of an app.
func (l *Ledger) BuildBaseDir(genType GenType, appID int64) string {
	return BaseDir(l.outputRoot, genType, appID)
}

// BuildVersionDir returns the directory of one version.
func (l *Ledger) BuildVersionDir(genType GenType, appID int64, version int) string {
	return VersionDir(l.outputRoot, genType, appID, version)
}

// ResolveActiveVersionDir returns the directory of the active version.
func (l *Ledger) ResolveActiveVersionDir(genType GenType, appID int64) string {
	return l.BuildVersionDir(genType, appID, l.ResolveActiveVersion(appID))
}

// PreviewURL returns the browsable URL of one version.
func (l *Ledger) PreviewURL(genType GenType, appID int64, version int) string {
	return PreviewURL(l.deployHost, genType, appID, version)
}

// DirExists reports whether dir exists and is a directory.
func DirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func fromRow(r *store.Version) *Version {
	v := &Version{
		AppID:     r.AppID,
		Number:    r.Number,
		GenType:   GenType(r.GenType),
		CodeDir:   r.CodeDir,
		Status:    VersionStatus(r.Status),
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
	if r.Reason != nil {
		v.Reason = *r.Reason
	}
	return v
}
