package diff

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ROTl24/ai-web-generator/internal/apperr"
	"github.com/ROTl24/ai-web-generator/internal/builder"
	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// VersionDiff is the comparison of two versions of one application.
type VersionDiff struct {
	AppID           int64            `json:"appId"`
	FromVersion     int              `json:"fromVersion"`
	ToVersion       int              `json:"toVersion"`
	GenType         versions.GenType `json:"codeGenType"`
	FromPreviewURL  string           `json:"fromPreviewUrl"`
	ToPreviewURL    string           `json:"toPreviewUrl"`
	FromSnapshotURL string           `json:"fromSnapshotUrl,omitempty"`
	ToSnapshotURL   string           `json:"toSnapshotUrl,omitempty"`
	Files           []FileDiffEntry  `json:"fileDiffs"`
}

// Ledger is the part of the version ledger the comparer reads.
type Ledger interface {
	AppGenType(appID int64) (versions.GenType, error)
	BuildVersionDir(genType versions.GenType, appID int64, version int) string
	PreviewURL(genType versions.GenType, appID int64, version int) string
}

// Builder builds a project directory before it can be previewed.
type Builder interface {
	Build(ctx context.Context, projectPath string) (builder.Result, error)
}

// Snapshotter renders a page and returns the URL of the stored image.
type Snapshotter interface {
	Snapshot(ctx context.Context, pageURL string) (string, error)
}

// Comparer diffs versions and optionally captures preview snapshots.
// Builder and Snapshotter may be nil; snapshots are then skipped.
type Comparer struct {
	Ledger      Ledger
	Builder     Builder
	Snapshotter Snapshotter
	Logger      *slog.Logger
}

// DiffVersions compares version from with version to of appID.
func (c *Comparer) DiffVersions(ctx context.Context, appID int64, from, to int, includeSnapshot bool) (*VersionDiff, error) {
	if appID <= 0 {
		return nil, apperr.Validation("invalid app id %d", appID)
	}
	if from <= 0 || to <= 0 {
		return nil, apperr.Validation("invalid version numbers %d and %d", from, to)
	}
	genType, err := c.Ledger.AppGenType(appID)
	if err != nil {
		return nil, err
	}

	fromDir := c.Ledger.BuildVersionDir(genType, appID, from)
	toDir := c.Ledger.BuildVersionDir(genType, appID, to)
	if !versions.DirExists(fromDir) {
		return nil, apperr.NotFound("code of version %d does not exist", from)
	}
	if !versions.DirExists(toDir) {
		return nil, apperr.NotFound("code of version %d does not exist", to)
	}

	files, err := DiffFiles(fromDir, toDir)
	if err != nil {
		return nil, apperr.Operation("comparing versions", err)
	}
	out := &VersionDiff{
		AppID:          appID,
		FromVersion:    from,
		ToVersion:      to,
		GenType:        genType,
		FromPreviewURL: c.Ledger.PreviewURL(genType, appID, from),
		ToPreviewURL:   c.Ledger.PreviewURL(genType, appID, to),
		Files:          files,
	}
	if out.Files == nil {
		out.Files = []FileDiffEntry{}
	}

	if includeSnapshot && c.Snapshotter != nil {
		logger := logging.Or(c.Logger).With("component", "diff", "app_id", appID)
		c.buildIfNeeded(ctx, logger, genType, fromDir)
		c.buildIfNeeded(ctx, logger, genType, toDir)
		out.FromSnapshotURL = c.snapshot(ctx, logger, out.FromPreviewURL, from)
		out.ToSnapshotURL = c.snapshot(ctx, logger, out.ToPreviewURL, to)
	}
	return out, nil
}

func (c *Comparer) buildIfNeeded(ctx context.Context, logger *slog.Logger, genType versions.GenType, dir string) {
	if !genType.RequiresBuild() || c.Builder == nil {
		return
	}
	if info, err := os.Stat(filepath.Join(dir, builder.OutputDir)); err == nil && info.IsDir() {
		return
	}
	res, err := c.Builder.Build(ctx, dir)
	if err != nil || !res.Success {
		logger.Warn("build before snapshot failed", "dir", dir, "error", err, "message", res.Message)
	}
}

func (c *Comparer) snapshot(ctx context.Context, logger *slog.Logger, pageURL string, version int) string {
	u, err := c.Snapshotter.Snapshot(ctx, pageURL)
	if err != nil {
		logger.Warn("snapshot failed", "version", version, "url", pageURL, "error", err)
		return ""
	}
	return u
}
