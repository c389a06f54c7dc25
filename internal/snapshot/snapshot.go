// Package snapshot captures preview screenshots of generated apps and
// stores them where the version comparison page can link to them.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ROTl24/ai-web-generator/internal/builder"
	"github.com/ROTl24/ai-web-generator/internal/logging"
)

// Screenshotter renders pageURL to a local image file.
type Screenshotter interface {
	Capture(ctx context.Context, pageURL string) (string, error)
}

// Uploader stores localFile under key and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key, localFile string) (string, error)
}

// Service captures, uploads and cleans up one screenshot.
type Service struct {
	Screenshotter Screenshotter
	Uploader      Uploader
	Logger        *slog.Logger
	now           func() time.Time
}

// Snapshot returns the URL of a fresh screenshot of pageURL.
func (s *Service) Snapshot(ctx context.Context, pageURL string) (string, error) {
	if strings.TrimSpace(pageURL) == "" {
		return "", errors.New("page url is required")
	}
	local, err := s.Screenshotter.Capture(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("capturing %s: %w", pageURL, err)
	}
	defer func() {
		if err := os.Remove(local); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Or(s.Logger).Warn("removing screenshot failed", "file", local, "error", err)
		}
	}()

	url, err := s.Uploader.Upload(ctx, s.objectKey(local), local)
	if err != nil {
		return "", fmt.Errorf("uploading screenshot: %w", err)
	}
	return url, nil
}

// objectKey is screenshots/yyyy/mm/dd/<uuid><ext>.
func (s *Service) objectKey(local string) string {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	ext := filepath.Ext(local)
	if ext == "" {
		ext = ".png"
	}
	return path.Join("screenshots", now().Format("2006/01/02"), uuid.NewString()+ext)
}

// CommandScreenshotter runs an external renderer. The placeholders
// {url} and {out} in Args are replaced by the page URL and the output
// file path.
type CommandScreenshotter struct {
	Command string
	Args    []string
	Timeout time.Duration
	// Dir receives the images; empty means the system temp dir.
	Dir    string
	Runner builder.CommandRunner
}

// Capture implements Screenshotter.
func (c *CommandScreenshotter) Capture(ctx context.Context, pageURL string) (string, error) {
	if strings.TrimSpace(c.Command) == "" {
		return "", errors.New("screenshot command is not configured")
	}
	dir := c.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating screenshot dir: %w", err)
	}
	out := filepath.Join(dir, uuid.NewString()+".png")

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		a = strings.ReplaceAll(a, "{url}", pageURL)
		args[i] = strings.ReplaceAll(a, "{out}", out)
	}

	runner := c.Runner
	if runner == nil {
		runner = builder.ExecRunner{}
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	res, err := runner.Run(ctx, dir, timeout, c.Command, args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%s exited with code %d: %s", c.Command, res.ExitCode, strings.TrimSpace(res.Text))
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		return "", fmt.Errorf("%s produced no image", c.Command)
	}
	return out, nil
}
