// Package builder runs the install and bundle steps of generated
// projects. At most one build runs per project directory; concurrent
// requests for the same directory share it.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/progress"
)

// Well-known project entries.
const (
	ManifestFile    = "package.json"
	DependenciesDir = "node_modules"
	OutputDir       = "dist"
)

// Result is the outcome of one build.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Task is one in-flight or finished build.
type Task struct {
	key    string
	done   chan struct{}
	result Result
}

// Key is the canonical project path the task builds.
func (t *Task) Key() string { return t.key }

// Done is closed when the build has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the build finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Options configures an Orchestrator.
type Options struct {
	NPMCommand     string
	InstallTimeout time.Duration
	BuildTimeout   time.Duration

	Runner CommandRunner
	Hub    *progress.Hub
	Logger *slog.Logger
}

// Orchestrator deduplicates and runs project builds.
type Orchestrator struct {
	npm            string
	installTimeout time.Duration
	buildTimeout   time.Duration
	runner         CommandRunner
	hub            *progress.Hub
	logger         *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	tasks map[string]*Task
}

// New creates an Orchestrator. Missing options get the npm defaults.
func New(opts Options) *Orchestrator {
	if opts.NPMCommand == "" {
		opts.NPMCommand = "npm"
	}
	if opts.InstallTimeout <= 0 {
		opts.InstallTimeout = 300 * time.Second
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = 180 * time.Second
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Hub == nil {
		opts.Hub = progress.NewHub()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		npm:            opts.NPMCommand,
		installTimeout: opts.InstallTimeout,
		buildTimeout:   opts.BuildTimeout,
		runner:         opts.Runner,
		hub:            opts.Hub,
		logger:         logging.Or(opts.Logger).With("component", "builder"),
		ctx:            ctx,
		cancel:         cancel,
		tasks:          make(map[string]*Task),
	}
}

// Close cancels running builds. Their commands are killed and they
// finish as failed.
func (o *Orchestrator) Close() {
	o.cancel()
}

// Hub returns the progress hub builds report to.
func (o *Orchestrator) Hub() *progress.Hub { return o.hub }

// CanonicalPath is the task and progress key of a project directory:
// absolute, cleaned, and with symlinks resolved when it exists.
func CanonicalPath(projectPath string) (string, error) {
	if strings.TrimSpace(projectPath) == "" {
		return "", errors.New("project path is required")
	}
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", projectPath, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return filepath.Clean(abs), nil
}

// BuildAsync starts a build of projectPath, or returns the build
// already running for it.
func (o *Orchestrator) BuildAsync(projectPath string) *Task {
	key, err := CanonicalPath(projectPath)
	if err != nil {
		t := &Task{key: projectPath, done: make(chan struct{}), result: Result{Message: err.Error()}}
		close(t.done)
		return t
	}

	o.mu.Lock()
	if t, ok := o.tasks[key]; ok {
		o.mu.Unlock()
		return t
	}
	t := &Task{key: key, done: make(chan struct{})}
	o.tasks[key] = t
	o.mu.Unlock()

	o.hub.MarkWaiting(key)
	go o.run(t)
	return t
}

// Build runs or joins the build of projectPath and waits for it.
func (o *Orchestrator) Build(ctx context.Context, projectPath string) (Result, error) {
	return o.BuildAsync(projectPath).Wait(ctx)
}

// InFlight reports whether a build of projectPath is registered.
func (o *Orchestrator) InFlight(projectPath string) bool {
	key, err := CanonicalPath(projectPath)
	if err != nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.tasks[key]
	return ok
}

// Watch subscribes to the progress of projectPath.
func (o *Orchestrator) Watch(projectPath string) (<-chan progress.Event, func(), error) {
	key, err := CanonicalPath(projectPath)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := o.hub.Subscribe(key)
	return ch, cancel, nil
}

// Latest returns the last progress event of projectPath.
func (o *Orchestrator) Latest(projectPath string) (progress.Event, bool) {
	key, err := CanonicalPath(projectPath)
	if err != nil {
		return progress.Event{}, false
	}
	return o.hub.Latest(key)
}

func (o *Orchestrator) run(t *Task) {
	result := Result{Message: "build aborted"}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("build panicked", "project", t.key, "panic", r)
			result = o.fail(t.key, fmt.Sprintf("build aborted: %v", r))
		}
		o.mu.Lock()
		if o.tasks[t.key] == t {
			delete(o.tasks, t.key)
		}
		o.mu.Unlock()

		t.result = result
		close(t.done)
	}()

	start := time.Now()
	o.logger.Info("build started", "project", t.key)
	result = o.execute(t.key)
	o.logger.Info("build finished", "project", t.key, "success", result.Success, "duration", time.Since(start))
}

func (o *Orchestrator) execute(dir string) Result {
	o.report(dir, progress.StatusRunning, "prepare", 0, "Preparing build")

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return o.fail(dir, fmt.Sprintf("project directory %s does not exist", dir))
	}
	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
		return o.fail(dir, fmt.Sprintf("%s not found in %s", ManifestFile, dir))
	}

	if exists(filepath.Join(dir, DependenciesDir)) {
		o.report(dir, progress.StatusRunning, "install", 15, "Dependencies already installed, skipping install")
	} else {
		o.report(dir, progress.StatusRunning, "install", 15, "Installing dependencies")
		if msg, ok := o.stage(dir, o.installTimeout, "install"); !ok {
			return o.fail(dir, msg)
		}
	}

	o.report(dir, progress.StatusRunning, "build", 70, "Building project")
	if msg, ok := o.stage(dir, o.buildTimeout, "run", "build"); !ok {
		return o.fail(dir, msg)
	}

	o.report(dir, progress.StatusRunning, "verify", 90, "Verifying build output")
	if !exists(filepath.Join(dir, OutputDir)) {
		return o.fail(dir, fmt.Sprintf("build finished but %s/ was not produced", OutputDir))
	}

	o.report(dir, progress.StatusSuccess, "done", 100, "Build succeeded")
	return Result{Success: true, Message: "Build succeeded"}
}

// stage runs one npm command and describes its failure.
func (o *Orchestrator) stage(dir string, timeout time.Duration, args ...string) (string, bool) {
	label := o.npm + " " + strings.Join(args, " ")
	out, err := o.runner.Run(o.ctx, dir, timeout, o.npm, args...)
	switch {
	case errors.Is(err, ErrTimeout):
		return fmt.Sprintf("%s timed out after %s", label, timeout), false
	case err != nil:
		return fmt.Sprintf("%s failed: %v", label, err), false
	case out.ExitCode != 0:
		msg := fmt.Sprintf("%s exited with code %d", label, out.ExitCode)
		if tail := lastLines(out.Text, 20); tail != "" {
			msg += ":\n" + tail
		}
		return msg, false
	}
	return "", true
}

func (o *Orchestrator) report(dir string, status progress.Status, step string, percent int, msg string) {
	o.hub.Publish(dir, progress.Event{Status: status, Step: step, Percent: percent, Message: msg})
}

func (o *Orchestrator) fail(dir, msg string) Result {
	o.logger.Warn("build failed", "project", dir, "reason", firstLine(msg))
	o.report(dir, progress.StatusFailed, "failed", 100, msg)
	return Result{Message: msg}
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
