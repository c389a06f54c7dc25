// Package server is the composition root. It builds every component
// from the configuration and registers the MCP tools, prompts and
// resources. No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log"
	"log/slog"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ROTl24/ai-web-generator/internal/builder"
	"github.com/ROTl24/ai-web-generator/internal/config"
	"github.com/ROTl24/ai-web-generator/internal/diff"
	"github.com/ROTl24/ai-web-generator/internal/engine"
	"github.com/ROTl24/ai-web-generator/internal/filetools"
	"github.com/ROTl24/ai-web-generator/internal/generate"
	"github.com/ROTl24/ai-web-generator/internal/httpapi"
	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/progress"
	"github.com/ROTl24/ai-web-generator/internal/prompts"
	"github.com/ROTl24/ai-web-generator/internal/resources"
	"github.com/ROTl24/ai-web-generator/internal/snapshot"
	"github.com/ROTl24/ai-web-generator/internal/store"
	"github.com/ROTl24/ai-web-generator/internal/stream"
	"github.com/ROTl24/ai-web-generator/internal/tools"
	"github.com/ROTl24/ai-web-generator/internal/ttlcache"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App holds the wired components shared by the MCP and HTTP surfaces.
type App struct {
	Config   *config.Config
	Store    *store.Store
	Ledger   *versions.Ledger
	Guard    *filetools.Guard
	Hub      *progress.Hub
	Builder  *builder.Orchestrator
	Comparer *diff.Comparer
	Facade   *generate.Facade
	Logger   *slog.Logger
}

// NewApp opens the store and builds every component. Close releases
// them.
func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.Logger()

	st, err := store.New(store.Config{DataDir: cfg.DataDir})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	ledger := versions.NewLedger(st, versions.Options{
		OutputRoot: cfg.OutputRoot,
		DeployHost: cfg.DeployHost,
		Generating: cacheOptions(cfg.Caches.Generating),
		Current:    cacheOptions(cfg.Caches.Current),
		Logger:     logger,
	})
	guard := filetools.NewGuard(ledger, cacheOptions(cfg.Caches.WriteGuard), logger)

	hub := progress.NewHub()
	hub.SetRetention(cfg.Caches.Progress.MaxEntries, cfg.Caches.Progress.AfterWrite)
	b := builder.New(builder.Options{
		NPMCommand:     cfg.Build.NPMCommand,
		InstallTimeout: cfg.Build.InstallTimeout,
		BuildTimeout:   cfg.Build.BuildTimeout,
		Hub:            hub,
		Logger:         logger,
	})

	comparer := &diff.Comparer{Ledger: ledger, Builder: b, Logger: logger}
	if snap := newSnapshotter(cfg, logger); snap != nil {
		comparer.Snapshotter = snap
	}

	if cfg.Engine.Command == "" {
		log.Printf("WARNING: engine.command is not set; generation requests will fail")
	}
	eng := &engine.CommandEngine{Command: cfg.Engine.Command, Args: cfg.Engine.Args, Logger: logger}
	reassembler := stream.NewReassembler(filetools.DefaultRegistry(), ledger, st, b, logger)
	facade := generate.New(ledger, st, eng, reassembler, logger)
	facade.SetTools(guard, cfg.Engine.ToolEndpoint)

	return &App{
		Config:   cfg,
		Store:    st,
		Ledger:   ledger,
		Guard:    guard,
		Hub:      hub,
		Builder:  b,
		Comparer: comparer,
		Facade:   facade,
		Logger:   logger,
	}, nil
}

// Close stops background work and closes the database.
func (a *App) Close() {
	a.Builder.Close()
	a.Guard.Close()
	a.Ledger.Close()
	if err := a.Store.Close(); err != nil {
		log.Printf("WARNING: store close: %v", err)
	}
}

// MCPPath is where the HTTP surface serves the MCP tools.
const MCPPath = "/mcp"

// HTTPHandler returns the HTTP surface over the app, with the MCP tools
// mounted at MCPPath on the same components.
func (a *App) HTTPHandler() *httpapi.Server {
	opts := httpapi.Options{
		Generator:  a.Facade,
		Ledger:     a.Ledger,
		Builds:     a.Builder,
		Differ:     a.Comparer,
		DeployRoot: filepath.Join(a.Config.DataDir, "code_deploy"),
		MCP:        server.NewStreamableHTTPServer(NewMCPServer(a), server.WithEndpointPath(MCPPath)),
		Logger:     a.Logger,
	}
	if a.Config.Upload.Mode == "local" {
		opts.ScreenshotDir = a.Config.Upload.LocalDir
	}
	return httpapi.New(opts)
}

// New creates the components and an MCP server over them. The returned
// cleanup is always non-nil.
func New(cfg *config.Config) (*server.MCPServer, func(), error) {
	app, err := NewApp(cfg)
	if err != nil {
		return nil, noop, err
	}
	return NewMCPServer(app), app.Close, nil
}

// NewMCPServer registers every tool, prompt and resource over app.
func NewMCPServer(app *App) *server.MCPServer {
	s := server.NewMCPServer(
		"webgen",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Project file tools ---

	writeTool := tools.NewWriteFileTool(app.Guard)
	s.AddTool(writeTool.Definition(), writeTool.Handle)

	readTool := tools.NewReadFileTool(app.Guard.Workspace)
	s.AddTool(readTool.Definition(), readTool.Handle)

	readDirTool := tools.NewReadDirTool(app.Guard.Workspace)
	s.AddTool(readDirTool.Definition(), readDirTool.Handle)

	deleteTool := tools.NewDeleteFileTool(app.Guard.Workspace)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	clearTool := tools.NewClearWritesTool(app.Guard)
	s.AddTool(clearTool.Definition(), clearTool.Handle)

	// --- Version tools ---

	listTool := tools.NewVersionListTool(app.Ledger)
	s.AddTool(listTool.Definition(), listTool.Handle)

	rollbackTool := tools.NewVersionRollbackTool(app.Ledger)
	s.AddTool(rollbackTool.Definition(), rollbackTool.Handle)

	diffTool := tools.NewVersionDiffTool(app.Comparer)
	s.AddTool(diffTool.Definition(), diffTool.Handle)

	// --- Build tools ---

	buildTool := tools.NewBuildProjectTool(app.Ledger, app.Builder)
	s.AddTool(buildTool.Definition(), buildTool.Handle)

	statusTool := tools.NewBuildStatusTool(app.Ledger, app.Builder)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	// --- Prompts ---

	createPrompt := prompts.NewCreatePrompt()
	s.AddPrompt(createPrompt.Definition(), createPrompt.Handle)

	modifyPrompt := prompts.NewModifyPrompt()
	s.AddPrompt(modifyPrompt.Definition(), modifyPrompt.Handle)

	// --- Resources ---

	rh := resources.NewHandler(app.Config, app.Hub)
	s.AddResource(rh.BuildsResource(), rh.HandleBuilds)
	s.AddResource(rh.ConfigResource(), rh.HandleConfig)

	return s
}

func noop() {}

// cacheOptions maps a configured cache onto ttlcache options. A zero
// spec keeps the component's defaults.
func cacheOptions(spec config.CacheSpec) ttlcache.Options {
	return ttlcache.Options{
		MaxEntries:  spec.MaxEntries,
		AfterWrite:  spec.AfterWrite,
		AfterAccess: spec.AfterAccess,
	}
}

// newSnapshotter returns nil when no screenshot command is configured;
// diffs then carry no snapshot URLs.
func newSnapshotter(cfg *config.Config, logger *slog.Logger) *snapshot.Service {
	if cfg.Screenshot.Command == "" {
		return nil
	}
	var up snapshot.Uploader
	switch cfg.Upload.Mode {
	case "sftp":
		up = &snapshot.SFTPUploader{Config: snapshot.SFTPConfig{
			Addr:      cfg.Upload.SFTP.Addr,
			User:      cfg.Upload.SFTP.User,
			Password:  cfg.Upload.SFTP.Password,
			KeyFile:   cfg.Upload.SFTP.KeyFile,
			RemoteDir: cfg.Upload.SFTP.RemoteDir,
			BaseURL:   cfg.Upload.BaseURL,
		}}
	default:
		up = &snapshot.LocalUploader{Dir: cfg.Upload.LocalDir, BaseURL: cfg.Upload.BaseURL}
	}
	return &snapshot.Service{
		Screenshotter: &snapshot.CommandScreenshotter{
			Command: cfg.Screenshot.Command,
			Args:    cfg.Screenshot.Args,
			Timeout: cfg.Screenshot.Timeout,
		},
		Uploader: up,
		Logger:   logger,
	}
}

func serverInstructions() string {
	return `webgen generates web applications and keeps every generation as a numbered version.

## Project files
Use writeFile, readFile, readDir and deleteFile with an app_id to edit the active version of an application. Paths are relative to the project root. Writes of the same path are deduplicated per app and version; call clear_writes to allow rewriting a file.

## Versions
version_list shows the history and the current version. version_rollback makes an earlier ready version current. version_diff compares two versions file by file and can attach screenshots.

## Builds
vue_project apps must be built before they can be previewed. build_project runs npm install (when needed) and npm run build; concurrent requests for the same project share one build. build_status reports the latest progress.`
}
