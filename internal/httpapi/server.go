// Package httpapi serves the generator over HTTP: generation and build
// progress as Server-Sent Events, version listings and diffs as JSON,
// and generated sites as static files.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ROTl24/ai-web-generator/internal/apperr"
	"github.com/ROTl24/ai-web-generator/internal/diff"
	"github.com/ROTl24/ai-web-generator/internal/generate"
	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/progress"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// Generator runs one generation turn.
type Generator interface {
	Generate(ctx context.Context, req generate.Request, emit func(string) error) (*versions.Version, error)
}

// Ledger is the read side of the version ledger.
type Ledger interface {
	ListVersions(appID int64) ([]versions.Version, error)
	AppGenType(appID int64) (versions.GenType, error)
	ResolveActiveVersion(appID int64) int
	BuildVersionDir(genType versions.GenType, appID int64, version int) string
	OutputRoot() string
}

// Builds streams build progress.
type Builds interface {
	Watch(projectPath string) (<-chan progress.Event, func(), error)
}

// Differ compares two versions.
type Differ interface {
	DiffVersions(ctx context.Context, appID int64, from, to int, includeSnapshot bool) (*diff.VersionDiff, error)
}

// Options wires a Server.
type Options struct {
	Generator Generator
	Ledger    Ledger
	Builds    Builds
	Differ    Differ
	// DeployRoot holds deployed sites, served for keys that are not
	// previews. Empty disables them.
	DeployRoot string
	// ScreenshotDir is served under /screenshots/ when set.
	ScreenshotDir string
	// MCP serves the agent tools under /mcp when set, so an engine
	// driven by a generate request writes through the same guard.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server is the HTTP surface.
type Server struct {
	opts   Options
	logger *slog.Logger
	mux    *http.ServeMux
}

// New builds the route table.
func New(opts Options) *Server {
	s := &Server{
		opts:   opts,
		logger: logging.Or(opts.Logger).With("component", "http"),
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /api/apps/{id}/generate", s.handleGenerate)
	s.mux.HandleFunc("GET /api/apps/{id}/versions", s.handleVersions)
	s.mux.HandleFunc("GET /api/apps/{id}/diff", s.handleDiff)
	s.mux.HandleFunc("GET /api/apps/{id}/download", s.handleDownload)
	s.mux.HandleFunc("GET /api/builds/progress", s.handleProgress)
	s.mux.HandleFunc("GET /static/{deployKey}", s.handleStatic)
	s.mux.HandleFunc("GET /static/{deployKey}/{path...}", s.handleStatic)
	if opts.ScreenshotDir != "" {
		s.mux.Handle("GET /screenshots/", http.StripPrefix("/screenshots/", http.FileServer(http.Dir(opts.ScreenshotDir))))
	}
	if opts.MCP != nil {
		s.mux.Handle("/mcp", opts.MCP)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	list, err := s.opts.Ledger.ListVersions(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := r.URL.Query()
	from, _ := strconv.Atoi(q.Get("from"))
	to, _ := strconv.Atoi(q.Get("to"))
	snapshot, _ := strconv.ParseBool(q.Get("snapshot"))

	res, err := s.opts.Differ.DiffVersions(r.Context(), id, from, to, snapshot)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// errorBody is the JSON shape of every error, streamed or not.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func bodyFor(err error) errorBody {
	if apperr.KindOf(err) == apperr.KindSystem && !isTyped(err) {
		return errorBody{Code: apperr.Code(err), Message: "internal error"}
	}
	return errorBody{Code: apperr.Code(err), Message: apperr.Message(err)}
}

func isTyped(err error) bool {
	var e *apperr.Error
	return errors.As(err, &e)
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, bodyFor(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid app id %q", r.PathValue("id"))
	}
	return id, nil
}
