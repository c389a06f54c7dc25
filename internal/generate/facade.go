// Package generate is the entry point of a generation request. It picks
// the strategy for the app's generation type and ties the ledger, the
// engine and the stream reassembler together.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ROTl24/ai-web-generator/internal/apperr"
	"github.com/ROTl24/ai-web-generator/internal/builder"
	"github.com/ROTl24/ai-web-generator/internal/engine"
	"github.com/ROTl24/ai-web-generator/internal/filetools"
	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/store"
	"github.com/ROTl24/ai-web-generator/internal/stream"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// HistoryLimit is how many chat messages are handed to the engine.
const HistoryLimit = 20

// Ledger is the version ledger as the facade uses it.
type Ledger interface {
	EnsureApp(appID int64, genType versions.GenType, userID int64) error
	AppGenType(appID int64) (versions.GenType, error)
	CreateVersion(ctx context.Context, appID int64, genType versions.GenType, userID int64) (*versions.Version, error)
	ResolveActiveVersionDir(genType versions.GenType, appID int64) string
}

// ChatStore is the chat history.
type ChatStore interface {
	stream.ChatStore
	ChatHistory(appID int64, limit int) ([]store.ChatMessage, error)
}

// Request asks for one generation turn. An empty GenType uses the type
// the app was registered with.
type Request struct {
	AppID   int64
	UserID  int64
	GenType versions.GenType
	Message string
}

// Facade runs generation requests.
type Facade struct {
	ledger      Ledger
	chat        ChatStore
	engine      engine.Engine
	reassembler *stream.Reassembler
	logger      *slog.Logger

	guard        *filetools.Guard
	toolEndpoint string
}

// New wires a Facade.
func New(ledger Ledger, chat ChatStore, eng engine.Engine, r *stream.Reassembler, logger *slog.Logger) *Facade {
	return &Facade{
		ledger:      ledger,
		chat:        chat,
		engine:      eng,
		reassembler: r,
		logger:      logging.Or(logger).With("component", "generate"),
	}
}

// SetTools hands agentic turns the guarded file tools, in process and
// as the MCP endpoint at which the same tools are served. Without it an
// agentic engine has to bring its own tools.
func (f *Facade) SetTools(g *filetools.Guard, endpoint string) {
	f.guard = g
	f.toolEndpoint = endpoint
}

// Generate runs one turn, passing output text to emit as it arrives.
// It returns the version the turn produced. Errors before a version
// exists are returned as typed errors; engine failures after that are
// recorded on the version and also returned.
func (f *Facade) Generate(ctx context.Context, req Request, emit func(string) error) (*versions.Version, error) {
	if req.AppID <= 0 {
		return nil, apperr.Validation("invalid app id %d", req.AppID)
	}
	if req.UserID <= 0 {
		return nil, apperr.Validation("invalid user id %d", req.UserID)
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperr.Validation("message is required")
	}

	genType := req.GenType
	if genType == "" {
		g, err := f.ledger.AppGenType(req.AppID)
		if err != nil {
			return nil, err
		}
		genType = g
	}
	switch genType {
	case versions.GenHTML, versions.GenMultiFile, versions.GenVue:
	default:
		return nil, apperr.System("unsupported code generation type %q", genType)
	}

	if err := f.ledger.EnsureApp(req.AppID, genType, req.UserID); err != nil {
		return nil, err
	}
	if _, err := f.chat.AddChatMessage(req.AppID, req.Message, store.MessageUser, req.UserID); err != nil {
		return nil, apperr.Operation("saving user message", err)
	}
	history, err := f.chat.ChatHistory(req.AppID, HistoryLimit)
	if err != nil {
		f.logger.Warn("loading chat history failed", "app_id", req.AppID, "error", err)
	}

	mode := engine.ModeCreate
	if genType.RequiresBuild() {
		active := f.ledger.ResolveActiveVersionDir(genType, req.AppID)
		if _, err := os.Stat(filepath.Join(active, builder.ManifestFile)); err == nil {
			mode = engine.ModeModify
		}
	}

	v, err := f.ledger.CreateVersion(ctx, req.AppID, genType, req.UserID)
	if err != nil {
		return nil, err
	}
	f.logger.Info("generation started", "app_id", req.AppID, "version", v.Number, "gen_type", genType, "mode", mode)

	sess := stream.Session{AppID: req.AppID, UserID: req.UserID, GenType: genType, Version: v.Number}
	ereq := engine.Request{
		AppID:      req.AppID,
		GenType:    genType,
		Mode:       mode,
		Message:    req.Message,
		ProjectDir: v.CodeDir,
		History:    history,
	}

	if genType.RequiresBuild() {
		return v, f.agentic(ctx, sess, ereq, emit)
	}
	return v, f.direct(ctx, sess, ereq, v.CodeDir, emit)
}

// agentic streams tool-driven generation through the reassembler.
func (f *Facade) agentic(ctx context.Context, sess stream.Session, req engine.Request, emit func(string) error) error {
	if f.guard != nil {
		req.Tools = f.guard.Toolbox(req.AppID)
		req.ToolEndpoint = f.toolEndpoint
	}
	src, err := f.engine.Stream(ctx, req)
	if err != nil {
		f.reassembler.Fail(sess, err)
		return err
	}
	_, err = f.reassembler.Run(ctx, sess, src, emit)
	return err
}

// direct asks for the whole reply, then saves the parsed files.
func (f *Facade) direct(ctx context.Context, sess stream.Session, req engine.Request, dir string, emit func(string) error) error {
	text, err := f.engine.Complete(ctx, req)
	if err != nil {
		f.reassembler.Fail(sess, err)
		return err
	}
	files, err := engine.ParseCode(sess.GenType, text)
	if err == nil {
		err = saveFiles(dir, files)
	}
	if err != nil {
		f.reassembler.Fail(sess, err)
		return err
	}
	if err := emit(text); err != nil {
		f.logger.Info("consumer went away", "app_id", sess.AppID, "error", err)
	}
	f.reassembler.Complete(sess, text)
	return nil
}

func saveFiles(dir string, files map[string]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Operation(fmt.Sprintf("creating %s", dir), err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return apperr.Operation(fmt.Sprintf("saving %s", name), err)
		}
	}
	return nil
}
