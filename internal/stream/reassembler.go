package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ROTl24/ai-web-generator/internal/builder"
	"github.com/ROTl24/ai-web-generator/internal/filetools"
	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/store"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// Ledger is the part of the version ledger touched when a session ends.
type Ledger interface {
	ResolveActiveVersion(appID int64) int
	BuildVersionDir(genType versions.GenType, appID int64, version int) string
	MarkReady(appID int64, version int) error
	MarkFailed(appID int64, version int, reason string) error
}

// ChatStore appends to the chat history of an app.
type ChatStore interface {
	AddChatMessage(appID int64, message, messageType string, userID int64) (int64, error)
}

// Builder starts a background build.
type Builder interface {
	BuildAsync(projectPath string) *builder.Task
}

// Session identifies one generation. Version 0 means the app's active
// version at completion time.
type Session struct {
	AppID   int64
	UserID  int64
	GenType versions.GenType
	Version int
}

// Reassembler turns agent events into transcript text.
type Reassembler struct {
	tools   *filetools.Registry
	ledger  Ledger
	chat    ChatStore
	builder Builder
	logger  *slog.Logger
}

// NewReassembler wires a Reassembler. A nil registry means the default
// file tools; a nil builder disables post-generation builds.
func NewReassembler(tools *filetools.Registry, ledger Ledger, chat ChatStore, b Builder, logger *slog.Logger) *Reassembler {
	if tools == nil {
		tools = filetools.DefaultRegistry()
	}
	return &Reassembler{
		tools:   tools,
		ledger:  ledger,
		chat:    chat,
		builder: b,
		logger:  logging.Or(logger).With("component", "stream"),
	}
}

// Run consumes src until it ends. Every piece of text is passed to
// emit and appended to the transcript, which is returned. When emit
// fails the consumer is gone: emitting stops but the stream is still
// drained so the completion hooks see the whole transcript. A
// cancelled ctx also ends the session as completed, on the text
// received up to then.
//
// The returned error is the stream's own failure, never a hook failure.
func (r *Reassembler) Run(ctx context.Context, s Session, src Source, emit func(string) error) (string, error) {
	var transcript strings.Builder
	seen := make(map[string]struct{})
	connected := true

	out := func(text string) {
		if text == "" {
			return
		}
		transcript.WriteString(text)
		if !connected {
			return
		}
		if err := emit(text); err != nil {
			connected = false
			r.logger.Info("consumer went away, draining stream", "app_id", s.AppID, "error", err)
		}
	}

	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			r.Complete(s, transcript.String())
			return transcript.String(), nil
		}
		if errors.Is(err, context.Canceled) {
			// The caller went away mid-stream. What was received so far is
			// the session's output.
			r.logger.Info("stream cancelled, completing on received output", "app_id", s.AppID)
			r.Complete(s, transcript.String())
			return transcript.String(), nil
		}
		if err != nil {
			r.Fail(s, err)
			return transcript.String(), err
		}
		out(r.fold(ev, seen))
	}
}

// fold renders one event. Repeated tool_request ids render nothing.
func (r *Reassembler) fold(ev Event, seen map[string]struct{}) string {
	switch ev.Type {
	case EventAIResponse:
		return ev.Data
	case EventToolRequest:
		if ev.ID == "" {
			return ""
		}
		if _, dup := seen[ev.ID]; dup {
			return ""
		}
		seen[ev.ID] = struct{}{}
		t, ok := r.tools.Get(ev.Name)
		if !ok {
			r.logger.Warn("unknown tool requested", "tool", ev.Name)
			return filetools.RequestNotice("Unknown tool: " + ev.Name)
		}
		return filetools.RequestNotice(t.DisplayName())
	case EventToolExecuted:
		var summary string
		if t, ok := r.tools.Get(ev.Name); ok {
			summary = t.ExecutedSummary(filetools.ParseArguments(ev.Arguments))
		} else {
			r.logger.Warn("unknown tool executed", "tool", ev.Name)
			summary = fmt.Sprintf("[Tool call] Unknown tool %s\nArguments: %s", ev.Name, ev.Arguments)
		}
		return "\n\n" + summary + "\n\n"
	default:
		r.logger.Error("unsupported event type", "type", ev.Type)
		return ""
	}
}

func (r *Reassembler) version(s Session) int {
	if s.Version > 0 {
		return s.Version
	}
	return r.ledger.ResolveActiveVersion(s.AppID)
}

// Complete records a successful session: the transcript goes to chat
// history, build-requiring projects are queued for a build and the
// version is marked ready. Failures are logged only.
func (r *Reassembler) Complete(s Session, transcript string) {
	logger := r.logger.With("app_id", s.AppID)
	if _, err := r.chat.AddChatMessage(s.AppID, transcript, store.MessageAI, s.UserID); err != nil {
		logger.Error("saving ai message failed", "error", err)
	}

	version := r.version(s)
	if s.GenType.RequiresBuild() && r.builder != nil {
		dir := r.ledger.BuildVersionDir(s.GenType, s.AppID, version)
		r.builder.BuildAsync(dir)
		logger.Info("build queued", "dir", dir, "version", version)
	}
	if err := r.ledger.MarkReady(s.AppID, version); err != nil {
		logger.Error("marking version ready failed", "version", version, "error", err)
	}
}

// Fail records a failed session in chat history and marks the version
// failed with the error as reason. Failures are logged only.
func (r *Reassembler) Fail(s Session, cause error) {
	logger := r.logger.With("app_id", s.AppID)
	msg := "AI response failed: " + cause.Error()
	if _, err := r.chat.AddChatMessage(s.AppID, msg, store.MessageAI, s.UserID); err != nil {
		logger.Error("saving failure message failed", "error", err)
	}
	version := r.version(s)
	if err := r.ledger.MarkFailed(s.AppID, version, msg); err != nil {
		logger.Error("marking version failed failed", "version", version, "error", err)
	}
	logger.Warn("generation failed", "version", version, "error", cause)
}
