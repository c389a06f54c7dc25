// Package engine talks to the code generation engine. The engine is an
// external program; this package only frames requests and decodes the
// agent events it prints.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ROTl24/ai-web-generator/internal/filetools"
	"github.com/ROTl24/ai-web-generator/internal/store"
	"github.com/ROTl24/ai-web-generator/internal/stream"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// Mode tells an agentic engine whether it starts a project or edits one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeModify Mode = "modify"
)

// Tools runs agent file tool calls for one application.
type Tools interface {
	Call(ctx context.Context, name string, args map[string]any) filetools.Result
}

// Request is one generation turn.
//
// An agentic turn carries the file tools twice: Tools for in-process
// engines, and ToolEndpoint, the MCP endpoint an external engine calls
// with the same appId. Both end in the same write guard.
type Request struct {
	AppID        int64               `json:"appId"`
	GenType      versions.GenType    `json:"codeGenType"`
	Mode         Mode                `json:"mode,omitempty"`
	Message      string              `json:"message"`
	ProjectDir   string              `json:"projectDir,omitempty"`
	History      []store.ChatMessage `json:"history,omitempty"`
	ToolEndpoint string              `json:"toolEndpoint,omitempty"`
	Tools        Tools               `json:"-"`
}

// Engine produces code, either as a whole reply or as an agent event
// stream.
type Engine interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (stream.Source, error)
}

// Collect drains src and concatenates its ai_response text.
func Collect(ctx context.Context, src stream.Source) (string, error) {
	var sb strings.Builder
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		if ev.Type == stream.EventAIResponse {
			sb.WriteString(ev.Data)
		}
	}
}

// Static is an in-memory engine replaying fixed output.
type Static struct {
	Text   string
	Events []stream.Event
	Err    error
}

// Complete returns Text, or Err.
func (s Static) Complete(ctx context.Context, _ Request) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, ctx.Err()
}

// Stream replays Events. If Err is set it is returned after them.
func (s Static) Stream(_ context.Context, _ Request) (stream.Source, error) {
	src := stream.Events(s.Events...)
	if s.Err != nil {
		return &erroringSource{Source: src, err: s.Err}, nil
	}
	return src, nil
}

type erroringSource struct {
	stream.Source
	err error
}

func (e *erroringSource) Next(ctx context.Context) (stream.Event, error) {
	ev, err := e.Source.Next(ctx)
	if errors.Is(err, io.EOF) {
		return stream.Event{}, fmt.Errorf("engine: %w", e.err)
	}
	return ev, err
}
