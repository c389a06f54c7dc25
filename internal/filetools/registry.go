package filetools

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Argument keys shared by the agent tool schemas.
const (
	ArgFilePath = "relativeFilePath"
	ArgDirPath  = "relativeDirPath"
	ArgContent  = "content"
)

// Tool names as the agent calls them.
const (
	ToolWriteFile  = "writeFile"
	ToolReadFile   = "readFile"
	ToolReadDir    = "readDir"
	ToolDeleteFile = "deleteFile"
)

// Tool describes how a tool call is shown in the chat transcript.
type Tool interface {
	Name() string
	DisplayName() string
	// ExecutedSummary renders a finished call from its raw JSON arguments.
	ExecutedSummary(args map[string]any) string
}

// RequestNotice is shown once when the agent starts calling a tool.
func RequestNotice(displayName string) string {
	return fmt.Sprintf("\n\n[Tool selected] %s\n\n", displayName)
}

// ParseArguments decodes a raw JSON argument payload. Malformed input
// yields an empty map.
func ParseArguments(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}

type descriptor struct {
	name    string
	display string
	render  func(display string, args map[string]any) string
}

func (d descriptor) Name() string        { return d.name }
func (d descriptor) DisplayName() string { return d.display }
func (d descriptor) ExecutedSummary(args map[string]any) string {
	return d.render(d.display, args)
}

func stringArg(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

func renderPath(key string) func(string, map[string]any) string {
	return func(display string, args map[string]any) string {
		p := stringArg(args, key)
		if p == "" {
			p = "project root"
		}
		return fmt.Sprintf("[Tool call] %s %s", display, p)
	}
}

func renderWrite(display string, args map[string]any) string {
	p := stringArg(args, ArgFilePath)
	lang := strings.TrimPrefix(filepath.Ext(p), ".")
	return fmt.Sprintf("[Tool call] %s %s\n```%s\n%s\n```", display, p, lang, stringArg(args, ArgContent))
}

// Registry looks tools up by name.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry registers tools by their Name.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// DefaultRegistry knows the four file tools.
func DefaultRegistry() *Registry {
	return NewRegistry(
		descriptor{name: ToolWriteFile, display: "Write file", render: renderWrite},
		descriptor{name: ToolReadFile, display: "Read file", render: renderPath(ArgFilePath)},
		descriptor{name: ToolReadDir, display: "Read directory", render: renderPath(ArgDirPath)},
		descriptor{name: ToolDeleteFile, display: "Delete file", render: renderPath(ArgFilePath)},
	)
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names lists the registered tool names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	return out
}
