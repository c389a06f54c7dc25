package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ROTl24/ai-web-generator/internal/filetools"
)

// ReadDirTool handles the readDir MCP tool.
type ReadDirTool struct {
	ws *filetools.Workspace
}

// NewReadDirTool creates a ReadDirTool.
func NewReadDirTool(ws *filetools.Workspace) *ReadDirTool {
	return &ReadDirTool{ws: ws}
}

// Definition returns the MCP tool definition for registration.
func (t *ReadDirTool) Definition() mcp.Tool {
	return mcp.NewTool(filetools.ToolReadDir,
		mcp.WithDescription(
			"List the files of the app's active version, recursively. "+
				"Dependency caches, build output and editor metadata are hidden.",
		),
		appIDOption(),
		mcp.WithString(filetools.ArgDirPath,
			mcp.Description("Directory relative to the project root. Omit for the root."),
		),
	)
}

// Handle processes the readDir tool call.
func (t *ReadDirTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := appID(req)
	if bad != nil {
		return bad, nil
	}
	return fromResult(t.ws.ReadDir(id, req.GetString(filetools.ArgDirPath, ""))), nil
}
