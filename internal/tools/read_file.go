package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ROTl24/ai-web-generator/internal/filetools"
)

// ReadFileTool handles the readFile MCP tool.
type ReadFileTool struct {
	ws *filetools.Workspace
}

// NewReadFileTool creates a ReadFileTool.
func NewReadFileTool(ws *filetools.Workspace) *ReadFileTool {
	return &ReadFileTool{ws: ws}
}

// Definition returns the MCP tool definition for registration.
func (t *ReadFileTool) Definition() mcp.Tool {
	return mcp.NewTool(filetools.ToolReadFile,
		mcp.WithDescription("Read a file of the app's active version."),
		appIDOption(),
		mcp.WithString(filetools.ArgFilePath,
			mcp.Required(),
			mcp.Description("File path relative to the project root"),
		),
	)
}

// Handle processes the readFile tool call.
func (t *ReadFileTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := appID(req)
	if bad != nil {
		return bad, nil
	}
	return fromResult(t.ws.ReadFile(id, req.GetString(filetools.ArgFilePath, ""))), nil
}
