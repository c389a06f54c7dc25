package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ROTl24/ai-web-generator/internal/filetools"
)

// DeleteFileTool handles the deleteFile MCP tool.
type DeleteFileTool struct {
	ws *filetools.Workspace
}

// NewDeleteFileTool creates a DeleteFileTool.
func NewDeleteFileTool(ws *filetools.Workspace) *DeleteFileTool {
	return &DeleteFileTool{ws: ws}
}

// Definition returns the MCP tool definition for registration.
func (t *DeleteFileTool) Definition() mcp.Tool {
	return mcp.NewTool(filetools.ToolDeleteFile,
		mcp.WithDescription(
			"Delete a file of the app's active version. Project-critical files "+
				"(package.json, lockfiles, build configs, index.html, main entry, App.vue) are refused.",
		),
		appIDOption(),
		mcp.WithString(filetools.ArgFilePath,
			mcp.Required(),
			mcp.Description("File path relative to the project root"),
		),
	)
}

// Handle processes the deleteFile tool call.
func (t *DeleteFileTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := appID(req)
	if bad != nil {
		return bad, nil
	}
	return fromResult(t.ws.DeleteFile(id, req.GetString(filetools.ArgFilePath, ""))), nil
}
