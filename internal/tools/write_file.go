package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ROTl24/ai-web-generator/internal/filetools"
)

// WriteFileTool handles the writeFile MCP tool. Writes go through the
// guard, so a path written twice in one generation is skipped.
type WriteFileTool struct {
	guard *filetools.Guard
}

// NewWriteFileTool creates a WriteFileTool.
func NewWriteFileTool(g *filetools.Guard) *WriteFileTool {
	return &WriteFileTool{guard: g}
}

// Definition returns the MCP tool definition for registration.
func (t *WriteFileTool) Definition() mcp.Tool {
	return mcp.NewTool(filetools.ToolWriteFile,
		mcp.WithDescription(
			"Write a file into the version of the app that is being generated. "+
				"Each path is written once per generation; a repeated write is skipped "+
				"and the reply lists the files already written.",
		),
		appIDOption(),
		mcp.WithString(filetools.ArgFilePath,
			mcp.Required(),
			mcp.Description("File path relative to the project root, e.g. src/App.vue"),
		),
		mcp.WithString(filetools.ArgContent,
			mcp.Required(),
			mcp.Description("Full file content"),
		),
	)
}

// Handle processes the writeFile tool call.
func (t *WriteFileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := appID(req)
	if bad != nil {
		return bad, nil
	}
	return fromResult(t.guard.Write(ctx, id,
		req.GetString(filetools.ArgFilePath, ""),
		req.GetString(filetools.ArgContent, ""),
	)), nil
}
