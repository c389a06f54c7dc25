package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ROTl24/ai-web-generator/internal/filetools"
)

// ClearWritesTool handles the clear_writes MCP tool: it forgets the
// paths written in the current generation so a full regeneration can
// rewrite them.
type ClearWritesTool struct {
	guard *filetools.Guard
}

// NewClearWritesTool creates a ClearWritesTool.
func NewClearWritesTool(g *filetools.Guard) *ClearWritesTool {
	return &ClearWritesTool{guard: g}
}

// Definition returns the MCP tool definition for registration.
func (t *ClearWritesTool) Definition() mcp.Tool {
	return mcp.NewTool("clear_writes",
		mcp.WithDescription(
			"Forget which files were written in the current generation. "+
				"Use only when the user explicitly asks to regenerate everything.",
		),
		appIDOption(),
	)
}

// Handle processes the clear_writes tool call.
func (t *ClearWritesTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := appID(req)
	if bad != nil {
		return bad, nil
	}
	before := t.guard.List(id)
	t.guard.Clear(id)
	if len(before) == 0 {
		return mcp.NewToolResultText("No files were tracked."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared %d tracked files: %s", len(before), strings.Join(before, ", "))), nil
}
