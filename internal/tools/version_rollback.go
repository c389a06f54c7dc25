package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// VersionRollbackTool handles the version_rollback MCP tool.
type VersionRollbackTool struct {
	ledger VersionLedger
}

// NewVersionRollbackTool creates a VersionRollbackTool.
func NewVersionRollbackTool(l VersionLedger) *VersionRollbackTool {
	return &VersionRollbackTool{ledger: l}
}

// Definition returns the MCP tool definition for registration.
func (t *VersionRollbackTool) Definition() mcp.Tool {
	return mcp.NewTool("version_rollback",
		mcp.WithDescription(
			"Point an app back at an earlier version. The target must exist and must not have failed. "+
				"Refused while a generation is running.",
		),
		appIDOption(),
		mcp.WithNumber("version",
			mcp.Required(),
			mcp.Description("Version number to make current"),
		),
	)
}

// Handle processes the version_rollback tool call.
func (t *VersionRollbackTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := appID(req)
	if bad != nil {
		return bad, nil
	}
	v := intArg(req, "version", 0)
	if err := t.ledger.Rollback(id, v); err != nil {
		return errorResult(err), nil
	}
	g, err := t.ledger.AppGenType(id)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("App %d now serves version %d: %s", id, v, t.ledger.PreviewURL(g, id, v))), nil
}
