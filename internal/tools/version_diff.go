package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ROTl24/ai-web-generator/internal/diff"
)

// Differ compares two versions of an app.
type Differ interface {
	DiffVersions(ctx context.Context, appID int64, from, to int, includeSnapshot bool) (*diff.VersionDiff, error)
}

// VersionDiffTool handles the version_diff MCP tool.
type VersionDiffTool struct {
	differ Differ
}

// NewVersionDiffTool creates a VersionDiffTool.
func NewVersionDiffTool(d Differ) *VersionDiffTool {
	return &VersionDiffTool{differ: d}
}

// Definition returns the MCP tool definition for registration.
func (t *VersionDiffTool) Definition() mcp.Tool {
	return mcp.NewTool("version_diff",
		mcp.WithDescription(
			"Compare two versions of an app file by file. Returns JSON with added, removed "+
				"and modified files, their hashes, excerpts and patches.",
		),
		appIDOption(),
		mcp.WithNumber("from", mcp.Required(), mcp.Description("Base version")),
		mcp.WithNumber("to", mcp.Required(), mcp.Description("Target version")),
		mcp.WithBoolean("snapshot",
			mcp.Description("Also capture preview screenshots of both versions. Defaults to false."),
		),
	)
}

// Handle processes the version_diff tool call.
func (t *VersionDiffTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := appID(req)
	if bad != nil {
		return bad, nil
	}
	res, err := t.differ.DiffVersions(ctx, id, intArg(req, "from", 0), intArg(req, "to", 0), boolArg(req, "snapshot", false))
	if err != nil {
		return errorResult(err), nil
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding diff: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
