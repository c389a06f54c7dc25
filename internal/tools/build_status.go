package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// BuildStatusTool handles the build_status MCP tool.
type BuildStatusTool struct {
	projects Projects
	builds   Builds
}

// NewBuildStatusTool creates a BuildStatusTool.
func NewBuildStatusTool(p Projects, b Builds) *BuildStatusTool {
	return &BuildStatusTool{projects: p, builds: b}
}

// Definition returns the MCP tool definition for registration.
func (t *BuildStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("build_status",
		mcp.WithDescription("Show the latest build progress of an app version."),
		appIDOption(),
		mcp.WithNumber("version", mcp.Description("Version to inspect. Defaults to the active version.")),
	)
}

// Handle processes the build_status tool call.
func (t *BuildStatusTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, bad := projectDir(t.projects, req)
	if bad != nil {
		return bad, nil
	}
	e, ok := t.builds.Latest(dir)
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("No build recorded for %s.", dir)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s (%d%%) %s", e.Status, e.Step, e.Percent, e.Message)), nil
}
