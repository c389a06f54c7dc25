package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ROTl24/ai-web-generator/internal/builder"
	"github.com/ROTl24/ai-web-generator/internal/progress"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// Projects resolves the directory of an app version.
type Projects interface {
	AppGenType(appID int64) (versions.GenType, error)
	BuildVersionDir(genType versions.GenType, appID int64, version int) string
	ResolveActiveVersion(appID int64) int
}

// Builds runs and reports project builds.
type Builds interface {
	BuildAsync(projectPath string) *builder.Task
	Latest(projectPath string) (progress.Event, bool)
}

func projectDir(p Projects, req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	id, bad := appID(req)
	if bad != nil {
		return "", bad
	}
	g, err := p.AppGenType(id)
	if err != nil {
		return "", errorResult(err)
	}
	if !g.RequiresBuild() {
		return "", mcp.NewToolResultError(fmt.Sprintf("App %d is of type %s and has nothing to build.", id, g))
	}
	v := intArg(req, "version", 0)
	if v <= 0 {
		v = p.ResolveActiveVersion(id)
	}
	return p.BuildVersionDir(g, id, v), nil
}

// BuildProjectTool handles the build_project MCP tool.
type BuildProjectTool struct {
	projects Projects
	builds   Builds
}

// NewBuildProjectTool creates a BuildProjectTool.
func NewBuildProjectTool(p Projects, b Builds) *BuildProjectTool {
	return &BuildProjectTool{projects: p, builds: b}
}

// Definition returns the MCP tool definition for registration.
func (t *BuildProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("build_project",
		mcp.WithDescription(
			"Install dependencies and build a version of a build-requiring app. "+
				"Joins the running build of the same directory if there is one.",
		),
		appIDOption(),
		mcp.WithNumber("version", mcp.Description("Version to build. Defaults to the active version.")),
		mcp.WithBoolean("wait", mcp.Description("Wait for the build to finish. Defaults to true.")),
	)
}

// Handle processes the build_project tool call.
func (t *BuildProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, bad := projectDir(t.projects, req)
	if bad != nil {
		return bad, nil
	}
	task := t.builds.BuildAsync(dir)
	if !boolArg(req, "wait", true) {
		return mcp.NewToolResultText(fmt.Sprintf("Build of %s started. Check it with build_status.", task.Key())), nil
	}
	res, err := task.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for build: %w", err)
	}
	if !res.Success {
		return mcp.NewToolResultError(fmt.Sprintf("Build of %s failed: %s", task.Key(), res.Message)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Build of %s succeeded.", task.Key())), nil
}
