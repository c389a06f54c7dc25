package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// VersionLedger is the part of the ledger the version tools use.
type VersionLedger interface {
	ListVersions(appID int64) ([]versions.Version, error)
	CurrentVersion(appID int64) (int, error)
	Rollback(appID int64, version int) error
	AppGenType(appID int64) (versions.GenType, error)
	PreviewURL(genType versions.GenType, appID int64, version int) string
}

// VersionListTool handles the version_list MCP tool.
type VersionListTool struct {
	ledger VersionLedger
}

// NewVersionListTool creates a VersionListTool.
func NewVersionListTool(l VersionLedger) *VersionListTool {
	return &VersionListTool{ledger: l}
}

// Definition returns the MCP tool definition for registration.
func (t *VersionListTool) Definition() mcp.Tool {
	return mcp.NewTool("version_list",
		mcp.WithDescription("List the versions of an app, newest first, with their status and preview URL."),
		appIDOption(),
	)
}

// Handle processes the version_list tool call.
func (t *VersionListTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := appID(req)
	if bad != nil {
		return bad, nil
	}
	list, err := t.ledger.ListVersions(id)
	if err != nil {
		return errorResult(err), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("App %d has no versions yet.", id)), nil
	}
	current, err := t.ledger.CurrentVersion(id)
	if err != nil {
		return errorResult(err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Versions of app %d\n\n", id)
	b.WriteString("| Version | Status | Created | Preview |\n")
	b.WriteString("|---------|--------|---------|---------|\n")
	for _, v := range list {
		marker := ""
		if v.Number == current {
			marker = " (current)"
		}
		fmt.Fprintf(&b, "| v%d%s | %s | %s | %s |\n",
			v.Number, marker, v.Status, v.CreatedAt, t.ledger.PreviewURL(v.GenType, id, v.Number))
	}
	return mcp.NewToolResultText(b.String()), nil
}
