// Package tools exposes the generation pipeline as MCP tools.
//
// Each tool is a struct holding its dependencies:
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Agent-facing failures (bad paths, missing files, unknown versions)
// are tool results with IsError set, never Go errors, so the agent can
// read them and carry on.
package tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ROTl24/ai-web-generator/internal/apperr"
	"github.com/ROTl24/ai-web-generator/internal/filetools"
)

// ArgAppID names the application every tool works on.
const ArgAppID = "app_id"

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// appID reads the required app_id argument.
func appID(req mcp.CallToolRequest) (int64, *mcp.CallToolResult) {
	id := intArg(req, ArgAppID, 0)
	if id <= 0 {
		return 0, mcp.NewToolResultError("'app_id' must be a positive number")
	}
	return int64(id), nil
}

func appIDOption() mcp.ToolOption {
	return mcp.WithNumber(ArgAppID,
		mcp.Required(),
		mcp.Description("Application the call applies to"),
	)
}

// fromResult maps a file tool result onto an MCP result.
func fromResult(r filetools.Result) *mcp.CallToolResult {
	if r.IsError {
		return mcp.NewToolResultError(r.Text)
	}
	return mcp.NewToolResultText(r.Text)
}

// errorResult reports a typed pipeline error with its code.
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", apperr.Code(err), apperr.Message(err)))
}
