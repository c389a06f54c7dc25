// Package resources implements MCP resource handlers for the generator.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (webgen://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ROTl24/ai-web-generator/internal/config"
	"github.com/ROTl24/ai-web-generator/internal/progress"
)

// Handler serves the generator's resources.
type Handler struct {
	cfg *config.Config
	hub *progress.Hub
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(cfg *config.Config, hub *progress.Hub) *Handler {
	return &Handler{cfg: cfg, hub: hub}
}

// BuildsResource returns the MCP resource definition for build progress.
func (h *Handler) BuildsResource() mcp.Resource {
	return mcp.NewResource(
		"webgen://builds",
		"Build Progress",
		mcp.WithResourceDescription("Latest build progress event of every project built since startup"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleBuilds returns the latest progress per project as JSON.
func (h *Handler) HandleBuilds(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, h.hub.Snapshot())
}

// ConfigResource returns the MCP resource definition for the effective
// configuration.
func (h *Handler) ConfigResource() mcp.Resource {
	return mcp.NewResource(
		"webgen://config",
		"Generator Configuration",
		mcp.WithResourceDescription("Effective configuration: output layout, build commands and timeouts. Secrets are redacted."),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleConfig returns the configuration with secrets redacted.
func (h *Handler) HandleConfig(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if h.cfg == nil {
		return errorResource(req.Params.URI, "configuration not loaded"), nil
	}
	redacted := *h.cfg
	if redacted.Upload.SFTP.Password != "" {
		redacted.Upload.SFTP.Password = "********"
	}
	return jsonResource(req.Params.URI, redacted)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
