// Package prompts implements MCP prompt handlers for the generator.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func argOr(req mcp.GetPromptRequest, key, def string) string {
	if args := req.Params.Arguments; args != nil {
		if v, ok := args[key]; ok && v != "" {
			return v
		}
	}
	return def
}

// CreatePrompt handles the webgen-create MCP prompt: build a new Vue
// project from a description.
type CreatePrompt struct{}

// NewCreatePrompt creates a CreatePrompt.
func NewCreatePrompt() *CreatePrompt {
	return &CreatePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *CreatePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("webgen-create",
		mcp.WithPromptDescription("Generate a new Vue project for an app from a description, file by file."),
		mcp.WithArgument("app_id",
			mcp.ArgumentDescription("Application to generate into"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("description",
			mcp.ArgumentDescription("What the app should do"),
		),
	)
}

// Handle processes the webgen-create prompt request.
func (p *CreatePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	appID := argOr(req, "app_id", "1")
	description := argOr(req, "description", "(ask me what the app should do)")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Create app %s", appID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Build a Vue 3 + Vite project for app %s.\n\n"+
						"Description: %s\n\n"+
						"Rules:\n"+
						"1. Write every file with `writeFile` (app_id=%s). Start with package.json, vite.config.js, index.html, src/main.js and src/App.vue.\n"+
						"2. Write each file once. If a write is skipped, do not retry it; move on to the files that are still missing.\n"+
						"3. Use `readDir` to check what exists before you finish.\n"+
						"4. When every file is written, run `build_project` and fix the errors it reports.",
					appID, description, appID,
				)),
			},
		},
	}, nil
}

// ModifyPrompt handles the webgen-modify MCP prompt: change an existing
// project in place.
type ModifyPrompt struct{}

// NewModifyPrompt creates a ModifyPrompt.
func NewModifyPrompt() *ModifyPrompt {
	return &ModifyPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ModifyPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("webgen-modify",
		mcp.WithPromptDescription("Change an existing generated project. The previous version is copied and edited."),
		mcp.WithArgument("app_id",
			mcp.ArgumentDescription("Application to modify"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("change",
			mcp.ArgumentDescription("The change to make"),
		),
	)
}

// Handle processes the webgen-modify prompt request.
func (p *ModifyPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	appID := argOr(req, "app_id", "1")
	change := argOr(req, "change", "(ask me what to change)")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Modify app %s", appID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Modify app %s: %s\n\n"+
						"1. Run `readDir` (app_id=%s) and `readFile` on the files the change touches.\n"+
						"2. Rewrite only those files with `writeFile`; unchanged files are already in this version.\n"+
						"3. Never delete package.json, configs, index.html, the main entry or App.vue.\n"+
						"4. Run `build_project`, then `version_diff` against the previous version and summarise the change.",
					appID, change, appID,
				)),
			},
		},
	}, nil
}
