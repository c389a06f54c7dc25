package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	if len(res.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(res.Messages))
	}
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", res.Messages[0].Content)
	}
	return tc.Text
}

func TestCreatePrompt(t *testing.T) {
	p := NewCreatePrompt()
	if name := p.Definition().Name; name != "webgen-create" {
		t.Errorf("name = %q, want webgen-create", name)
	}

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"app_id": "12", "description": "a pomodoro timer"}
	res, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, res)
	for _, want := range []string{"app 12", "a pomodoro timer", "app_id=12", "build_project"} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestModifyPrompt_Defaults(t *testing.T) {
	p := NewModifyPrompt()
	if name := p.Definition().Name; name != "webgen-modify" {
		t.Errorf("name = %q, want webgen-modify", name)
	}
	res, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if text := promptText(t, res); !strings.Contains(text, "ask me what to change") {
		t.Errorf("text = %q", text)
	}
}
