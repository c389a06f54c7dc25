package filetools

import "context"

// Toolbox runs the agent file tools of one application in process.
// writeFile goes through the guard; the other tools hit the workspace
// directly.
type Toolbox struct {
	guard *Guard
	appID int64
}

// Toolbox binds the file tools to appID.
func (g *Guard) Toolbox(appID int64) *Toolbox {
	return &Toolbox{guard: g, appID: appID}
}

// AppID returns the application the toolbox is bound to.
func (t *Toolbox) AppID() int64 { return t.appID }

// Call runs the named tool with decoded JSON arguments. An unknown name
// is an error result, not a Go error, so the agent can carry on.
func (t *Toolbox) Call(ctx context.Context, name string, args map[string]any) Result {
	switch name {
	case ToolWriteFile:
		return t.guard.Write(ctx, t.appID, stringArg(args, ArgFilePath), stringArg(args, ArgContent))
	case ToolReadFile:
		return t.guard.ReadFile(t.appID, stringArg(args, ArgFilePath))
	case ToolReadDir:
		return t.guard.ReadDir(t.appID, stringArg(args, ArgDirPath))
	case ToolDeleteFile:
		return t.guard.DeleteFile(t.appID, stringArg(args, ArgFilePath))
	default:
		return fail("Error: unknown tool %s", name)
	}
}
