package filetools

import (
	"strings"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range []string{ToolWriteFile, ToolReadFile, ToolReadDir, ToolDeleteFile} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
	if _, ok := r.Get("exitTool"); ok {
		t.Error("unexpected tool registered")
	}
}

func TestExecutedSummary_Write(t *testing.T) {
	tool, _ := DefaultRegistry().Get(ToolWriteFile)
	args := ParseArguments(`{"relativeFilePath":"src/App.vue","content":"<template/>"}`)

	got := tool.ExecutedSummary(args)
	want := "[Tool call] Write file src/App.vue\n```vue\n<template/>\n```"
	if got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestExecutedSummary_ReadDirDefaultsToRoot(t *testing.T) {
	tool, _ := DefaultRegistry().Get(ToolReadDir)
	if got := tool.ExecutedSummary(ParseArguments("")); got != "[Tool call] Read directory project root" {
		t.Errorf("summary = %q", got)
	}
}

func TestParseArguments_Malformed(t *testing.T) {
	if got := ParseArguments("{not json"); len(got) != 0 {
		t.Errorf("ParseArguments = %v, want empty", got)
	}
}

func TestRequestNotice(t *testing.T) {
	got := RequestNotice("Write file")
	if !strings.HasPrefix(got, "\n\n[Tool selected] Write file") {
		t.Errorf("RequestNotice = %q", got)
	}
}
