package filetools

import (
	"path/filepath"
	"testing"
)

func TestNormalizeRelativePath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"./a/b.txt", "a/b.txt"},
		{"a/b.txt", "a/b.txt"},
		{`.\a\b.txt`, "a/b.txt"},
		{`C:\x\y.txt`, `C:\x\y.txt`},
		{"d:/x/y.txt", "d:/x/y.txt"},
		{"/etc/passwd", "etc/passwd"},
		{"///a", "a"},
		{"/./a", "a"},
		{"  src/App.vue  ", "src/App.vue"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeRelativePath(tc.in); got != tc.want {
			t.Errorf("NormalizeRelativePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHasDrivePrefix(t *testing.T) {
	if !HasDrivePrefix(`C:\x`) || !HasDrivePrefix("z:/x") {
		t.Error("drive roots should be detected")
	}
	if HasDrivePrefix("C:x") || HasDrivePrefix("CC:/x") || HasDrivePrefix("/c/x") {
		t.Error("non-drive paths should not be detected")
	}
}

func TestResolveIn_RejectsEscape(t *testing.T) {
	root := t.TempDir()
	if _, err := resolveIn(root, "../outside.txt"); err == nil {
		t.Error("expected escape to be rejected")
	}
	got, err := resolveIn(root, "src/../index.html")
	if err != nil {
		t.Fatalf("resolveIn: %v", err)
	}
	if want := filepath.Join(root, "index.html"); got != want {
		t.Errorf("resolveIn = %q, want %q", got, want)
	}
}

func TestIsProtected(t *testing.T) {
	for _, p := range []string{"package.json", "src/App.vue", "README.MD", `nested\vite.config.ts`} {
		if !IsProtected(p) {
			t.Errorf("IsProtected(%q) = false, want true", p)
		}
	}
	for _, p := range []string{"src/components/Hello.vue", "package.json.bak"} {
		if IsProtected(p) {
			t.Errorf("IsProtected(%q) = true, want false", p)
		}
	}
}
