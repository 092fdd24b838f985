package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
	return path
}

func TestWalker_CollectSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "src/service.cs", "public class Service {}")
	writeFile(t, root, "src/nested/readme.md", "# readme")
	writeFile(t, root, "bin", "a file named like an excluded dir")

	writeFile(t, root, ".git/config", "[core]")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}")
	writeFile(t, root, "src/bin/Debug/app.dll.config", "<xml/>")
	writeFile(t, root, "src/obj/project.assets.json", "{}")
	writeFile(t, root, ".vs/settings.json", "{}")
	writeFile(t, root, ".idea/workspace.xml", "<xml/>")

	walker, err := NewWalker(root)
	if err != nil {
		t.Fatalf("NewWalker() error = %v", err)
	}
	files, err := walker.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	var got []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		got = append(got, filepath.ToSlash(rel))
	}
	want := []string{"bin", "main.go", "src/nested/readme.md", "src/service.cs"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Collect() = %v, want %v", got, want)
	}

	for _, f := range files {
		if !filepath.IsAbs(f.Path) {
			t.Errorf("path %s is not absolute", f.Path)
		}
	}
}

func TestWalker_CollectReadsContent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello world")

	walker, err := NewWalker(root)
	if err != nil {
		t.Fatalf("NewWalker() error = %v", err)
	}
	files, err := walker.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(files) != 1 || files[0].Content != "hello world" {
		t.Fatalf("Collect() = %+v, want one file with its content", files)
	}
}

func TestWalker_SkipsBinaryAndOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.txt", "text")
	writeFile(t, root, "image.png", "\x89PNG\x00\x00\x00")
	writeFile(t, root, "big.log", strings.Repeat("x", 2048))

	walker, err := NewWalkerWithConfig(root, WalkerConfig{MaxFileBytes: 1024})
	if err != nil {
		t.Fatalf("NewWalkerWithConfig() error = %v", err)
	}
	files, err := walker.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0].Path) != "ok.txt" {
		t.Fatalf("Collect() = %+v, want only ok.txt", files)
	}
	if len(walker.Skipped()) != 2 {
		t.Errorf("Skipped() = %d entries, want 2", len(walker.Skipped()))
	}
}

func TestWalker_SkipsUnreadableFiles(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	root := t.TempDir()
	writeFile(t, root, "ok.txt", "text")
	locked := writeFile(t, root, "locked.txt", "secret")
	if err := os.Chmod(locked, 0000); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0644) })

	walker, err := NewWalker(root)
	if err != nil {
		t.Fatalf("NewWalker() error = %v", err)
	}
	files, err := walker.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(files) != 1 {
		t.Errorf("Collect() returned %d files, want 1", len(files))
	}
}

func TestWalker_RespectGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\ngenerated/\n")
	writeFile(t, root, "app.go", "package app")
	writeFile(t, root, "debug.log", "noise")
	writeFile(t, root, "generated/types.go", "package generated")

	walker, err := NewWalkerWithConfig(root, WalkerConfig{RespectGitignore: true})
	if err != nil {
		t.Fatalf("NewWalkerWithConfig() error = %v", err)
	}
	files, err := walker.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	for _, f := range files {
		base := filepath.Base(f.Path)
		if base == "debug.log" || base == "types.go" {
			t.Errorf("Collect() returned ignored file %s", f.Path)
		}
	}
	if len(files) != 2 { // .gitignore and app.go
		t.Errorf("Collect() returned %d files, want 2", len(files))
	}
}

func TestNewWalker_InvalidRoot(t *testing.T) {
	if _, err := NewWalker(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("NewWalker() expected error for missing root")
	}
}

func TestWalker_Matcher(t *testing.T) {
	walker, err := NewWalker(t.TempDir())
	if err != nil {
		t.Fatalf("NewWalker() error = %v", err)
	}
	m := walker.Matcher()

	tests := []struct {
		path string
		want bool
	}{
		{".git/HEAD", true},
		{"src/node_modules/x.js", true},
		{"src/app.go", false},
		{"binary.go", false},
	}
	for _, tt := range tests {
		if got := m.MatchesPath(tt.path); got != tt.want {
			t.Errorf("MatchesPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
