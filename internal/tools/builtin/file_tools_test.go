package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"arlo/internal/agent/ports"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{Workspace: t.TempDir()}.withDefaults()
}

func call(name string, args map[string]any) ports.ToolCall {
	return ports.ToolCall{ID: "test-call", Name: name, Arguments: args}
}

func TestFileReadAndWrite(t *testing.T) {
	cfg := testConfig(t)
	write := NewFileWrite(cfg)
	read := NewFileRead(cfg)

	res, err := write.Execute(context.Background(), call("file_write", map[string]any{
		"path":    "notes/hello.txt",
		"content": "hello world\n",
	}))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if res.Failed() {
		t.Fatalf("write failed: %s", res.Error)
	}

	res, err = read.Execute(context.Background(), call("file_read", map[string]any{
		"path": "notes/hello.txt",
	}))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if res.Content != "hello world\n" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestFileReadMissingAndEscaping(t *testing.T) {
	cfg := testConfig(t)
	read := NewFileRead(cfg)

	res, _ := read.Execute(context.Background(), call("file_read", map[string]any{"path": "nope.txt"}))
	if !res.Failed() {
		t.Error("missing file should fail")
	}

	res, _ = read.Execute(context.Background(), call("file_read", map[string]any{"path": "../../etc/passwd"}))
	if !res.Failed() || !strings.Contains(res.Error, "escapes") {
		t.Errorf("path escape should be rejected, got %q", res.Error)
	}

	res, _ = read.Execute(context.Background(), call("file_read", nil))
	if !res.Failed() {
		t.Error("missing path argument should fail")
	}
}

func TestFileEdit(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(cfg.Workspace, "main.go")
	if err := os.WriteFile(path, []byte("alpha\nbeta\ngamma\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	edit := NewFileEdit(cfg)

	res, err := edit.Execute(context.Background(), call("file_edit", map[string]any{
		"path":       "main.go",
		"old_string": "beta",
		"new_string": "BETA",
	}))
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if res.Failed() {
		t.Fatalf("edit failed: %s", res.Error)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "alpha\nBETA\ngamma\n" {
		t.Errorf("content = %q", content)
	}

	res, _ = edit.Execute(context.Background(), call("file_edit", map[string]any{
		"path":       "main.go",
		"old_string": "missing",
		"new_string": "x",
	}))
	if !res.Failed() {
		t.Error("unmatched old_string should fail")
	}
}

func TestFileEditRejectsAmbiguousMatch(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(cfg.Workspace, "dup.txt")
	if err := os.WriteFile(path, []byte("x\nx\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	edit := NewFileEdit(cfg)
	res, _ := edit.Execute(context.Background(), call("file_edit", map[string]any{
		"path":       "dup.txt",
		"old_string": "x",
		"new_string": "y",
	}))
	if !res.Failed() || !strings.Contains(res.Error, "matches 2 times") {
		t.Errorf("ambiguous edit should fail, got %q", res.Error)
	}
}

func TestFileWriteApprovalMessageShowsDiff(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(cfg.Workspace, "a.txt")
	if err := os.WriteFile(path, []byte("old line\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	write := NewFileWrite(cfg).(interface {
		ApprovalMessage(ports.ToolCall) string
	})

	msg := write.ApprovalMessage(call("file_write", map[string]any{
		"path":    "a.txt",
		"content": "new line\n",
	}))
	if !strings.Contains(msg, "-old line") || !strings.Contains(msg, "+new line") {
		t.Errorf("approval message missing diff:\n%s", msg)
	}
}

func TestListFiles(t *testing.T) {
	cfg := testConfig(t)
	for _, p := range []string{"a.txt", "sub/b.txt", ".hidden"} {
		full := filepath.Join(cfg.Workspace, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	list := NewListFiles(cfg)
	res, err := list.Execute(context.Background(), call("list_files", nil))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(res.Content, "a.txt") || !strings.Contains(res.Content, "sub/") {
		t.Errorf("listing = %q", res.Content)
	}
	if strings.Contains(res.Content, ".hidden") {
		t.Error("hidden files should be skipped")
	}

	res, err = list.Execute(context.Background(), call("list_files", map[string]any{"recursive": true}))
	if err != nil {
		t.Fatalf("list recursive: %v", err)
	}
	if !strings.Contains(res.Content, "sub/b.txt") {
		t.Errorf("recursive listing = %q", res.Content)
	}
}
