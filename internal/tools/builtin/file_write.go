package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"arlo/internal/agent/ports"
	"arlo/internal/diff"
)

type fileWrite struct {
	workspace string
	diffs     *diff.Generator
}

func NewFileWrite(cfg Config) ports.ToolExecutor {
	return &fileWrite{workspace: cfg.Workspace, diffs: diff.NewGenerator(false)}
}

func (t *fileWrite) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path, ok := stringArg(call.Arguments, "path")
	if !ok {
		return failure(call, "missing 'path' argument"), nil
	}
	content, ok := stringArg(call.Arguments, "content")
	if !ok {
		return failure(call, "missing 'content' argument"), nil
	}
	resolved, err := resolvePath(t.workspace, path)
	if err != nil {
		return failure(call, "%v", err), nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return failure(call, "create parent dirs for %s: %v", path, err), nil
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return failure(call, "write %s: %v", path, err), nil
	}
	return &ports.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("wrote %d bytes to %s", len(content), path),
		Metadata: map[string]any{
			"path":  path,
			"bytes": len(content),
		},
	}, nil
}

// ApprovalMessage renders a unified diff of the pending write so the
// user sees exactly what would change before deciding.
func (t *fileWrite) ApprovalMessage(call ports.ToolCall) string {
	path, ok := stringArg(call.Arguments, "path")
	if !ok {
		return ""
	}
	content, ok := stringArg(call.Arguments, "content")
	if !ok {
		return ""
	}
	old := ""
	if resolved, err := resolvePath(t.workspace, path); err == nil {
		if existing, err := os.ReadFile(resolved); err == nil {
			old = string(existing)
		}
	}
	result := t.diffs.GenerateUnified(old, content, path)
	if result.UnifiedDiff == "" {
		return fmt.Sprintf("Write %s (no content change)", path)
	}
	return fmt.Sprintf("Write %s (%s)\n\n%s", path, result.Summary(), result.UnifiedDiff)
}

func (t *fileWrite) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "file_write",
		Description: "Write content to a file, creating it if needed",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path":    {Type: "string", Description: "File path, relative to the workspace"},
				"content": {Type: "string", Description: "Full new file content"},
			},
			Required: []string{"path", "content"},
		},
	}
}

func (t *fileWrite) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:             "file_write",
		Category:         "filesystem",
		Permission:       ports.PermissionFilesystemWrite,
		RequiresApproval: true,
	}
}
