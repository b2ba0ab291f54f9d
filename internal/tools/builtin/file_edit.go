package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"arlo/internal/agent/ports"
	"arlo/internal/diff"
)

type fileEdit struct {
	workspace string
	diffs     *diff.Generator
}

func NewFileEdit(cfg Config) ports.ToolExecutor {
	return &fileEdit{workspace: cfg.Workspace, diffs: diff.NewGenerator(false)}
}

func (t *fileEdit) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path, oldStr, newStr, errResult := t.editArgs(call)
	if errResult != nil {
		return errResult, nil
	}
	resolved, err := resolvePath(t.workspace, path)
	if err != nil {
		return failure(call, "%v", err), nil
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return failure(call, "read %s: %v", path, err), nil
	}
	text := string(content)

	count := strings.Count(text, oldStr)
	if count == 0 {
		return failure(call, "old_string not found in %s", path), nil
	}
	if count > 1 {
		return failure(call, "old_string matches %d times in %s, provide more context", count, path), nil
	}

	updated := strings.Replace(text, oldStr, newStr, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return failure(call, "write %s: %v", path, err), nil
	}
	return &ports.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("edited %s", path),
		Metadata: map[string]any{
			"path": path,
		},
	}, nil
}

// ApprovalMessage previews the single replacement as a diff.
func (t *fileEdit) ApprovalMessage(call ports.ToolCall) string {
	path, oldStr, newStr, errResult := t.editArgs(call)
	if errResult != nil {
		return ""
	}
	resolved, err := resolvePath(t.workspace, path)
	if err != nil {
		return ""
	}
	content, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Sprintf("Edit %s (file not readable)", path)
	}
	updated := strings.Replace(string(content), oldStr, newStr, 1)
	result := t.diffs.GenerateUnified(string(content), updated, path)
	if result.UnifiedDiff == "" {
		return fmt.Sprintf("Edit %s (no content change)", path)
	}
	return fmt.Sprintf("Edit %s (%s)\n\n%s", path, result.Summary(), result.UnifiedDiff)
}

func (t *fileEdit) editArgs(call ports.ToolCall) (path, oldStr, newStr string, errResult *ports.ToolResult) {
	path, ok := stringArg(call.Arguments, "path")
	if !ok {
		return "", "", "", failure(call, "missing 'path' argument")
	}
	oldStr, ok = stringArg(call.Arguments, "old_string")
	if !ok || oldStr == "" {
		return "", "", "", failure(call, "missing 'old_string' argument")
	}
	newStr, ok = stringArg(call.Arguments, "new_string")
	if !ok {
		return "", "", "", failure(call, "missing 'new_string' argument")
	}
	return path, oldStr, newStr, nil
}

func (t *fileEdit) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "file_edit",
		Description: "Replace one exact occurrence of old_string with new_string in a file",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path":       {Type: "string", Description: "File path, relative to the workspace"},
				"old_string": {Type: "string", Description: "Exact text to replace, must match once"},
				"new_string": {Type: "string", Description: "Replacement text"},
			},
			Required: []string{"path", "old_string", "new_string"},
		},
	}
}

func (t *fileEdit) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:             "file_edit",
		Category:         "filesystem",
		Permission:       ports.PermissionFilesystemWrite,
		RequiresApproval: true,
	}
}
