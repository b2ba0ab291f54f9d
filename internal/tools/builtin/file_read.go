package builtin

import (
	"context"
	"os"

	"arlo/internal/agent/ports"
)

// Read results larger than this are truncated with a marker so one
// file cannot blow the conversation budget.
const maxReadBytes = 256 * 1024

type fileRead struct {
	workspace string
}

func NewFileRead(cfg Config) ports.ToolExecutor {
	return &fileRead{workspace: cfg.Workspace}
}

func (t *fileRead) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path, ok := stringArg(call.Arguments, "path")
	if !ok {
		return failure(call, "missing 'path' argument"), nil
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
	truncated := false
	if len(text) > maxReadBytes {
		text = text[:maxReadBytes] + "\n... [truncated]"
		truncated = true
	}
	return &ports.ToolResult{
		CallID:  call.ID,
		Content: text,
		Metadata: map[string]any{
			"path":      path,
			"bytes":     len(content),
			"truncated": truncated,
		},
	}, nil
}

func (t *fileRead) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "file_read",
		Description: "Read the contents of a file in the workspace",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path": {Type: "string", Description: "File path, relative to the workspace"},
			},
			Required: []string{"path"},
		},
	}
}

func (t *fileRead) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:       "file_read",
		Category:   "filesystem",
		Permission: ports.PermissionFilesystemRead,
		Cacheable:  true,
	}
}
