package builtin

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"arlo/internal/agent/ports"
)

const maxListEntries = 500

type listFiles struct {
	workspace string
}

func NewListFiles(cfg Config) ports.ToolExecutor {
	return &listFiles{workspace: cfg.Workspace}
}

func (t *listFiles) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	dir := "."
	if v, ok := stringArg(call.Arguments, "path"); ok && v != "" {
		dir = v
	}
	resolved, err := resolvePath(t.workspace, dir)
	if err != nil {
		return failure(call, "%v", err), nil
	}

	recursive := false
	if v, ok := call.Arguments["recursive"].(bool); ok {
		recursive = v
	}

	var entries []string
	if recursive {
		err = filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p == resolved {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			rel, relErr := filepath.Rel(resolved, p)
			if relErr != nil {
				return relErr
			}
			if d.IsDir() {
				rel += "/"
			}
			entries = append(entries, filepath.ToSlash(rel))
			if len(entries) >= maxListEntries {
				return filepath.SkipAll
			}
			return nil
		})
	} else {
		var dirEntries []fs.DirEntry
		dirEntries, err = os.ReadDir(resolved)
		for _, e := range dirEntries {
			name := e.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			if e.IsDir() {
				name += "/"
			}
			entries = append(entries, name)
		}
	}
	if err != nil {
		return failure(call, "list %s: %v", dir, err), nil
	}

	sort.Strings(entries)
	content := strings.Join(entries, "\n")
	if len(entries) == 0 {
		content = "(empty)"
	} else if len(entries) >= maxListEntries {
		content += fmt.Sprintf("\n... [listing capped at %d entries]", maxListEntries)
	}
	return &ports.ToolResult{
		CallID:  call.ID,
		Content: content,
		Metadata: map[string]any{
			"path":  dir,
			"count": len(entries),
		},
	}, nil
}

func (t *listFiles) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "list_files",
		Description: "List files and directories in the workspace",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path":      {Type: "string", Description: "Directory to list, defaults to the workspace root"},
				"recursive": {Type: "boolean", Description: "Walk subdirectories"},
			},
		},
	}
}

func (t *listFiles) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:       "list_files",
		Category:   "filesystem",
		Permission: ports.PermissionFilesystemRead,
	}
}
