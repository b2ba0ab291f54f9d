package builtin

import (
	"fmt"
	"path/filepath"
	"strings"

	"arlo/internal/agent/ports"
	"arlo/internal/logging"
	"arlo/internal/observability"
	"arlo/internal/sandbox"
	"arlo/internal/skills"
)

// Config carries the shared dependencies for all built-in tools.
type Config struct {
	// Workspace is the directory tools operate in. Paths outside it
	// are rejected.
	Workspace string
	Mode      skills.AgentMode
	Direct    sandbox.Backend
	Isolated  sandbox.Backend
	Skills    skills.Library
	Logger    logging.Logger
	Metrics   *observability.Metrics

	// Sandbox is the base execution config for bash and skill runs.
	// Skill manifests with their own sandbox block override it.
	Sandbox sandbox.Config
}

func (c Config) withDefaults() Config {
	c.Logger = logging.OrNop(c.Logger)
	if c.Metrics == nil {
		c.Metrics = observability.NopMetrics()
	}
	if c.Mode == "" {
		c.Mode = skills.AgentModeFlexible
	}
	return c
}

// All returns every built-in tool wired against cfg.
func All(cfg Config) []ports.ToolExecutor {
	cfg = cfg.withDefaults()
	return []ports.ToolExecutor{
		NewFileRead(cfg),
		NewFileWrite(cfg),
		NewFileEdit(cfg),
		NewListFiles(cfg),
		NewBash(cfg),
		NewWebFetch(cfg),
		NewThink(),
		NewSkill(cfg),
	}
}

// resolvePath maps a tool-supplied path into the workspace. Relative
// paths are joined onto the workspace root; absolute paths must
// already live inside it.
func resolvePath(workspace, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is empty")
	}
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(workspace, resolved)
	}
	resolved = filepath.Clean(resolved)
	root := filepath.Clean(workspace)
	if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the workspace", path)
	}
	return resolved, nil
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func failure(call ports.ToolCall, format string, a ...any) *ports.ToolResult {
	return &ports.ToolResult{CallID: call.ID, Error: fmt.Sprintf(format, a...)}
}

// pickBackend applies the execution policy shared by bash and skill
// runs: sandbox mode demands isolation, direct mode demands the host,
// flexible follows the given preference.
func pickBackend(cfg Config, requiresSandbox bool, preferredMode string) (sandbox.Backend, error) {
	isolatedAvailable := cfg.Isolated != nil && cfg.Isolated.Available()
	useIsolated, err := skills.ResolveBackend(cfg.Mode, requiresSandbox, preferredMode, isolatedAvailable)
	if err != nil {
		return nil, err
	}
	if useIsolated {
		return cfg.Isolated, nil
	}
	if cfg.Direct == nil {
		return nil, fmt.Errorf("no direct backend configured")
	}
	return cfg.Direct, nil
}
