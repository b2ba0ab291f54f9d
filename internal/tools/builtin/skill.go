package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"arlo/internal/agent/ports"
	"arlo/internal/sandbox"
	"arlo/internal/skills"
)

// skillTool exposes the loaded skill library to the model: list the
// available skills, read one skill's playbook, or run a command with
// the skill's bundled files mounted.
type skillTool struct {
	cfg Config
}

func NewSkill(cfg Config) ports.ToolExecutor {
	return &skillTool{cfg: cfg}
}

func (t *skillTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	action, _ := stringArg(call.Arguments, "action")
	if action == "" {
		action = "read"
	}

	if action == "list" {
		return t.list(call), nil
	}

	name, ok := stringArg(call.Arguments, "name")
	if !ok || name == "" {
		return failure(call, "missing 'name' argument"), nil
	}
	skill, ok := t.cfg.Skills.Get(name)
	if !ok {
		return failure(call, "unknown skill %q", name), nil
	}

	switch action {
	case "read":
		return t.read(call, skill), nil
	case "run":
		return t.run(ctx, call, skill)
	}
	return failure(call, "unknown action %q, expected list, read or run", action), nil
}

func (t *skillTool) list(call ports.ToolCall) *ports.ToolResult {
	all := t.cfg.Skills.List()
	if len(all) == 0 {
		return &ports.ToolResult{CallID: call.ID, Content: "No skills are installed."}
	}
	var b strings.Builder
	for _, s := range all {
		fmt.Fprintf(&b, "%s: %s\n", s.Name(), s.Manifest.Description)
	}
	return &ports.ToolResult{CallID: call.ID, Content: strings.TrimRight(b.String(), "\n")}
}

func (t *skillTool) read(call ports.ToolCall, skill skills.Skill) *ports.ToolResult {
	var b strings.Builder
	b.WriteString(skill.Manifest.Body)
	if len(skill.Files) > 0 {
		names := make([]string, 0, len(skill.Files))
		for name := range skill.Files {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("\n\nBundled files:\n")
		for _, name := range names {
			b.WriteString("  " + name + "\n")
		}
	}
	return &ports.ToolResult{
		CallID:  call.ID,
		Content: strings.TrimRight(b.String(), "\n"),
		Metadata: map[string]any{
			"skill":            skill.Name(),
			"requires_sandbox": skill.Manifest.RequiresSandbox,
		},
	}
}

func (t *skillTool) run(ctx context.Context, call ports.ToolCall, skill skills.Skill) (*ports.ToolResult, error) {
	command, ok := stringArg(call.Arguments, "command")
	if !ok || command == "" {
		return failure(call, "missing 'command' argument for action run"), nil
	}

	m := skill.Manifest
	backend, err := pickBackend(t.cfg, m.RequiresSandbox, m.PreferredMode)
	if err != nil {
		return failure(call, "%v", err), nil
	}

	execCfg := execConfig(t.cfg.Sandbox, m.SandboxConfig)

	filesDir := skill.Dir
	if filesDir == "" && len(skill.Files) > 0 {
		staged, err := stageFiles(skill)
		if err != nil {
			return failure(call, "stage skill files: %v", err), nil
		}
		defer os.RemoveAll(staged)
		filesDir = staged
	}

	var result sandbox.ExecResult
	if filesDir != "" {
		result, err = backend.ExecuteWithFiles(ctx, command, t.cfg.Workspace, filesDir, execCfg)
	} else {
		result, err = backend.Execute(ctx, command, t.cfg.Workspace, execCfg)
	}
	if err != nil {
		t.cfg.Metrics.SandboxExecutions.WithLabelValues(backend.Name(), "error").Inc()
		return failure(call, "run skill %s: %v", skill.Name(), err), nil
	}
	t.cfg.Metrics.SandboxExecutions.WithLabelValues(backend.Name(), execStatus(result)).Inc()

	res := &ports.ToolResult{
		CallID:  call.ID,
		Content: result.Summary(),
		Metadata: map[string]any{
			"skill":     skill.Name(),
			"backend":   backend.Name(),
			"exit_code": result.ExitCode,
			"timed_out": result.TimedOut,
		},
	}
	if !result.Success {
		res.Error = fmt.Sprintf("skill command exited with code %d", result.ExitCode)
		if result.TimedOut {
			res.Error = "skill command timed out"
		}
	}
	return res, nil
}

// execConfig overlays a manifest's sandbox block on the base config.
// Fields the manifest leaves empty fall back to the base; the network
// flag belongs to the manifest whenever it ships a sandbox block at
// all, since that block is an explicit opt-in.
func execConfig(base sandbox.Config, override *sandbox.Config) sandbox.Config {
	if override == nil {
		return base
	}
	out := base
	if strings.TrimSpace(override.Image) != "" {
		out.Image = override.Image
	}
	if strings.TrimSpace(override.MemoryLimit) != "" {
		out.MemoryLimit = override.MemoryLimit
	}
	if strings.TrimSpace(override.CPULimit) != "" {
		out.CPULimit = override.CPULimit
	}
	if override.TimeoutSeconds > 0 {
		out.TimeoutSeconds = override.TimeoutSeconds
	}
	out.NetworkEnabled = override.NetworkEnabled
	return out
}

// stageFiles materializes an archive-loaded skill's bundle into a
// temporary directory so a backend can mount it. The caller removes
// the directory when the run finishes.
func stageFiles(skill skills.Skill) (string, error) {
	dir, err := os.MkdirTemp("", "arlo-skill-"+skill.Name()+"-")
	if err != nil {
		return "", err
	}
	for rel, data := range skill.Files {
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
		mode := os.FileMode(0o644)
		if strings.HasSuffix(rel, ".sh") || strings.HasSuffix(rel, ".py") {
			mode = 0o755
		}
		if err := os.WriteFile(target, data, mode); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
	}
	return dir, nil
}

// NeedsApproval exempts list and read, which execute nothing.
func (t *skillTool) NeedsApproval(call ports.ToolCall) bool {
	action, _ := stringArg(call.Arguments, "action")
	return action == "run"
}

// ApprovalMessage names the skill and the command it would run.
func (t *skillTool) ApprovalMessage(call ports.ToolCall) string {
	action, _ := stringArg(call.Arguments, "action")
	if action != "run" {
		return ""
	}
	name, _ := stringArg(call.Arguments, "name")
	command, _ := stringArg(call.Arguments, "command")
	return fmt.Sprintf("Run skill %s command:\n\n  %s", name, command)
}

func (t *skillTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "skill",
		Description: "List installed skills, read a skill playbook, or run a skill command",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"action":  {Type: "string", Description: "One of list, read, run (default read)", Enum: []any{"list", "read", "run"}},
				"name":    {Type: "string", Description: "Skill name, required for read and run"},
				"command": {Type: "string", Description: "Shell command, required for run"},
			},
		},
	}
}

func (t *skillTool) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:             "skill",
		Category:         "skills",
		Permission:       ports.PermissionShellExecute,
		RequiresApproval: true,
	}
}
