package builtin

import (
	"context"
	"fmt"

	"arlo/internal/agent/ports"
	"arlo/internal/sandbox"
	"arlo/internal/skills"
)

type bash struct {
	cfg Config
}

func NewBash(cfg Config) ports.ToolExecutor {
	return &bash{cfg: cfg}
}

func (t *bash) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	command, ok := stringArg(call.Arguments, "command")
	if !ok || command == "" {
		return failure(call, "missing 'command' argument"), nil
	}

	backend, err := pickBackend(t.cfg, false, "")
	if err != nil {
		return failure(call, "%v", err), nil
	}

	execCfg := t.cfg.Sandbox
	if v, ok := call.Arguments["timeout_seconds"].(float64); ok && v > 0 {
		execCfg.TimeoutSeconds = int(v)
	}

	result, err := backend.Execute(ctx, command, t.cfg.Workspace, execCfg)
	if err != nil {
		t.cfg.Metrics.SandboxExecutions.WithLabelValues(backend.Name(), "error").Inc()
		return failure(call, "execute command: %v", err), nil
	}
	t.cfg.Metrics.SandboxExecutions.WithLabelValues(backend.Name(), execStatus(result)).Inc()

	res := &ports.ToolResult{
		CallID:  call.ID,
		Content: result.Summary(),
		Metadata: map[string]any{
			"backend":   backend.Name(),
			"exit_code": result.ExitCode,
			"timed_out": result.TimedOut,
		},
	}
	if !result.Success {
		res.Error = fmt.Sprintf("command exited with code %d", result.ExitCode)
		if result.TimedOut {
			res.Error = "command timed out"
		}
	}
	return res, nil
}

func execStatus(r sandbox.ExecResult) string {
	switch {
	case r.TimedOut:
		return "timeout"
	case r.Success:
		return "success"
	default:
		return "failure"
	}
}

// ApprovalMessage shows the exact command line pending approval.
func (t *bash) ApprovalMessage(call ports.ToolCall) string {
	command, ok := stringArg(call.Arguments, "command")
	if !ok {
		return ""
	}
	where := "on the host"
	if t.cfg.Mode == skills.AgentModeSandbox {
		where = "in the sandbox"
	}
	return fmt.Sprintf("Run shell command %s:\n\n  %s", where, command)
}

func (t *bash) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "bash",
		Description: "Run a shell command in the workspace",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"command":         {Type: "string", Description: "Shell command to run"},
				"timeout_seconds": {Type: "integer", Description: "Optional timeout override"},
			},
			Required: []string{"command"},
		},
	}
}

func (t *bash) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:             "bash",
		Category:         "execution",
		Permission:       ports.PermissionShellExecute,
		RequiresApproval: true,
	}
}
