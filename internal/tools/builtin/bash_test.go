package builtin

import (
	"context"
	"strings"
	"testing"

	"arlo/internal/sandbox"
	"arlo/internal/skills"
)

func directConfig(t *testing.T) Config {
	t.Helper()
	cfg := testConfig(t)
	cfg.Mode = skills.AgentModeDirect
	cfg.Direct = sandbox.NewDirectBackend(nil)
	return cfg
}

// recordingBackend captures the execution config a tool hands to the
// sandbox layer.
type recordingBackend struct {
	lastCommand string
	lastFiles   string
	lastCfg     sandbox.Config
}

func (b *recordingBackend) Name() string    { return "recording" }
func (b *recordingBackend) Available() bool { return true }

func (b *recordingBackend) Execute(ctx context.Context, command, workspaceDir string, cfg sandbox.Config) (sandbox.ExecResult, error) {
	b.lastCommand = command
	b.lastCfg = cfg
	return sandbox.ExecResult{Success: true, Stdout: "ok"}, nil
}

func (b *recordingBackend) ExecuteWithFiles(ctx context.Context, command, workspaceDir, extraFilesDir string, cfg sandbox.Config) (sandbox.ExecResult, error) {
	b.lastFiles = extraFilesDir
	return b.Execute(ctx, command, workspaceDir, cfg)
}

func TestBashRunsCommand(t *testing.T) {
	tool := NewBash(directConfig(t))
	res, err := tool.Execute(context.Background(), call("bash", map[string]any{
		"command": "echo hello",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Failed() {
		t.Fatalf("command failed: %s", res.Error)
	}
	if !strings.Contains(res.Content, "hello") {
		t.Errorf("content = %q", res.Content)
	}
	if res.Metadata["backend"] != "direct" {
		t.Errorf("backend = %v", res.Metadata["backend"])
	}
}

func TestBashReportsExitCode(t *testing.T) {
	tool := NewBash(directConfig(t))
	res, err := tool.Execute(context.Background(), call("bash", map[string]any{
		"command": "exit 3",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Failed() {
		t.Fatal("non-zero exit should produce a failed result")
	}
	if res.Metadata["exit_code"] != 3 {
		t.Errorf("exit_code = %v", res.Metadata["exit_code"])
	}
}

func TestBashUsesConfiguredSandboxSettings(t *testing.T) {
	rec := &recordingBackend{}
	cfg := testConfig(t)
	cfg.Mode = skills.AgentModeDirect
	cfg.Direct = rec
	cfg.Sandbox = sandbox.Config{Image: "custom:1", MemoryLimit: "512m", TimeoutSeconds: 5}

	tool := NewBash(cfg)
	res, err := tool.Execute(context.Background(), call("bash", map[string]any{
		"command": "echo hi",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Failed() {
		t.Fatalf("command failed: %s", res.Error)
	}
	if rec.lastCfg.Image != "custom:1" || rec.lastCfg.MemoryLimit != "512m" || rec.lastCfg.TimeoutSeconds != 5 {
		t.Errorf("backend config = %+v, want configured settings", rec.lastCfg)
	}

	// A per-call timeout still overrides the configured one.
	_, err = tool.Execute(context.Background(), call("bash", map[string]any{
		"command":         "echo hi",
		"timeout_seconds": float64(9),
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rec.lastCfg.TimeoutSeconds != 9 {
		t.Errorf("timeout = %d, want per-call override 9", rec.lastCfg.TimeoutSeconds)
	}
	if rec.lastCfg.Image != "custom:1" {
		t.Errorf("image = %q, per-call override must not drop the configured image", rec.lastCfg.Image)
	}
}

func TestBashMissingCommand(t *testing.T) {
	tool := NewBash(directConfig(t))
	res, err := tool.Execute(context.Background(), call("bash", nil))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Failed() {
		t.Error("missing command should fail")
	}
}

func TestBashSandboxModeWithoutBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = skills.AgentModeSandbox
	cfg.Direct = sandbox.NewDirectBackend(nil)

	tool := NewBash(cfg)
	res, err := tool.Execute(context.Background(), call("bash", map[string]any{
		"command": "echo hi",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Failed() || !strings.Contains(res.Error, "unavailable") {
		t.Errorf("expected unavailable-backend failure, got %q", res.Error)
	}
}
