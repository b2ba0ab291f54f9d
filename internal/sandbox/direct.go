package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"arlo/internal/logging"
)

// DirectBackend runs commands through a shell on the host with an OS-level
// timeout and no isolation.
type DirectBackend struct {
	logger logging.Logger
}

// NewDirectBackend constructs the host-process backend.
func NewDirectBackend(logger logging.Logger) *DirectBackend {
	return &DirectBackend{logger: logging.OrNop(logger)}
}

func (b *DirectBackend) Name() string { return "direct" }

// Available always holds: the host shell is the baseline.
func (b *DirectBackend) Available() bool { return true }

func (b *DirectBackend) Execute(ctx context.Context, command, workspaceDir string, cfg Config) (ExecResult, error) {
	return b.run(ctx, command, workspaceDir, "", cfg)
}

// ExecuteWithFiles passes the extra files path through ARLO_SKILL_DIR; the
// direct backend has no mounts to isolate it behind.
func (b *DirectBackend) ExecuteWithFiles(ctx context.Context, command, workspaceDir, extraFilesDir string, cfg Config) (ExecResult, error) {
	return b.run(ctx, command, workspaceDir, extraFilesDir, cfg)
}

func (b *DirectBackend) run(ctx context.Context, command, workspaceDir, extraFilesDir string, cfg Config) (ExecResult, error) {
	cfg = cfg.WithDefaults()
	if command == "" {
		return ExecResult{}, fmt.Errorf("sandbox: command is empty")
	}
	if workspaceDir != "" {
		if info, err := os.Stat(workspaceDir); err != nil || !info.IsDir() {
			return ExecResult{}, fmt.Errorf("sandbox: workspace %q is not a directory", workspaceDir)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = workspaceDir
	cmd.Env = os.Environ()
	if extraFilesDir != "" {
		cmd.Env = append(cmd.Env, ExtraFilesEnv+"="+extraFilesDir)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	b.logger.Debug("direct exec: %s (workspace=%s timeout=%ds)", command, workspaceDir, cfg.TimeoutSeconds)
	err := cmd.Run()

	result := ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = TimeoutExitCode
		return result, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("sandbox: start command: %w", err)
	}

	result.Success = true
	return result, nil
}
