package sandbox

import (
	"context"
	"fmt"
	"strings"
)

// Defaults applied when a SandboxConfig field is absent.
const (
	DefaultImage          = "arlo-sandbox:latest"
	DefaultMemoryLimit    = "256m"
	DefaultCPULimit       = "0.5"
	DefaultTimeoutSeconds = 60

	// TimeoutExitCode is the well-known sentinel produced by timeout(1).
	TimeoutExitCode = 124

	// ExtraFilesEnv carries the read-only bundle path for the direct backend,
	// which has no mount namespace to place it in.
	ExtraFilesEnv = "ARLO_SKILL_DIR"

	// Container mount points used by the isolated backend.
	WorkspaceMount  = "/workspace"
	ExtraFilesMount = "/skill"
)

// Config describes resource limits for one command execution. Immutable per
// invocation.
type Config struct {
	Image          string `json:"image,omitempty"`
	MemoryLimit    string `json:"memory_limit,omitempty"`
	CPULimit       string `json:"cpu_limit,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	NetworkEnabled bool   `json:"network_enabled,omitempty"`
}

// WithDefaults fills absent fields with the package defaults.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Image) == "" {
		c.Image = DefaultImage
	}
	if strings.TrimSpace(c.MemoryLimit) == "" {
		c.MemoryLimit = DefaultMemoryLimit
	}
	if strings.TrimSpace(c.CPULimit) == "" {
		c.CPULimit = DefaultCPULimit
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return c
}

// ExecResult is the outcome of one sandboxed command.
type ExecResult struct {
	Success  bool   `json:"success"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out"`
}

// Summary renders the result for conversation feedback.
func (r ExecResult) Summary() string {
	var b strings.Builder
	if r.TimedOut {
		b.WriteString("command timed out\n")
	}
	if out := strings.TrimSpace(r.Stdout); out != "" {
		b.WriteString(out)
		b.WriteString("\n")
	}
	if errOut := strings.TrimSpace(r.Stderr); errOut != "" {
		b.WriteString("stderr: ")
		b.WriteString(errOut)
		b.WriteString("\n")
	}
	if !r.Success {
		fmt.Fprintf(&b, "exit code: %d\n", r.ExitCode)
	}
	if b.Len() == 0 {
		b.WriteString("(no output)")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Backend executes a shell command against a working directory under
// resource limits. Two interchangeable implementations exist: the direct
// host process and the isolated container.
type Backend interface {
	// Name identifies the backend in logs and metrics ("direct", "docker").
	Name() string

	// Available reports whether the backend can run on this host.
	Available() bool

	// Execute runs command with the workspace mounted (or set) as the
	// working directory.
	Execute(ctx context.Context, command, workspaceDir string, cfg Config) (ExecResult, error)

	// ExecuteWithFiles additionally exposes a read-only code bundle
	// alongside the read-write workspace.
	ExecuteWithFiles(ctx context.Context, command, workspaceDir, extraFilesDir string, cfg Config) (ExecResult, error)
}
