package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"arlo/internal/logging"
)

// tmpfsSpec bounds the only writable path inside the read-only root.
const tmpfsSpec = "/tmp:rw,size=64m"

// dockerCLI is the seam between the backend and the container runtime binary,
// injectable so tests can capture the constructed invocation.
type dockerCLI interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, args ...string) (stdout, stderr string, exitCode int, err error)
}

// DockerBackend executes commands in a remove-on-exit container with explicit
// resource limits, a read-only root filesystem, and network disabled unless
// the config enables it.
type DockerBackend struct {
	cli    dockerCLI
	logger logging.Logger

	availableOnce sync.Once
	available     bool
}

// NewDockerBackend constructs the isolated backend using the docker binary.
func NewDockerBackend(logger logging.Logger) *DockerBackend {
	return &DockerBackend{cli: execDockerCLI{}, logger: logging.OrNop(logger)}
}

// newDockerBackendWithCLI is the test constructor.
func newDockerBackendWithCLI(cli dockerCLI, logger logging.Logger) *DockerBackend {
	return &DockerBackend{cli: cli, logger: logging.OrNop(logger)}
}

func (b *DockerBackend) Name() string { return "docker" }

// Available reports whether the container runtime binary is present. The
// probe result is cached for the process lifetime.
func (b *DockerBackend) Available() bool {
	b.availableOnce.Do(func() {
		_, err := b.cli.LookPath("docker")
		b.available = err == nil
	})
	return b.available
}

func (b *DockerBackend) Execute(ctx context.Context, command, workspaceDir string, cfg Config) (ExecResult, error) {
	return b.run(ctx, command, workspaceDir, "", cfg)
}

func (b *DockerBackend) ExecuteWithFiles(ctx context.Context, command, workspaceDir, extraFilesDir string, cfg Config) (ExecResult, error) {
	return b.run(ctx, command, workspaceDir, extraFilesDir, cfg)
}

func (b *DockerBackend) run(ctx context.Context, command, workspaceDir, extraFilesDir string, cfg Config) (ExecResult, error) {
	if !b.Available() {
		return ExecResult{}, fmt.Errorf("sandbox: docker runtime not available")
	}
	cfg = cfg.WithDefaults()
	if command == "" {
		return ExecResult{}, fmt.Errorf("sandbox: command is empty")
	}
	if workspaceDir == "" {
		return ExecResult{}, fmt.Errorf("sandbox: workspace directory is required")
	}

	args := buildRunArgs(command, workspaceDir, extraFilesDir, cfg)

	// Give the container a grace period beyond the in-container timeout so
	// the 124 sentinel, not the outer kill, reports the overrun.
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds+15)*time.Second)
	defer cancel()

	b.logger.Debug("docker exec: docker %v", args)
	stdout, stderr, exitCode, err := b.cli.Run(runCtx, args...)
	if err != nil && exitCode < 0 {
		return ExecResult{Stdout: stdout, Stderr: stderr}, fmt.Errorf("sandbox: docker run failed: %w", err)
	}

	result := ExecResult{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: exitCode,
		Success:  exitCode == 0,
		TimedOut: exitCode == TimeoutExitCode,
	}
	return result, nil
}

// buildRunArgs assembles the container invocation: remove-on-exit, memory and
// cpu limits, no network unless enabled, read-only root with a bounded /tmp,
// workspace mounted read-write, extra files read-only, command wrapped in an
// in-container timeout.
func buildRunArgs(command, workspaceDir, extraFilesDir string, cfg Config) []string {
	args := []string{
		"run", "--rm",
		"--memory=" + cfg.MemoryLimit,
		"--cpus=" + cfg.CPULimit,
	}
	if !cfg.NetworkEnabled {
		args = append(args, "--network=none")
	}
	args = append(args,
		"--read-only",
		"--tmpfs", tmpfsSpec,
		"-v", workspaceDir+":"+WorkspaceMount+":rw",
	)
	if extraFilesDir != "" {
		args = append(args, "-v", extraFilesDir+":"+ExtraFilesMount+":ro")
	}
	args = append(args,
		"-w", WorkspaceMount,
		cfg.Image,
		"sh", "-c", fmt.Sprintf("timeout %d %s", cfg.TimeoutSeconds, command),
	)
	return args
}

type execDockerCLI struct{}

func (execDockerCLI) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (execDockerCLI) Run(ctx context.Context, args ...string) (string, string, int, error) {
	if len(args) == 0 {
		return "", "", -1, errors.New("docker command requires arguments")
	}
	cmd := exec.CommandContext(ctx, "docker", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		return stdout.String(), stderr.String(), -1, err
	}
	return stdout.String(), stderr.String(), 0, nil
}
