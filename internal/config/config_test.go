package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.Agent.StepBudget != 10 {
		t.Errorf("step budget = %d", cfg.Agent.StepBudget)
	}
	if cfg.Agent.ExecutionMode != "flexible" {
		t.Errorf("execution mode = %q", cfg.Agent.ExecutionMode)
	}
	if cfg.Sandbox.MemoryLimit != "256m" || cfg.Sandbox.CPULimit != "0.5" {
		t.Errorf("sandbox limits = %q/%q", cfg.Sandbox.MemoryLimit, cfg.Sandbox.CPULimit)
	}
	if cfg.Server.Port != 8420 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `llm:
  provider: ollama
  model: llama3
agent:
  execution_mode: sandbox
  step_budget: 5
server:
  port: 9000
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.Model != "llama3" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Agent.ExecutionMode != "sandbox" || cfg.Agent.StepBudget != 5 {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	// Unset values keep defaults.
	if cfg.Sandbox.Image != "arlo-sandbox:latest" {
		t.Errorf("image = %q", cfg.Sandbox.Image)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ARLO_LLM_MODEL", "gpt-4o")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("model = %q, want env override", cfg.LLM.Model)
	}
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("agent:\n  execution_mode: hybrid\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("invalid execution mode should fail")
	}

	path2 := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path2, []byte("server:\n  port: 70000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path2); err == nil {
		t.Fatal("invalid port should fail")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.LLM.Provider = "deepseek"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.LLM.Provider != "deepseek" {
		t.Errorf("provider = %q", loaded.LLM.Provider)
	}
}
