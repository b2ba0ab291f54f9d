package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. Values come from defaults,
// then ~/.arlo/config.yaml, then ARLO_* environment variables, each
// layer overriding the previous one.
type Config struct {
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Agent   AgentConfig   `yaml:"agent" mapstructure:"agent"`
	Sandbox SandboxConfig `yaml:"sandbox" mapstructure:"sandbox"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

type LLMConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"`
	Model          string `yaml:"model" mapstructure:"model"`
	APIKey         string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type AgentConfig struct {
	// ExecutionMode is sandbox, direct or flexible.
	ExecutionMode string `yaml:"execution_mode" mapstructure:"execution_mode"`
	StepBudget    int    `yaml:"step_budget" mapstructure:"step_budget"`
	HistoryTokens int    `yaml:"history_tokens" mapstructure:"history_tokens"`
	Workspace     string `yaml:"workspace" mapstructure:"workspace"`
	SkillsDir     string `yaml:"skills_dir" mapstructure:"skills_dir"`
	// AutoApprove short-circuits every permission request to allow.
	AutoApprove bool   `yaml:"auto_approve" mapstructure:"auto_approve"`
	JobsDir     string `yaml:"jobs_dir" mapstructure:"jobs_dir"`
}

type SandboxConfig struct {
	Image          string `yaml:"image" mapstructure:"image"`
	MemoryLimit    string `yaml:"memory_limit" mapstructure:"memory_limit"`
	CPULimit       string `yaml:"cpu_limit" mapstructure:"cpu_limit"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	NetworkEnabled bool   `yaml:"network_enabled" mapstructure:"network_enabled"`
}

type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".arlo/config.yaml"
	}
	return filepath.Join(home, ".arlo", "config.yaml")
}

// Load reads configuration from path (or the default location when
// empty). A missing file is not an error: defaults plus environment
// variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ARLO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout_seconds", 120)

	v.SetDefault("agent.execution_mode", "flexible")
	v.SetDefault("agent.step_budget", 10)
	v.SetDefault("agent.history_tokens", 12000)
	v.SetDefault("agent.workspace", ".")
	v.SetDefault("agent.skills_dir", "")
	v.SetDefault("agent.auto_approve", false)
	v.SetDefault("agent.jobs_dir", "")

	v.SetDefault("sandbox.image", "arlo-sandbox:latest")
	v.SetDefault("sandbox.memory_limit", "256m")
	v.SetDefault("sandbox.cpu_limit", "0.5")
	v.SetDefault("sandbox.timeout_seconds", 60)
	v.SetDefault("sandbox.network_enabled", false)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8420)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate rejects values the runtime cannot work with.
func (c *Config) Validate() error {
	switch c.Agent.ExecutionMode {
	case "sandbox", "direct", "flexible", "":
	default:
		return fmt.Errorf("invalid agent.execution_mode %q", c.Agent.ExecutionMode)
	}
	if c.Agent.StepBudget < 0 {
		return fmt.Errorf("agent.step_budget must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}

// Save writes the config as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
