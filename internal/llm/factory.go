package llm

import (
	"fmt"
	"strings"

	"arlo/internal/agent/ports"
)

// NewClient builds a client for the configured provider. All currently
// supported providers speak the OpenAI-compatible chat completions API;
// the provider name selects the default base URL.
func NewClient(config Config) (ports.LLMClient, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))
	switch provider {
	case "", "openai":
		return NewOpenAIClient(config)
	case "openrouter":
		if config.BaseURL == "" {
			config.BaseURL = "https://openrouter.ai/api/v1"
		}
		return NewOpenAIClient(config)
	case "deepseek":
		if config.BaseURL == "" {
			config.BaseURL = "https://api.deepseek.com/v1"
		}
		return NewOpenAIClient(config)
	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434/v1"
		}
		if config.APIKey == "" {
			config.APIKey = "ollama"
		}
		return NewOpenAIClient(config)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", config.Provider)
	}
}
