package ports

import "context"

// LLMClient represents any completion provider. Implementations live in
// internal/llm; the agent core only depends on this contract.
type LLMClient interface {
	// Complete sends messages and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Stream sends messages and returns a channel of deltas. The channel is
	// closed when the completion finishes or the context is cancelled.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamDelta, error)

	// Model returns the model identifier.
	Model() string
}

// CompletionRequest contains all parameters for an LLM completion.
type CompletionRequest struct {
	Messages      []Message      `json:"messages"`
	Temperature   float64        `json:"temperature,omitempty"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	TopP          float64        `json:"top_p,omitempty"`
	StopSequences []string       `json:"stop,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// CompletionResponse is the LLM's full response.
type CompletionResponse struct {
	Content    string     `json:"content"`
	StopReason string     `json:"stop_reason"`
	Usage      TokenUsage `json:"usage"`
}

// StreamDelta is a single streamed chunk.
type StreamDelta struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
	Err     error  `json:"-"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message is one conversation turn.
type Message struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TokenSink receives streamed tokens and human-readable progress notices.
// Planner and direct-chat paths forward model output through it.
type TokenSink func(token string)
