package ports

import "context"

// ToolExecutor executes a single tool call.
type ToolExecutor interface {
	// Execute runs the tool with the given arguments.
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)

	// Definition returns the tool's schema for the LLM.
	Definition() ToolDefinition

	// Metadata returns tool metadata (approval and caching hints).
	Metadata() ToolMetadata
}

// ToolRegistry manages available tools by name.
type ToolRegistry interface {
	Register(tool ToolExecutor) error
	Get(name string) (ToolExecutor, error)
	List() []ToolDefinition
	Unregister(name string) error
}

// ToolCall is a request to execute a tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	SessionID string         `json:"session_id,omitempty"`
	JobID     string         `json:"job_id,omitempty"`
}

// ToolResult is the execution outcome. Failures are carried in Error and fed
// back into the conversation rather than aborting the run.
type ToolResult struct {
	CallID   string         `json:"call_id"`
	Content  string         `json:"content"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Failed reports whether the tool call produced an error.
func (r *ToolResult) Failed() bool { return r != nil && r.Error != "" }

// ToolDefinition describes a tool for the LLM.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ToolMetadata carries execution hints consumed by the loop and decorators.
type ToolMetadata struct {
	Name             string         `json:"name"`
	Category         string         `json:"category"`
	RequiresApproval bool           `json:"requires_approval"`
	Permission       PermissionType `json:"permission"`
	Cacheable        bool           `json:"cacheable"`
	// NeedsSummarization hints that results tend to be large and should be
	// truncated aggressively before re-entering the conversation.
	NeedsSummarization bool `json:"needs_summarization"`
}

// ParameterSchema defines tool parameters (JSON Schema subset).
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Enum        []any  `json:"enum,omitempty"`
}
