package builtin

import (
	"context"

	"arlo/internal/agent/ports"
)

// think gives the model a scratchpad step. The thought is echoed back
// into the conversation and nothing else happens.
type think struct{}

func NewThink() ports.ToolExecutor { return &think{} }

func (t *think) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	thought, ok := stringArg(call.Arguments, "thought")
	if !ok || thought == "" {
		return failure(call, "missing 'thought' argument"), nil
	}
	return &ports.ToolResult{CallID: call.ID, Content: "Thought recorded."}, nil
}

func (t *think) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "think",
		Description: "Record a reasoning step without taking any action",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"thought": {Type: "string", Description: "The reasoning to record"},
			},
			Required: []string{"thought"},
		},
	}
}

func (t *think) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:     "think",
		Category: "reasoning",
	}
}
