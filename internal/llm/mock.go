package llm

import (
	"context"
	"fmt"
	"sync"

	"arlo/internal/agent/ports"
)

// ScriptedClient replays a fixed sequence of responses. Tests use it to drive
// the classifier, planner, and execution loop deterministically.
type ScriptedClient struct {
	mu        sync.Mutex
	model     string
	responses []ScriptedResponse
	next      int

	// Requests records every completion request received, in order.
	Requests []ports.CompletionRequest
}

// ScriptedResponse is one scripted turn.
type ScriptedResponse struct {
	Content string
	Err     error
}

// NewScriptedClient builds a client that returns the given responses in order.
// When the script runs out it keeps returning the last entry.
func NewScriptedClient(responses ...ScriptedResponse) *ScriptedClient {
	return &ScriptedClient{model: "scripted", responses: responses}
}

// Script appends responses to the sequence.
func (c *ScriptedClient) Script(content string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, ScriptedResponse{Content: content})
	return c
}

// ScriptError appends a failing turn.
func (c *ScriptedClient) ScriptError(err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, ScriptedResponse{Err: err})
	return c
}

func (c *ScriptedClient) Model() string { return c.model }

func (c *ScriptedClient) take(req ports.CompletionRequest) (ScriptedResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests = append(c.Requests, req)
	if len(c.responses) == 0 {
		return ScriptedResponse{}, fmt.Errorf("scripted client has no responses")
	}
	resp := c.responses[min(c.next, len(c.responses)-1)]
	c.next++
	return resp, nil
}

func (c *ScriptedClient) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.take(req)
	if err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &ports.CompletionResponse{
		Content:    resp.Content,
		StopReason: "stop",
		Usage:      ports.TokenUsage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}, nil
}

func (c *ScriptedClient) Stream(ctx context.Context, req ports.CompletionRequest) (<-chan ports.StreamDelta, error) {
	resp, err := c.take(req)
	if err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	out := make(chan ports.StreamDelta, 8)
	go func() {
		defer close(out)
		// Stream in small chunks so token sinks observe multiple deltas.
		const chunkSize = 16
		content := resp.Content
		for len(content) > 0 {
			n := min(chunkSize, len(content))
			select {
			case out <- ports.StreamDelta{Content: content[:n]}:
			case <-ctx.Done():
				return
			}
			content = content[n:]
		}
		out <- ports.StreamDelta{Done: true}
	}()
	return out, nil
}
