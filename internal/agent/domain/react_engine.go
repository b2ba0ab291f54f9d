package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"arlo/internal/agent/ports"
	agenterrors "arlo/internal/errors"
	"arlo/internal/logging"
	"arlo/internal/observability"
)

const (
	// DefaultStepBudget bounds tool calls per task run.
	DefaultStepBudget = 10

	maxToolResultChars = 8000
)

// Engine is the iterative tool-calling loop: prompt the model, execute
// the tool call it emits, feed the result back, repeat until the model
// answers in plain text or the step budget runs out.
type Engine struct {
	llm        ports.LLMClient
	registry   ports.ToolRegistry
	logger     logging.Logger
	metrics    *observability.Metrics
	clock      ports.Clock
	listeners  []ports.EventListener
	stepBudget int
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithStepBudget overrides the per-task tool call limit.
func WithStepBudget(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.stepBudget = n
		}
	}
}

// WithEngineMetrics records step counters and durations.
func WithEngineMetrics(m *observability.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithEngineClock replaces the time source, used by tests.
func WithEngineClock(c ports.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithEngineListener subscribes an event listener.
func WithEngineListener(l ports.EventListener) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

// NewEngine creates an execution engine.
func NewEngine(llm ports.LLMClient, registry ports.ToolRegistry, logger logging.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		llm:        llm,
		registry:   registry,
		logger:     logging.OrNop(logger),
		metrics:    observability.NopMetrics(),
		clock:      ports.SystemClock{},
		stepBudget: DefaultStepBudget,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// toolFrame is the wire shape the model emits to request a tool call.
type toolFrame struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Run executes one task against the shared history and returns the
// model's final plain-text answer. Steps are appended to job as they
// happen so observers see partial progress.
func (e *Engine) Run(ctx context.Context, job *ports.Job, task string, history *History) (string, error) {
	ctx, span := observability.Tracer().Start(ctx, "engine.run",
		trace.WithAttributes(attribute.String("job_id", job.ID)))
	defer span.End()

	history.Append("user", task)

	for step := 1; step <= e.stepBudget; step++ {
		resp, err := e.llm.Complete(ctx, ports.CompletionRequest{
			Messages: e.buildMessages(history),
		})
		if err != nil {
			e.emit(NewErrorEvent(job.SessionID, job.ID, err.Error(), e.clock.Now()))
			return "", agenterrors.Wrap(agenterrors.KindLLM, err)
		}
		reply := strings.TrimSpace(resp.Content)
		e.emit(NewThinkingEvent(job.SessionID, job.ID, reply, e.clock.Now()))

		frame, ok := parseToolFrame(reply)
		if !ok {
			// Plain text is the final answer.
			history.Append("assistant", reply)
			return reply, nil
		}

		history.Append("assistant", reply)
		feedback := e.executeStep(ctx, job, frame)
		history.Append("user", feedback)
	}

	err := agenterrors.New(agenterrors.KindTool, "step budget of %d exhausted", e.stepBudget)
	e.emit(NewErrorEvent(job.SessionID, job.ID, err.Error(), e.clock.Now()))
	return "", err
}

// executeStep runs one tool call and returns the synthetic turn to
// feed back into the conversation. Tool failures, including permission
// denials, come back as feedback text so the model can react; only the
// surrounding Run loop treats errors as fatal.
func (e *Engine) executeStep(ctx context.Context, job *ports.Job, frame toolFrame) string {
	now := e.clock.Now()

	tool, err := e.registry.Get(frame.Tool)
	if err != nil {
		e.logger.Warn("model requested unknown tool %q", frame.Tool)
		return fmt.Sprintf("Tool %s does not exist. Available tools: %s", frame.Tool, e.toolNames())
	}

	step := &ports.Step{
		ID:               uuid.NewString(),
		ToolName:         frame.Tool,
		ToolArgs:         frame.Args,
		Status:           ports.StepExecuting,
		RequiresApproval: tool.Metadata().RequiresApproval,
		CreatedAt:        now,
	}
	job.AppendStep(step)
	e.emit(NewStepStartedEvent(job.SessionID, job.ID, step.ID, frame.Tool, frame.Args, now))

	ctx, span := observability.Tracer().Start(ctx, "engine.step",
		trace.WithAttributes(attribute.String("tool", frame.Tool)))
	defer span.End()

	started := time.Now()
	result, err := tool.Execute(ctx, ports.ToolCall{
		ID:        step.ID,
		Name:      frame.Tool,
		Arguments: frame.Args,
		SessionID: job.SessionID,
		JobID:     job.ID,
	})
	e.metrics.StepDuration.Observe(time.Since(started).Seconds())

	var feedback string
	switch {
	case err != nil:
		step.Status = ports.StepFailed
		step.Result = err.Error()
		feedback = fmt.Sprintf("Tool %s failed: %v", frame.Tool, err)
	case result.Failed():
		step.Status = ports.StepFailed
		step.Result = result.Error
		feedback = fmt.Sprintf("Tool %s failed: %s", frame.Tool, result.Error)
		if result.Content != "" {
			feedback += "\n" + result.Content
		}
	default:
		step.Status = ports.StepCompleted
		step.Result = result.Content
		feedback = fmt.Sprintf("Tool %s returned:\n%s", frame.Tool, result.Content)
	}

	e.metrics.StepsExecuted.WithLabelValues(frame.Tool, string(step.Status)).Inc()
	e.emit(NewStepCompletedEvent(job.SessionID, job.ID, step.ID, frame.Tool, step.Status, step.Result, e.clock.Now()))

	return truncateMiddle(feedback, maxToolResultChars/tokenEstimateDivisor)
}

func (e *Engine) buildMessages(history *History) []ports.Message {
	messages := make([]ports.Message, 0, history.Len()+1)
	messages = append(messages, ports.Message{Role: "system", Content: e.systemPrompt()})
	return append(messages, history.Messages()...)
}

func (e *Engine) systemPrompt() string {
	var b strings.Builder
	b.WriteString(`You are an autonomous agent that completes tasks by calling tools.

To call a tool, reply with ONLY a JSON object, nothing else:
{"tool": "<name>", "args": {...}}

When the task is done, reply with the final answer in plain text.

Available tools:
`)
	for _, def := range e.registry.List() {
		fmt.Fprintf(&b, "- %s: %s\n", def.Name, def.Description)
		if len(def.Parameters.Properties) > 0 {
			params, err := json.Marshal(def.Parameters)
			if err == nil {
				fmt.Fprintf(&b, "  parameters: %s\n", params)
			}
		}
	}
	return b.String()
}

func (e *Engine) toolNames() string {
	defs := e.registry.List()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
	}
	return strings.Join(names, ", ")
}

func (e *Engine) emit(event ports.AgentEvent) {
	for _, l := range e.listeners {
		l.OnEvent(event)
	}
}

// parseToolFrame reports whether reply is, or embeds, a tool call
// frame. A JSON object without a non-empty "tool" field is not a
// frame, so ordinary prose containing braces stays a final answer.
func parseToolFrame(reply string) (toolFrame, bool) {
	extracted, err := extractJSONObject(reply)
	if err != nil {
		return toolFrame{}, false
	}
	var frame toolFrame
	if err := json.Unmarshal([]byte(extracted), &frame); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(extracted)
		if repairErr != nil {
			return toolFrame{}, false
		}
		if err := json.Unmarshal([]byte(repaired), &frame); err != nil {
			return toolFrame{}, false
		}
	}
	if strings.TrimSpace(frame.Tool) == "" {
		return toolFrame{}, false
	}
	if frame.Args == nil {
		frame.Args = map[string]any{}
	}
	return frame, true
}
