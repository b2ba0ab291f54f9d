package domain

import (
	"time"

	"arlo/internal/agent/ports"
)

// Re-export the event contracts defined at the port layer.
type AgentEvent = ports.AgentEvent
type EventListener = ports.EventListener

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	timestamp time.Time
	sessionID string
	jobID     string
}

func (e *BaseEvent) Timestamp() time.Time { return e.timestamp }
func (e *BaseEvent) GetSessionID() string { return e.sessionID }
func (e *BaseEvent) GetJobID() string     { return e.jobID }

func newBaseEvent(sessionID, jobID string, ts time.Time) BaseEvent {
	return BaseEvent{timestamp: ts, sessionID: sessionID, jobID: jobID}
}

// ThinkingEvent carries a model reply before it is interpreted.
type ThinkingEvent struct {
	BaseEvent
	Content string
}

func (e *ThinkingEvent) EventType() string { return "thinking" }

func NewThinkingEvent(sessionID, jobID, content string, ts time.Time) *ThinkingEvent {
	return &ThinkingEvent{BaseEvent: newBaseEvent(sessionID, jobID, ts), Content: content}
}

// TokenEvent is one streamed token from the completion provider.
type TokenEvent struct {
	BaseEvent
	Token string
}

func (e *TokenEvent) EventType() string { return "token" }

func NewTokenEvent(sessionID, jobID, token string, ts time.Time) *TokenEvent {
	return &TokenEvent{BaseEvent: newBaseEvent(sessionID, jobID, ts), Token: token}
}

// PlanCreatedEvent is emitted when the planner produces a plan.
type PlanCreatedEvent struct {
	BaseEvent
	Plan *ports.Plan
}

func (e *PlanCreatedEvent) EventType() string { return "plan_created" }

func NewPlanCreatedEvent(sessionID, jobID string, plan *ports.Plan, ts time.Time) *PlanCreatedEvent {
	return &PlanCreatedEvent{BaseEvent: newBaseEvent(sessionID, jobID, ts), Plan: plan}
}

// TaskStartEvent marks one planned task beginning execution.
type TaskStartEvent struct {
	BaseEvent
	Index       int
	Description string
}

func (e *TaskStartEvent) EventType() string { return "task_start" }

func NewTaskStartEvent(sessionID, jobID string, index int, description string, ts time.Time) *TaskStartEvent {
	return &TaskStartEvent{BaseEvent: newBaseEvent(sessionID, jobID, ts), Index: index, Description: description}
}

// StepStartedEvent marks one tool invocation beginning.
type StepStartedEvent struct {
	BaseEvent
	StepID   string
	ToolName string
	ToolArgs map[string]any
}

func (e *StepStartedEvent) EventType() string { return "step_started" }

func NewStepStartedEvent(sessionID, jobID, stepID, toolName string, args map[string]any, ts time.Time) *StepStartedEvent {
	return &StepStartedEvent{
		BaseEvent: newBaseEvent(sessionID, jobID, ts),
		StepID:    stepID,
		ToolName:  toolName,
		ToolArgs:  args,
	}
}

// StepCompletedEvent carries a tool invocation's outcome.
type StepCompletedEvent struct {
	BaseEvent
	StepID   string
	ToolName string
	Status   ports.StepStatus
	Result   string
}

func (e *StepCompletedEvent) EventType() string { return "step_completed" }

func NewStepCompletedEvent(sessionID, jobID, stepID, toolName string, status ports.StepStatus, result string, ts time.Time) *StepCompletedEvent {
	return &StepCompletedEvent{
		BaseEvent: newBaseEvent(sessionID, jobID, ts),
		StepID:    stepID,
		ToolName:  toolName,
		Status:    status,
		Result:    result,
	}
}

// ErrorEvent reports a recoverable or fatal problem to observers.
type ErrorEvent struct {
	BaseEvent
	Message string
}

func (e *ErrorEvent) EventType() string { return "error" }

func NewErrorEvent(sessionID, jobID, message string, ts time.Time) *ErrorEvent {
	return &ErrorEvent{BaseEvent: newBaseEvent(sessionID, jobID, ts), Message: message}
}

// JobCompletedEvent is the terminal event for one job.
type JobCompletedEvent struct {
	BaseEvent
	Status ports.JobStatus
	Result string
}

func (e *JobCompletedEvent) EventType() string { return "job_completed" }

func NewJobCompletedEvent(sessionID, jobID string, status ports.JobStatus, result string, ts time.Time) *JobCompletedEvent {
	// Terminal: no further events follow for this job.
	return &JobCompletedEvent{BaseEvent: newBaseEvent(sessionID, jobID, ts), Status: status, Result: result}
}
