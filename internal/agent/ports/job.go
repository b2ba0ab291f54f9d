package ports

import (
	"context"
	"time"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// StepStatus is the lifecycle state of a Step.
type StepStatus string

const (
	StepExecuting StepStatus = "executing"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Job is one end-to-end response to a user message.
type Job struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Status    JobStatus `json:"status"`
	Query     string    `json:"query"`
	Steps     []*Step   `json:"steps"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendStep records a new step. Steps are append-only and ordered by
// creation.
func (j *Job) AppendStep(step *Step) {
	j.Steps = append(j.Steps, step)
}

// Step is one tool invocation and its outcome within a Job.
type Step struct {
	ID               string         `json:"id"`
	ToolName         string         `json:"tool_name"`
	ToolArgs         map[string]any `json:"tool_args"`
	Status           StepStatus     `json:"status"`
	Result           string         `json:"result,omitempty"`
	RequiresApproval bool           `json:"requires_approval"`
	CreatedAt        time.Time      `json:"created_at"`
}

// TaskStatus is the lifecycle state of a planned Task. It only moves
// forward: pending -> running -> completed.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
)

// Task is one sub-request of a Plan.
type Task struct {
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
}

// Plan is an ordered decomposition of a complex objective.
type Plan struct {
	Tasks []*Task `json:"tasks"`
}

// JobStore is the simple keyed persistence collaborator for job history.
type JobStore interface {
	Save(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, sessionID string) ([]*Job, error)
}
