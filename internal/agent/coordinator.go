package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"arlo/internal/agent/domain"
	"arlo/internal/agent/ports"
	"arlo/internal/logging"
)

// Coordinator routes each query to the cheapest path that can handle
// it: simple queries get one streamed chat turn, complex ones go
// through plan-and-execute. It owns Job lifecycle and persistence.
type Coordinator struct {
	llm        ports.LLMClient
	classifier *domain.Classifier
	planner    *domain.Planner
	engine     *domain.Engine
	store      ports.JobStore
	logger     logging.Logger
	clock      ports.Clock
	listeners  []ports.EventListener

	mu       sync.Mutex
	sessions map[string]*domain.History
	budget   int
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithJobStore persists jobs as they progress.
func WithJobStore(store ports.JobStore) CoordinatorOption {
	return func(c *Coordinator) { c.store = store }
}

// WithListener subscribes an event listener to job progress.
func WithListener(l ports.EventListener) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.listeners = append(c.listeners, l)
		}
	}
}

// WithClock replaces the time source, used by tests.
func WithClock(clock ports.Clock) CoordinatorOption {
	return func(c *Coordinator) { c.clock = clock }
}

// WithHistoryBudget sets the per-session conversation token budget.
func WithHistoryBudget(tokens int) CoordinatorOption {
	return func(c *Coordinator) { c.budget = tokens }
}

// NewCoordinator wires the classifier, planner and engine around one
// completion client.
func NewCoordinator(llm ports.LLMClient, classifier *domain.Classifier, planner *domain.Planner, engine *domain.Engine, logger logging.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		llm:        llm,
		classifier: classifier,
		planner:    planner,
		engine:     engine,
		logger:     logging.OrNop(logger),
		clock:      ports.SystemClock{},
		sessions:   map[string]*domain.History{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProcessQuery handles one user message end to end and returns the
// finished Job. The returned Job is also returned on failure, carrying
// the failed status and error message.
func (c *Coordinator) ProcessQuery(ctx context.Context, sessionID, query string, sink ports.TokenSink) (*ports.Job, error) {
	job := &ports.Job{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Status:    ports.JobRunning,
		Query:     query,
		CreatedAt: c.clock.Now(),
	}
	c.persist(ctx, job)

	history := c.session(sessionID)

	var err error
	switch c.classifier.Classify(ctx, query) {
	case domain.Simple:
		err = c.directChat(ctx, job, history, sink)
	default:
		err = c.planAndExecute(ctx, job, history, sink)
	}

	if err != nil {
		job.Status = ports.JobFailed
		job.Error = err.Error()
		c.logger.Error("job %s failed: %v", job.ID, err)
	} else {
		job.Status = ports.JobCompleted
	}
	c.persist(ctx, job)
	c.emit(domain.NewJobCompletedEvent(sessionID, job.ID, job.Status, job.Result, c.clock.Now()))

	if err != nil {
		return job, err
	}
	return job, nil
}

// directChat answers with a single streamed completion turn.
func (c *Coordinator) directChat(ctx context.Context, job *ports.Job, history *domain.History, sink ports.TokenSink) error {
	history.Append("user", job.Query)

	deltas, err := c.llm.Stream(ctx, ports.CompletionRequest{Messages: history.Messages()})
	if err != nil {
		return fmt.Errorf("direct chat: %w", err)
	}

	var b strings.Builder
	for delta := range deltas {
		if delta.Err != nil {
			return fmt.Errorf("direct chat stream: %w", delta.Err)
		}
		if delta.Content != "" {
			b.WriteString(delta.Content)
			if sink != nil {
				sink(delta.Content)
			}
			c.emit(domain.NewTokenEvent(job.SessionID, job.ID, delta.Content, c.clock.Now()))
		}
		if delta.Done {
			break
		}
	}

	answer := strings.TrimSpace(b.String())
	if answer == "" {
		return fmt.Errorf("direct chat: empty response")
	}
	history.Append("assistant", answer)
	job.Result = answer
	return nil
}

// planAndExecute decomposes the query and runs each task through the
// engine in order. Task statuses only move forward; on failure the
// completed tasks keep their status.
func (c *Coordinator) planAndExecute(ctx context.Context, job *ports.Job, history *domain.History, sink ports.TokenSink) error {
	plan, err := c.planner.CreatePlan(ctx, job.Query, history.Messages(), sink)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}
	c.emit(domain.NewPlanCreatedEvent(job.SessionID, job.ID, plan, c.clock.Now()))
	c.logger.Info("job %s planned with %d tasks", job.ID, len(plan.Tasks))

	var lastResult string
	for i, task := range plan.Tasks {
		task.Status = ports.TaskRunning
		c.emit(domain.NewTaskStartEvent(job.SessionID, job.ID, i, task.Description, c.clock.Now()))

		result, err := c.engine.Run(ctx, job, task.Description, history)
		if err != nil {
			return fmt.Errorf("task %d (%s): %w", i+1, task.Description, err)
		}
		task.Status = ports.TaskCompleted
		lastResult = result
		c.persist(ctx, job)
	}

	job.Result = lastResult
	return nil
}

func (c *Coordinator) session(sessionID string) *domain.History {
	c.mu.Lock()
	defer c.mu.Unlock()
	history, ok := c.sessions[sessionID]
	if !ok {
		history = domain.NewHistory(c.budget)
		c.sessions[sessionID] = history
	}
	return history
}

func (c *Coordinator) persist(ctx context.Context, job *ports.Job) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, job); err != nil {
		c.logger.Warn("persist job %s: %v", job.ID, err)
	}
}

func (c *Coordinator) emit(event ports.AgentEvent) {
	for _, l := range c.listeners {
		l.OnEvent(event)
	}
}
