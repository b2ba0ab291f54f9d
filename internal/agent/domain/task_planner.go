package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"

	"arlo/internal/agent/ports"
	agenterrors "arlo/internal/errors"
	"arlo/internal/logging"
	"arlo/internal/observability"
)

const (
	planMaxAttempts   = 3
	planRetryBase     = time.Second
	planErrorExcerpt  = 200
	planPromptPreface = `You are a planning assistant. Decompose the objective into a short
ordered list of concrete tasks. Respond with ONLY a JSON object of this
exact shape, no prose before or after:

{"tasks": [{"description": "first task"}, {"description": "second task"}]}

Keep the list minimal: every task must be necessary.`
)

// Planner turns an objective into an ordered Plan via the completion
// provider, streaming tokens to a caller-supplied sink along the way.
type Planner struct {
	llm     ports.LLMClient
	logger  logging.Logger
	sleeper ports.Sleeper
	metrics *observability.Metrics
}

// PlannerOption customizes a Planner.
type PlannerOption func(*Planner)

// WithPlannerSleeper replaces the retry wait, used by tests.
func WithPlannerSleeper(s ports.Sleeper) PlannerOption {
	return func(p *Planner) { p.sleeper = s }
}

// WithPlannerMetrics records retry counts.
func WithPlannerMetrics(m *observability.Metrics) PlannerOption {
	return func(p *Planner) { p.metrics = m }
}

// NewPlanner creates a planner backed by llm.
func NewPlanner(llm ports.LLMClient, logger logging.Logger, opts ...PlannerOption) *Planner {
	p := &Planner{
		llm:     llm,
		logger:  logging.OrNop(logger),
		sleeper: ports.SystemSleeper{},
		metrics: observability.NopMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreatePlan generates a plan for objective. Prior conversation turns
// give the model context; sink receives streamed tokens and retry
// notices and may be nil. Up to three attempts are made with
// exponential backoff; the terminal failure carries an excerpt of the
// last raw response for diagnostics.
func (p *Planner) CreatePlan(ctx context.Context, objective string, prior []ports.Message, sink ports.TokenSink) (*ports.Plan, error) {
	emit := sink
	if emit == nil {
		emit = func(string) {}
	}

	messages := make([]ports.Message, 0, len(prior)+2)
	messages = append(messages, ports.Message{Role: "system", Content: planPromptPreface})
	messages = append(messages, prior...)
	messages = append(messages, ports.Message{Role: "user", Content: "Objective: " + objective})

	var lastRaw string
	plan, err := agenterrors.RetryWithResult(ctx, agenterrors.RetryConfig{
		MaxAttempts: planMaxAttempts,
		BaseDelay:   planRetryBase,
		Sleep:       p.sleeper.Sleep,
		OnRetry: func(attempt int, err error) {
			p.metrics.LLMRetries.Inc()
			p.logger.Warn("plan attempt failed: %v", err)
			emit(fmt.Sprintf("\n[plan attempt %d of %d failed, retrying]\n", attempt-1, planMaxAttempts))
		},
	}, func(ctx context.Context) (*ports.Plan, error) {
		raw, err := p.streamCompletion(ctx, messages, emit)
		if raw != "" {
			lastRaw = raw
		}
		if err != nil {
			return nil, err
		}
		return parsePlan(raw)
	})
	if err != nil {
		return nil, fmt.Errorf("%w (last response: %s)", err, excerpt(lastRaw, planErrorExcerpt))
	}
	return plan, nil
}

func (p *Planner) streamCompletion(ctx context.Context, messages []ports.Message, emit ports.TokenSink) (string, error) {
	deltas, err := p.llm.Stream(ctx, ports.CompletionRequest{Messages: messages})
	if err != nil {
		return "", agenterrors.Wrap(agenterrors.KindPlanning, err)
	}

	var b strings.Builder
	for delta := range deltas {
		if delta.Err != nil {
			return b.String(), agenterrors.Wrap(agenterrors.KindPlanning, delta.Err)
		}
		if delta.Content != "" {
			b.WriteString(delta.Content)
			emit(delta.Content)
		}
		if delta.Done {
			break
		}
	}
	if b.Len() == 0 {
		return "", agenterrors.New(agenterrors.KindPlanning, "empty plan response")
	}
	return b.String(), nil
}

type planPayload struct {
	Tasks []struct {
		Description string `json:"description"`
	} `json:"tasks"`
}

// parsePlan extracts and decodes the plan object from a raw model
// response, repairing slightly malformed JSON as a second chance.
func parsePlan(raw string) (*ports.Plan, error) {
	extracted, err := extractJSONObject(raw)
	if err != nil {
		return nil, agenterrors.Wrap(agenterrors.KindPlanning, err)
	}

	var payload planPayload
	if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(extracted)
		if repairErr != nil {
			return nil, agenterrors.Wrap(agenterrors.KindPlanning, err)
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindPlanning, err)
		}
	}

	plan := &ports.Plan{}
	for _, task := range payload.Tasks {
		desc := strings.TrimSpace(task.Description)
		if desc == "" {
			continue
		}
		plan.Tasks = append(plan.Tasks, &ports.Task{Description: desc, Status: ports.TaskPending})
	}
	if len(plan.Tasks) == 0 {
		return nil, agenterrors.New(agenterrors.KindPlanning, "plan has no tasks")
	}
	return plan, nil
}

// extractJSONObject returns the substring from the first '{' to the
// last '}' inclusive. Fences and narration around the object are
// discarded; input that is already a bare object passes through, so
// the operation is idempotent.
func extractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return raw[start : end+1], nil
}

// excerpt bounds s to max bytes, backing the cut up to a rune
// boundary so the result stays valid UTF-8.
func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
