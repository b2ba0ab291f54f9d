package domain

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"arlo/internal/llm"
)

// recordingSleeper captures retry waits instead of sleeping.
type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(d time.Duration) { s.waits = append(s.waits, d) }

func TestCreatePlanParsesFirstResponse(t *testing.T) {
	client := llm.NewScriptedClient().Script(`{"tasks": [{"description": "read the config"}, {"description": "apply the change"}]}`)
	p := NewPlanner(client, nil)

	var streamed strings.Builder
	plan, err := p.CreatePlan(context.Background(), "update the config", nil, func(token string) {
		streamed.WriteString(token)
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("tasks = %d", len(plan.Tasks))
	}
	if plan.Tasks[0].Description != "read the config" {
		t.Errorf("task[0] = %q", plan.Tasks[0].Description)
	}
	if plan.Tasks[0].Status != "pending" {
		t.Errorf("status = %q", plan.Tasks[0].Status)
	}
	if !strings.Contains(streamed.String(), "tasks") {
		t.Error("tokens were not streamed to the sink")
	}
}

func TestCreatePlanToleratesFencesAndNarration(t *testing.T) {
	client := llm.NewScriptedClient().Script("Sure, here is the plan:\n```json\n{\"tasks\": [{\"description\": \"do it\"}]}\n```\nDone!")
	p := NewPlanner(client, nil)

	plan, err := p.CreatePlan(context.Background(), "x", nil, nil)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].Description != "do it" {
		t.Errorf("plan = %+v", plan)
	}
}

func TestCreatePlanRepairsMalformedJSON(t *testing.T) {
	// Trailing comma and unquoted key.
	client := llm.NewScriptedClient().Script(`{tasks: [{"description": "one"},]}`)
	p := NewPlanner(client, nil)

	plan, err := p.CreatePlan(context.Background(), "x", nil, nil)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].Description != "one" {
		t.Errorf("plan = %+v", plan)
	}
}

func TestCreatePlanRetriesWithBackoff(t *testing.T) {
	client := llm.NewScriptedClient().
		Script("no json here").
		Script("still nothing").
		Script(`{"tasks": [{"description": "finally"}]}`)
	sleeper := &recordingSleeper{}

	var notices []string
	p := NewPlanner(client, nil, WithPlannerSleeper(sleeper))
	plan, err := p.CreatePlan(context.Background(), "x", nil, func(token string) {
		if strings.Contains(token, "retrying") {
			notices = append(notices, token)
		}
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if len(plan.Tasks) != 1 {
		t.Fatalf("tasks = %d", len(plan.Tasks))
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(sleeper.waits) != len(want) {
		t.Fatalf("waits = %v", sleeper.waits)
	}
	for i, w := range want {
		if sleeper.waits[i] != w {
			t.Errorf("wait[%d] = %v, want %v", i, sleeper.waits[i], w)
		}
	}
	if len(notices) != 2 {
		t.Errorf("retry notices = %d, want 2", len(notices))
	}
}

func TestCreatePlanTerminalFailureCarriesExcerpt(t *testing.T) {
	longGarbage := "garbage " + strings.Repeat("x", 400)
	client := llm.NewScriptedClient().
		Script("bad one").
		Script("bad two").
		Script(longGarbage)
	sleeper := &recordingSleeper{}

	p := NewPlanner(client, nil, WithPlannerSleeper(sleeper))
	_, err := p.CreatePlan(context.Background(), "x", nil, nil)
	if err == nil {
		t.Fatal("expected terminal failure")
	}
	msg := err.Error()
	if !strings.Contains(msg, "garbage") {
		t.Errorf("error should cite the last raw response: %s", msg)
	}
	if strings.Contains(msg, longGarbage) {
		t.Error("excerpt should be capped at 200 chars")
	}
	// No wait after the final attempt.
	if len(sleeper.waits) != 2 {
		t.Errorf("waits = %v, want 2 entries", sleeper.waits)
	}
}

func TestExcerptDoesNotSplitRunes(t *testing.T) {
	s := excerpt(strings.Repeat("界", 300), 200)
	if len(s) > 200 {
		t.Errorf("excerpt is %d bytes, want at most 200", len(s))
	}
	if !utf8.ValidString(s) {
		t.Fatal("excerpt is invalid UTF-8")
	}

	if got := excerpt("  short  ", 200); got != "short" {
		t.Errorf("excerpt = %q, want trimmed passthrough", got)
	}
}

func TestExtractJSONObject(t *testing.T) {
	got, err := extractJSONObject("Sure, here:\n{\"a\":1}\nDone")
	if err != nil {
		t.Fatalf("extractJSONObject: %v", err)
	}
	if got != `{"a":1}` {
		t.Errorf("got %q", got)
	}

	// Idempotent on a bare object.
	again, err := extractJSONObject(got)
	if err != nil || again != got {
		t.Errorf("second pass = %q, %v", again, err)
	}

	if _, err := extractJSONObject("no braces at all"); err == nil {
		t.Error("expected error for missing object")
	}
}
