package domain

import (
	"context"
	"errors"
	"testing"

	"arlo/internal/llm"
)

func TestClassifyMarkers(t *testing.T) {
	c := NewClassifier(nil, nil)
	tests := []struct {
		query string
		want  Classification
	}{
		{"hello", Simple},
		{"what is a goroutine", Simple},
		{"explain how DNS works", Simple},
		{"create a file named notes.txt", Complex},
		{"run the test suite", Complex},
		{"delete old logs", Complex},
		// Complex markers win even when a simple marker co-occurs.
		{"hello, please create a file", Complex},
		{"explain then fix the bug", Complex},
	}
	for _, tc := range tests {
		if got := c.Classify(context.Background(), tc.query); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestClassifyLLMFallback(t *testing.T) {
	client := llm.NewScriptedClient().Script("SIMPLE")
	c := NewClassifier(client, nil)
	if got := c.Classify(context.Background(), "the weather today"); got != Simple {
		t.Errorf("got %v, want Simple", got)
	}

	client = llm.NewScriptedClient().Script("COMPLEX")
	c = NewClassifier(client, nil)
	if got := c.Classify(context.Background(), "the weather today"); got != Complex {
		t.Errorf("got %v, want Complex", got)
	}
}

func TestClassifyDefaultsToComplex(t *testing.T) {
	// LLM error.
	client := llm.NewScriptedClient().ScriptError(errors.New("down"))
	c := NewClassifier(client, nil)
	if got := c.Classify(context.Background(), "the weather today"); got != Complex {
		t.Errorf("error fallback: got %v, want Complex", got)
	}

	// Ambiguous reply.
	client = llm.NewScriptedClient().Script("it depends")
	c = NewClassifier(client, nil)
	if got := c.Classify(context.Background(), "the weather today"); got != Complex {
		t.Errorf("ambiguous fallback: got %v, want Complex", got)
	}

	// No LLM at all.
	c = NewClassifier(nil, nil)
	if got := c.Classify(context.Background(), "the weather today"); got != Complex {
		t.Errorf("nil client: got %v, want Complex", got)
	}
}
