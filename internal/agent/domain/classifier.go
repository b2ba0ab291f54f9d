package domain

import (
	"context"
	"fmt"
	"strings"

	"arlo/internal/agent/ports"
	"arlo/internal/logging"
)

// Classification is the two-value routing decision for a query.
type Classification int

const (
	// Simple queries are answered with a direct streamed chat turn.
	Simple Classification = iota
	// Complex queries go through plan-and-execute.
	Complex
)

func (c Classification) String() string {
	if c == Simple {
		return "simple"
	}
	return "complex"
}

// Complex markers are checked first: any hit wins outright, even when
// a simple marker also matches.
var complexMarkers = []string{
	"create", "write", "delete", "remove", "run", "execute", "build",
	"install", "deploy", "search", "find", "fix", "refactor", "commit",
	"download", "generate", "implement", "modify", "update", "convert",
	"analyze", "test",
}

var simpleMarkers = []string{
	"hello", "hi ", "hey", "thanks", "thank you",
	"what is", "what's", "who is", "why", "how does", "explain",
	"tell me", "describe", "define",
}

const classifyPrompt = `Classify the user query below.
Answer with exactly one word: SIMPLE if it can be answered conversationally
without using tools, COMPLEX if it requires planning, tools, or multiple steps.

Query: %s`

// Classifier routes queries between direct chat and plan-and-execute.
type Classifier struct {
	llm    ports.LLMClient
	logger logging.Logger
}

// NewClassifier creates a classifier. llm may be nil, in which case
// unmatched queries default to Complex without a fallback call.
func NewClassifier(llm ports.LLMClient, logger logging.Logger) *Classifier {
	return &Classifier{llm: llm, logger: logging.OrNop(logger)}
}

// Classify decides how much structure the query needs. It never
// returns an error: when in doubt it picks Complex, the path that can
// do everything the simple one can.
func (c *Classifier) Classify(ctx context.Context, query string) Classification {
	lowered := strings.ToLower(query)

	for _, marker := range complexMarkers {
		if strings.Contains(lowered, marker) {
			return Complex
		}
	}
	for _, marker := range simpleMarkers {
		if strings.Contains(lowered, marker) {
			return Simple
		}
	}
	return c.classifyWithLLM(ctx, query)
}

func (c *Classifier) classifyWithLLM(ctx context.Context, query string) Classification {
	if c.llm == nil {
		return Complex
	}

	resp, err := c.llm.Complete(ctx, ports.CompletionRequest{
		Messages: []ports.Message{{
			Role:    "user",
			Content: fmt.Sprintf(classifyPrompt, query),
		}},
		MaxTokens: 8,
	})
	if err != nil {
		c.logger.Warn("classifier fallback failed, defaulting to complex: %v", err)
		return Complex
	}

	switch strings.ToUpper(strings.TrimSpace(resp.Content)) {
	case "SIMPLE":
		return Simple
	case "COMPLEX":
		return Complex
	}
	c.logger.Debug("ambiguous classification %q, defaulting to complex", resp.Content)
	return Complex
}
