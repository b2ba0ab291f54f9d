package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies failures so callers can decide between retrying locally,
// folding the error back into the conversation, or failing the job.
type Kind string

const (
	KindClassification Kind = "classification"
	KindPlanning       Kind = "planning"
	KindTool           Kind = "tool"
	KindPermission     Kind = "permission"
	KindSandbox        Kind = "sandbox"
	KindTimeout        Kind = "timeout"
	KindLLM            Kind = "llm"
)

// AgentError is a failure tagged with its kind.
type AgentError struct {
	Kind Kind
	Err  error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// New creates a tagged error.
func New(kind Kind, format string, args ...any) *AgentError {
	return &AgentError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap tags an existing error.
func Wrap(kind Kind, err error) *AgentError {
	if err == nil {
		return nil
	}
	return &AgentError{Kind: kind, Err: err}
}

// KindOf returns the kind of err, or empty when untagged.
func KindOf(err error) Kind {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsTransient reports whether an error is worth retrying: network hiccups,
// timeouts, throttling. Permission and sandbox policy failures never are.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindPermission, KindSandbox, KindClassification:
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout", "timed out", "temporarily", "connection reset",
		"connection refused", "too many requests", "rate limit",
		"502", "503", "504", "overloaded",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
