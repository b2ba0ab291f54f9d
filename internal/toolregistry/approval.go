package toolregistry

import (
	"context"
	"fmt"

	"arlo/internal/agent/ports"
	"arlo/internal/logging"
)

// ApprovalMessenger lets a tool describe a pending call in a richer
// way than the default one-liner, e.g. file_write renders a diff.
type ApprovalMessenger interface {
	ApprovalMessage(call ports.ToolCall) string
}

// ApprovalPolicy lets a tool exempt individual calls from the gate.
// Tools without it are gated on every call.
type ApprovalPolicy interface {
	NeedsApproval(call ports.ToolCall) bool
}

// approvalExecutor gates the wrapped tool behind the permission
// broker. The call suspends until a decision arrives; a denial comes
// back as a failed result rather than an error so the conversation can
// continue with that outcome in context. Decision metrics are recorded
// by the broker itself.
type approvalExecutor struct {
	delegate ports.ToolExecutor
	broker   ports.PermissionBroker
	logger   logging.Logger
}

// NewApprovalExecutor wraps delegate with a permission gate.
func NewApprovalExecutor(delegate ports.ToolExecutor, broker ports.PermissionBroker, logger logging.Logger) ports.ToolExecutor {
	return &approvalExecutor{
		delegate: delegate,
		broker:   broker,
		logger:   logging.OrNop(logger),
	}
}

func (a *approvalExecutor) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	if p, ok := a.delegate.(ApprovalPolicy); ok && !p.NeedsApproval(call) {
		return a.delegate.Execute(ctx, call)
	}

	md := a.delegate.Metadata()
	req := ports.PermissionRequest{
		Type:    md.Permission,
		Message: a.describe(call, md),
		Metadata: map[string]string{
			"tool":       md.Name,
			"session_id": call.SessionID,
			"job_id":     call.JobID,
		},
	}

	allowed, err := a.broker.Request(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("permission request for %s: %w", md.Name, err)
	}
	if !allowed {
		a.logger.Info("tool %s denied by user", md.Name)
		return &ports.ToolResult{
			CallID:  call.ID,
			Content: fmt.Sprintf("Permission to run %s was denied by the user.", md.Name),
			Error:   "permission denied",
		}, nil
	}
	return a.delegate.Execute(ctx, call)
}

func (a *approvalExecutor) Definition() ports.ToolDefinition { return a.delegate.Definition() }
func (a *approvalExecutor) Metadata() ports.ToolMetadata     { return a.delegate.Metadata() }

func (a *approvalExecutor) describe(call ports.ToolCall, md ports.ToolMetadata) string {
	if m, ok := a.delegate.(ApprovalMessenger); ok {
		if msg := m.ApprovalMessage(call); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("Tool %s requests %s permission with arguments %s", md.Name, md.Permission, normalizeArgs(call.Arguments))
}
