package ports

import (
	"context"
	"time"
)

// PermissionType categorizes the privileged action being gated.
type PermissionType string

const (
	PermissionFilesystemRead  PermissionType = "filesystem_read"
	PermissionFilesystemWrite PermissionType = "filesystem_write"
	PermissionShellExecute    PermissionType = "shell_execute"
	PermissionNetwork         PermissionType = "network"
	PermissionUnknown         PermissionType = "unknown"
)

// ParsePermissionType maps a wire token to a PermissionType, defaulting to
// PermissionUnknown for anything unrecognized.
func ParsePermissionType(s string) PermissionType {
	switch PermissionType(s) {
	case PermissionFilesystemRead, PermissionFilesystemWrite, PermissionShellExecute, PermissionNetwork:
		return PermissionType(s)
	default:
		return PermissionUnknown
	}
}

// PermissionRequest gates one privileged action. It is created by a tool
// before the action and resolved exactly once by an external actor.
type PermissionRequest struct {
	ID        string            `json:"id"`
	Type      PermissionType    `json:"type"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// PermissionBroker suspends callers until a decision arrives.
type PermissionBroker interface {
	// Request blocks until the request is resolved or ctx is cancelled
	// (cancellation counts as denial). The request id is assigned by the
	// broker when empty.
	Request(ctx context.Context, req PermissionRequest) (bool, error)

	// Resolve fulfills a pending request. Resolving an unknown or
	// already-resolved id is a no-op.
	Resolve(id string, allow bool)

	// Pending lists outstanding requests ordered by creation time.
	Pending() []PermissionRequest
}
