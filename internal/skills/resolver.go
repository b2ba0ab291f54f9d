package skills

import "fmt"

// AgentMode is the agent-level execution policy for skill code.
type AgentMode string

const (
	// AgentModeSandbox forces every skill into the isolated backend.
	AgentModeSandbox AgentMode = "sandbox"
	// AgentModeDirect forces host execution and rejects skills that
	// require isolation.
	AgentModeDirect AgentMode = "direct"
	// AgentModeFlexible defers to the skill's own preference.
	AgentModeFlexible AgentMode = "flexible"
)

// ParseAgentMode parses an agent execution mode. Empty means flexible.
func ParseAgentMode(s string) (AgentMode, error) {
	switch s {
	case "", string(AgentModeFlexible):
		return AgentModeFlexible, nil
	case string(AgentModeSandbox):
		return AgentModeSandbox, nil
	case string(AgentModeDirect):
		return AgentModeDirect, nil
	}
	return "", fmt.Errorf("invalid execution mode %q", s)
}

// ResolveBackend decides whether a skill runs in the isolated backend
// or directly on the host. It is a pure function of the agent mode, the
// skill's requirements and preference, and whether the isolated backend
// is available, so the same inputs always yield the same decision.
func ResolveBackend(mode AgentMode, requiresSandbox bool, preferredMode string, isolatedAvailable bool) (useIsolated bool, err error) {
	switch mode {
	case AgentModeSandbox:
		if !isolatedAvailable {
			return false, fmt.Errorf("agent requires sandbox execution but the isolated backend is unavailable")
		}
		return true, nil

	case AgentModeDirect:
		if requiresSandbox {
			return false, fmt.Errorf("skill requires sandbox but agent is in direct mode")
		}
		return false, nil

	case AgentModeFlexible:
		if requiresSandbox {
			if !isolatedAvailable {
				return false, fmt.Errorf("skill requires sandbox but the isolated backend is unavailable")
			}
			return true, nil
		}
		switch preferredMode {
		case "sandbox":
			// Preference without a hard requirement degrades to direct
			// when isolation is missing.
			return isolatedAvailable, nil
		case "direct":
			return false, nil
		default:
			return isolatedAvailable, nil
		}
	}
	return false, fmt.Errorf("invalid execution mode %q", mode)
}
