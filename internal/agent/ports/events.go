package ports

import "time"

// AgentEvent is a progress notification emitted during execution.
type AgentEvent interface {
	EventType() string
	Timestamp() time.Time
	GetSessionID() string
	GetJobID() string
}

// EventListener consumes agent events (UI, telemetry, websocket fan-out).
type EventListener interface {
	OnEvent(event AgentEvent)
}

// EventListenerFunc adapts a function to EventListener.
type EventListenerFunc func(AgentEvent)

func (f EventListenerFunc) OnEvent(event AgentEvent) { f(event) }
