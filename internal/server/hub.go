package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arlo/internal/agent/domain"
	"arlo/internal/agent/ports"
	"arlo/internal/logging"
)

// wireEvent is the JSON shape events take on the websocket feed.
type wireEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	JobID     string    `json:"job_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Hub fans agent events out to every connected websocket client. It
// implements ports.EventListener so it can be subscribed directly to
// the coordinator. Slow clients are dropped rather than letting their
// backlog block the run.
type Hub struct {
	logger logging.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan wireEvent
}

const clientBuffer = 64

// NewHub creates an empty hub.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		logger:  logging.OrNop(logger),
		clients: map[*websocket.Conn]chan wireEvent{},
	}
}

// OnEvent implements ports.EventListener.
func (h *Hub) OnEvent(event ports.AgentEvent) {
	wire := toWire(event)

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- wire:
		default:
			h.logger.Warn("dropping slow event client")
			delete(h.clients, conn)
			close(ch)
		}
	}
}

// Add registers a connection and starts its writer. The returned
// channel closes when the client is removed.
func (h *Hub) Add(conn *websocket.Conn) {
	ch := make(chan wireEvent, clientBuffer)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	go func() {
		defer conn.Close()
		for event := range ch {
			if err := conn.WriteJSON(event); err != nil {
				h.Remove(conn)
				return
			}
		}
	}()
}

// Remove unregisters a connection.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func toWire(event ports.AgentEvent) wireEvent {
	wire := wireEvent{
		Type:      event.EventType(),
		SessionID: event.GetSessionID(),
		JobID:     event.GetJobID(),
		Timestamp: event.Timestamp(),
	}
	switch e := event.(type) {
	case *domain.TokenEvent:
		wire.Data = map[string]any{"token": e.Token}
	case *domain.ThinkingEvent:
		wire.Data = map[string]any{"content": e.Content}
	case *domain.TaskStartEvent:
		wire.Data = map[string]any{"index": e.Index, "description": e.Description}
	case *domain.StepStartedEvent:
		wire.Data = map[string]any{"step_id": e.StepID, "tool": e.ToolName, "args": e.ToolArgs}
	case *domain.StepCompletedEvent:
		wire.Data = map[string]any{"step_id": e.StepID, "tool": e.ToolName, "status": e.Status, "result": e.Result}
	case *domain.PlanCreatedEvent:
		wire.Data = map[string]any{"plan": e.Plan}
	case *domain.ErrorEvent:
		wire.Data = map[string]any{"message": e.Message}
	case *domain.JobCompletedEvent:
		wire.Data = map[string]any{"status": e.Status, "result": e.Result}
	}
	return wire
}
