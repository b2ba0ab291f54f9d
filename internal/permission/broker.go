package permission

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"arlo/internal/agent/ports"
	"arlo/internal/logging"
	"arlo/internal/observability"
)

// pendingEntry is the one-shot future backing a suspended request.
type pendingEntry struct {
	req      ports.PermissionRequest
	decision chan bool
	once     sync.Once
}

func (e *pendingEntry) fulfill(allow bool) {
	e.once.Do(func() { e.decision <- allow })
}

// Broker turns privileged-action requests into suspend points resolved later
// by an external decision. The pending map is the only cross-session shared
// state and is guarded by the broker mutex.
type Broker struct {
	mu      sync.RWMutex
	pending map[string]*pendingEntry

	clock   ports.Clock
	logger  logging.Logger
	metrics *observability.Metrics

	// notify, when set, is called for every new request so an interactive
	// frontend or HTTP surface can surface it.
	notify func(ports.PermissionRequest)
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger attaches a logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Broker) { b.logger = logger }
}

// WithMetrics attaches decision counters.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(b *Broker) { b.metrics = metrics }
}

// WithClock overrides the clock (tests).
func WithClock(clock ports.Clock) Option {
	return func(b *Broker) { b.clock = clock }
}

// WithNotifier registers a callback invoked for each new pending request.
func WithNotifier(notify func(ports.PermissionRequest)) Option {
	return func(b *Broker) { b.notify = notify }
}

// SetNotifier installs the new-request callback after construction, for
// frontends that need the broker to exist first. Call before any requests
// are in flight.
func (b *Broker) SetNotifier(notify func(ports.PermissionRequest)) {
	b.notify = notify
}

// NewBroker creates an empty broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		pending: make(map[string]*pendingEntry),
		clock:   ports.SystemClock{},
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Request registers the request and blocks until Resolve is called or ctx is
// cancelled. Cancellation removes the pending entry and counts as denial.
func (b *Broker) Request(ctx context.Context, req ports.PermissionRequest) (bool, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Type == "" {
		req.Type = ports.PermissionUnknown
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = b.clock.Now()
	}

	entry := &pendingEntry{req: req, decision: make(chan bool, 1)}

	b.mu.Lock()
	if _, exists := b.pending[req.ID]; exists {
		b.mu.Unlock()
		return false, fmt.Errorf("permission request %s already pending", req.ID)
	}
	b.pending[req.ID] = entry
	b.mu.Unlock()

	b.logger.Info("permission requested id=%s type=%s: %s", req.ID, req.Type, req.Message)
	if b.notify != nil {
		b.notify(req)
	}

	select {
	case allow := <-entry.decision:
		b.recordDecision(req.Type, allow)
		return allow, nil
	case <-ctx.Done():
		b.remove(req.ID)
		b.recordDecision(req.Type, false)
		return false, ctx.Err()
	}
}

// Resolve fulfills a pending request exactly once. Unknown or already
// resolved ids are a no-op, not an error.
func (b *Broker) Resolve(id string, allow bool) {
	b.mu.Lock()
	entry, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if !ok {
		b.logger.Debug("resolve for unknown or settled request id=%s ignored", id)
		return
	}
	b.logger.Info("permission resolved id=%s allow=%v", id, allow)
	entry.fulfill(allow)
}

// Pending lists outstanding requests ordered by creation time.
func (b *Broker) Pending() []ports.PermissionRequest {
	b.mu.RLock()
	out := make([]ports.PermissionRequest, 0, len(b.pending))
	for _, entry := range b.pending {
		out = append(out, entry.req)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (b *Broker) remove(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

func (b *Broker) recordDecision(permType ports.PermissionType, allow bool) {
	if b.metrics == nil {
		return
	}
	decision := "deny"
	if allow {
		decision = "allow"
	}
	b.metrics.PermissionDecisions.WithLabelValues(string(permType), decision).Inc()
}

// AutoApprover short-circuits every request to allow without suspending,
// for unattended operation.
type AutoApprover struct {
	logger logging.Logger
}

// NewAutoApprover builds the autonomous variant.
func NewAutoApprover(logger logging.Logger) *AutoApprover {
	return &AutoApprover{logger: logging.OrNop(logger)}
}

func (a *AutoApprover) Request(ctx context.Context, req ports.PermissionRequest) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	a.logger.Debug("auto-approving %s: %s", req.Type, req.Message)
	return true, nil
}

func (a *AutoApprover) Resolve(string, bool) {}

func (a *AutoApprover) Pending() []ports.PermissionRequest { return nil }
