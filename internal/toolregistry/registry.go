package toolregistry

import (
	"fmt"
	"sort"
	"sync"

	"arlo/internal/agent/ports"
	"arlo/internal/logging"
	"arlo/internal/observability"
	"arlo/internal/sandbox"
	"arlo/internal/skills"
	"arlo/internal/tools/builtin"
)

// Registry implements ports.ToolRegistry with a two-tier lookup:
// static holds the built-in tools registered at construction, dynamic
// holds tools registered later (skills, session-scoped tools).
type Registry struct {
	static  map[string]ports.ToolExecutor
	dynamic map[string]ports.ToolExecutor
	mu      sync.RWMutex
}

// Config wires the dependencies the built-in tools need.
type Config struct {
	Workspace string
	Mode      skills.AgentMode
	Direct    sandbox.Backend
	Isolated  sandbox.Backend
	Skills    skills.Library
	Broker    ports.PermissionBroker
	Logger    logging.Logger
	Metrics   *observability.Metrics
	Cache     CacheConfig

	// Sandbox is the base execution config handed to bash and skill runs.
	Sandbox sandbox.Config
}

// NewRegistry builds a registry with all built-in tools registered and
// decorated. Tools whose metadata demands approval are gated behind
// the permission broker; cacheable tools get the result cache on the
// outside so a fresh hit never re-prompts. Mutating tools are never
// marked cacheable, so the cache cannot skip a gate that matters.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Workspace == "" {
		return nil, fmt.Errorf("workspace is required")
	}
	mode, err := skills.ParseAgentMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	cfg.Logger = logging.OrNop(cfg.Logger)
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NopMetrics()
	}

	r := &Registry{
		static:  make(map[string]ports.ToolExecutor),
		dynamic: make(map[string]ports.ToolExecutor),
	}

	toolCfg := builtin.Config{
		Workspace: cfg.Workspace,
		Mode:      mode,
		Direct:    cfg.Direct,
		Isolated:  cfg.Isolated,
		Skills:    cfg.Skills,
		Logger:    cfg.Logger,
		Metrics:   cfg.Metrics,
		Sandbox:   cfg.Sandbox,
	}

	for _, tool := range builtin.All(toolCfg) {
		r.static[tool.Metadata().Name] = r.decorate(tool, cfg)
	}
	return r, nil
}

func (r *Registry) decorate(tool ports.ToolExecutor, cfg Config) ports.ToolExecutor {
	decorated := tool
	if cfg.Broker != nil && tool.Metadata().RequiresApproval {
		decorated = NewApprovalExecutor(decorated, cfg.Broker, cfg.Logger)
	}
	if tool.Metadata().Cacheable {
		decorated = NewCacheExecutor(decorated, cfg.Cache)
	}
	return decorated
}

// Register adds a dynamic tool. Built-in names cannot be shadowed.
func (r *Registry) Register(tool ports.ToolExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Metadata().Name
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.static[name]; exists {
		return fmt.Errorf("tool already exists: %s", name)
	}
	if _, exists := r.dynamic[name]; exists {
		return fmt.Errorf("tool already exists: %s", name)
	}
	r.dynamic[name] = tool
	return nil
}

// Get returns a tool by name, static tier first.
func (r *Registry) Get(name string) (ports.ToolExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tool, ok := r.static[name]; ok {
		return tool, nil
	}
	if tool, ok := r.dynamic[name]; ok {
		return tool, nil
	}
	return nil, fmt.Errorf("tool not found: %s", name)
}

// List returns all tool definitions sorted by name.
func (r *Registry) List() []ports.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ports.ToolDefinition, 0, len(r.static)+len(r.dynamic))
	for _, tool := range r.static {
		defs = append(defs, tool.Definition())
	}
	for _, tool := range r.dynamic {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Unregister removes a dynamic tool. Built-ins cannot be removed.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.static[name]; ok {
		return fmt.Errorf("cannot unregister built-in tool: %s", name)
	}
	delete(r.dynamic, name)
	return nil
}
