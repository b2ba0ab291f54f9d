package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"arlo/internal/agent/ports"
)

const (
	defaultCacheMaxSize = 256
	defaultCacheTTL     = 5 * time.Minute
)

// CacheConfig configures the tool result cache.
type CacheConfig struct {
	MaxSize int
	TTL     time.Duration
}

type cacheEntry struct {
	content  string
	metadata map[string]any
	storedAt time.Time
}

// cacheExecutor caches successful results keyed by tool name plus
// normalized arguments. Only tools marked Cacheable are wrapped with
// it, so mutating tools never see a stale replay.
type cacheExecutor struct {
	delegate ports.ToolExecutor
	cache    *lru.Cache[string, cacheEntry]
	ttl      time.Duration
}

// NewCacheExecutor wraps delegate with an LRU result cache. Zero
// config values fall back to the defaults.
func NewCacheExecutor(delegate ports.ToolExecutor, cfg CacheConfig) ports.ToolExecutor {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultCacheMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}
	cache, err := lru.New[string, cacheEntry](cfg.MaxSize)
	if err != nil {
		// lru.New only errors on non-positive size, guarded above.
		return delegate
	}
	return &cacheExecutor{delegate: delegate, cache: cache, ttl: cfg.TTL}
}

func (c *cacheExecutor) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	key := c.cacheKey(call)

	if entry, ok := c.cache.Get(key); ok {
		if time.Since(entry.storedAt) < c.ttl {
			return &ports.ToolResult{
				CallID:   call.ID,
				Content:  entry.content,
				Metadata: cloneMetadata(entry.metadata),
			}, nil
		}
		c.cache.Remove(key)
	}

	result, err := c.delegate.Execute(ctx, call)
	if err != nil {
		return result, err
	}
	if result != nil && !result.Failed() {
		c.cache.Add(key, cacheEntry{
			content:  result.Content,
			metadata: cloneMetadata(result.Metadata),
			storedAt: time.Now(),
		})
	}
	return result, nil
}

func (c *cacheExecutor) Definition() ports.ToolDefinition { return c.delegate.Definition() }
func (c *cacheExecutor) Metadata() ports.ToolMetadata     { return c.delegate.Metadata() }

func (c *cacheExecutor) cacheKey(call ports.ToolCall) string {
	name := call.Name
	if name == "" {
		name = c.delegate.Metadata().Name
	}
	return fmt.Sprintf("%s:%s", name, normalizeArgs(call.Arguments))
}

// normalizeArgs serializes arguments deterministically. json.Marshal
// sorts map keys, so equal maps always produce equal keys.
func normalizeArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
