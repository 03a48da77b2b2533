package analysis

import (
	"context"
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"lintpad/internal/config"
	"lintpad/internal/diag"
	"lintpad/internal/trace"
)

// Key identifies one (configuration, source) input.
type Key [sha256.Size]byte

func (k Key) String() string { return fmt.Sprintf("%x", k[:]) }

// KeyFor hashes canonical config JSON, a NUL separator and the source.
func KeyFor(cfg config.EngineConfig, source string) Key {
	head, err := config.Config(cfg).MarshalCanonical()
	if err != nil {
		head = []byte("{}")
	}
	h := sha256.New()
	h.Write(head)
	h.Write([]byte{0})
	h.Write([]byte(source))
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// CachedEngine memoizes successful runs of a deterministic engine. Failures
// are never cached so a flaky engine gets another chance on the next edit.
type CachedEngine struct {
	inner  Engine
	mem    *lru.Cache[Key, []diag.Diagnostic]
	disk   *DiskCache
	tracer trace.Tracer
	// namespace separates results of differently configured engines
	namespace string
}

// CacheOption configures a CachedEngine.
type CacheOption func(*CachedEngine)

// WithDiskCache adds a second level backed by disk.
func WithDiskCache(dc *DiskCache) CacheOption {
	return func(c *CachedEngine) { c.disk = dc }
}

// WithCacheTracer attaches a tracer.
func WithCacheTracer(t trace.Tracer) CacheOption {
	return func(c *CachedEngine) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithCacheNamespace keys entries by ns as well, so engines that resolve the
// same config differently never share results.
func WithCacheNamespace(ns string) CacheOption {
	return func(c *CachedEngine) { c.namespace = ns }
}

// NewCachedEngine wraps inner with an LRU of the given size.
func NewCachedEngine(inner Engine, size int, opts ...CacheOption) (*CachedEngine, error) {
	if size <= 0 {
		size = 256
	}
	mem, err := lru.New[Key, []diag.Diagnostic](size)
	if err != nil {
		return nil, fmt.Errorf("analysis: cache: %w", err)
	}
	c := &CachedEngine{inner: inner, mem: mem, tracer: trace.Nop}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *CachedEngine) Check(ctx context.Context, source string, cfg config.EngineConfig) ([]diag.Diagnostic, error) {
	key := c.keyFor(cfg, source)
	if diags, ok := c.mem.Get(key); ok {
		trace.Point(c.tracer, trace.ScopeAnalysis, "cache-hit", "memory")
		return cloneDiagnostics(diags), nil
	}
	if c.disk != nil {
		if diags, ok, err := c.disk.Get(key); err == nil && ok {
			trace.Point(c.tracer, trace.ScopeAnalysis, "cache-hit", "disk")
			c.mem.Add(key, diags)
			return cloneDiagnostics(diags), nil
		} else if err != nil {
			trace.Point(c.tracer, trace.ScopeAnalysis, "cache-read-failed", err.Error())
		}
	}
	diags, err := c.inner.Check(ctx, source, cfg)
	if err != nil {
		return nil, err
	}
	stored := cloneDiagnostics(diags)
	c.mem.Add(key, stored)
	if c.disk != nil {
		if err := c.disk.Put(key, stored); err != nil {
			trace.Point(c.tracer, trace.ScopeAnalysis, "cache-write-failed", err.Error())
		}
	}
	return diags, nil
}

func (c *CachedEngine) keyFor(cfg config.EngineConfig, source string) Key {
	k := KeyFor(cfg, source)
	if c.namespace == "" {
		return k
	}
	h := sha256.New()
	h.Write([]byte(c.namespace))
	h.Write([]byte{0})
	h.Write(k[:])
	copy(k[:], h.Sum(nil))
	return k
}

// Len reports the number of in-memory entries.
func (c *CachedEngine) Len() int {
	return c.mem.Len()
}

// Purge drops every in-memory entry.
func (c *CachedEngine) Purge() {
	c.mem.Purge()
}

func cloneDiagnostics(in []diag.Diagnostic) []diag.Diagnostic {
	out := make([]diag.Diagnostic, len(in))
	for i, d := range in {
		if d.Fix != nil {
			fix := *d.Fix
			d.Fix = &fix
		}
		out[i] = d
	}
	return out
}
