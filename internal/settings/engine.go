package settings

import (
	"fmt"
	"strings"

	"lintpad/internal/analysis"
	"lintpad/internal/lint"
	"lintpad/internal/schema"
	"lintpad/internal/trace"
)

// BuildEngine builds the analysis engine described by s, wrapped in the result
// cache unless [cache].size is zero.
func (s *Settings) BuildEngine(t trace.Tracer) (analysis.Engine, error) {
	var (
		inner     analysis.Engine
		namespace string
	)
	switch s.Engine.Kind {
	case EngineCommand:
		ce, err := analysis.NewCommandEngine(s.Engine.Command)
		if err != nil {
			return nil, err
		}
		ce.Args = append(ce.Args, s.Engine.Args...)
		ce.Dir = s.Root
		timeout, err := s.Timeout()
		if err != nil {
			return nil, err
		}
		if timeout > 0 {
			ce.Timeout = timeout
		}
		inner = ce
	default:
		cat, err := s.Catalog()
		if err != nil {
			return nil, err
		}
		inner = lint.New(lint.WithCatalog(cat))
		namespace = catalogDefaults(cat)
	}

	if s.Cache.Size == 0 {
		return inner, nil
	}
	opts := []analysis.CacheOption{analysis.WithCacheTracer(t), analysis.WithCacheNamespace(namespace)}
	if s.Cache.Disk {
		dc, err := analysis.OpenDiskCache(s.Cache.Dir, "lintpad")
		if err != nil {
			return nil, fmt.Errorf("open result cache: %w", err)
		}
		opts = append(opts, analysis.WithDiskCache(dc))
	}
	cached, err := analysis.NewCachedEngine(inner, s.Cache.Size, opts...)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

// catalogDefaults lists every option with its default, one per line.
func catalogDefaults(cat *schema.Catalog) string {
	var b strings.Builder
	for _, opt := range cat.Options() {
		b.WriteString(opt.Key())
		b.WriteByte('=')
		b.WriteString(opt.Default)
		b.WriteByte('\n')
	}
	return b.String()
}
