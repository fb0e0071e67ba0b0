package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/storyline/pkg/cache"
	"github.com/matzehuels/storyline/pkg/dialogue"
	"github.com/matzehuels/storyline/pkg/observability"
)

// renderFunc renders DOT into one format; tests replace it.
type renderFunc func(ctx context.Context, dot, format string, scale float64) ([]byte, error)

// Runner encapsulates rendering with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. It does not
// touch the dialogue graph beyond reading it, but the graph itself is not
// safe for concurrent use, so callers serialize access to it.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
	TTL    time.Duration

	render renderFunc
}

// NewRunner creates a runner with the given cache.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Logger: logger,
		TTL:    DefaultTTL,
		render: RenderDOT,
	}
}

// Render converts g to DOT and produces every requested format. Artifacts
// are looked up in the cache first; a hit skips Graphviz for that format.
// The "dot" format is returned as-is and never cached.
func (r *Runner) Render(ctx context.Context, g *dialogue.Graph, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	start := time.Now()
	observability.Render().OnRenderStart(ctx, opts.Formats, g.Len())

	res, err := r.renderArtifacts(ctx, opts.ToDOT(g), opts)
	observability.Render().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	res.Stats = Stats{
		NodeCount:  g.Len(),
		EdgeCount:  len(g.Edges()),
		RenderTime: time.Since(start),
	}
	r.Logger.Debug("rendered dialogue",
		"formats", opts.Formats,
		"cached", res.CacheInfo.Hits,
		"duration", res.Stats.RenderTime)
	return res, nil
}

func (r *Runner) renderArtifacts(ctx context.Context, dot string, opts Options) (*Result, error) {
	res := &Result{DOT: dot, Artifacts: make(map[string][]byte, len(opts.Formats))}

	for _, format := range opts.Formats {
		if format == FormatDOT {
			res.Artifacts[format] = []byte(dot)
			continue
		}

		key := cache.ArtifactKey(dot, format, opts.Scale)
		if !opts.Refresh {
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil {
				r.Logger.Warn("cache read failed", "format", format, "err", err)
			}
			if err == nil && hit {
				observability.Cache().OnCacheHit(ctx, "artifact")
				res.Artifacts[format] = data
				res.CacheInfo.Hits = append(res.CacheInfo.Hits, format)
				continue
			}
			observability.Cache().OnCacheMiss(ctx, "artifact")
		}

		data, err := r.render(ctx, dot, format, opts.Scale)
		if err != nil {
			return nil, err
		}
		res.Artifacts[format] = data

		if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
			r.Logger.Warn("cache write failed", "format", format, "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return res, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
