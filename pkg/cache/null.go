package cache

import (
	"context"
	"time"
)

// NullCache disables caching: every Get misses and writes are dropped. The
// CLI selects it for --no-cache and [cache] backend = "none", and
// pipeline.Runner falls back to it when given no cache, so every render
// goes through Graphviz.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }
