package schema

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	geequery "github.com/GeeQuery/geequery-orm"

	"github.com/vmihailenco/msgpack/v5"
)

// cachedDefault is the msgpack form of a probe result.
type cachedDefault struct {
	Default string `msgpack:"d"`
	OK      bool   `msgpack:"ok"`
}

// CachedProbe serves column defaults from a geequery.Cache and falls back
// to the wrapped probe on a miss. Errors are never cached.
type CachedProbe struct {
	probe   Probe
	cache   geequery.Cache
	profile string
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedProbe wraps probe. profile namespaces the cache keys so several
// databases can share one cache. A zero ttl keeps entries forever.
func NewCachedProbe(probe Probe, cache geequery.Cache, profile string, ttl time.Duration) *CachedProbe {
	return &CachedProbe{probe: probe, cache: cache, profile: profile, ttl: ttl}
}

// ColumnDefault implements Probe.
func (c *CachedProbe) ColumnDefault(ctx context.Context, table, column string) (string, bool, error) {
	key := geequery.CacheKey{Profile: c.profile, Table: table, Column: column}.String()
	if b, err := c.cache.Get(ctx, key); err == nil && b != nil {
		var v cachedDefault
		if err := msgpack.Unmarshal(b, &v); err == nil {
			c.hits.Add(1)
			return v.Default, v.OK, nil
		}
	}
	c.misses.Add(1)
	def, ok, err := c.probe.ColumnDefault(ctx, table, column)
	if err != nil {
		return "", false, err
	}
	b, err := msgpack.Marshal(cachedDefault{Default: def, OK: ok})
	if err != nil {
		return "", false, fmt.Errorf("schema: encode cached default: %w", err)
	}
	if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
		return "", false, fmt.Errorf("schema: cache default of %s.%s: %w", table, column, err)
	}
	return def, ok, nil
}

// Invalidate drops every cached default of the profile.
func (c *CachedProbe) Invalidate(ctx context.Context) error {
	return c.cache.DeletePrefix(ctx, c.profile+":")
}

// Hits returns the number of lookups served from the cache.
func (c *CachedProbe) Hits() int64 { return c.hits.Load() }

// Misses returns the number of lookups that reached the wrapped probe.
func (c *CachedProbe) Misses() int64 { return c.misses.Load() }

var _ Probe = (*CachedProbe)(nil)
