// Package respcache memoizes upstream responses for a fixed time-to-live.
//
// A Cache is built once at startup and handed to whoever needs it. Entries
// expire lazily: an expired entry is only replaced when its key is requested
// again, so keys that are never asked for again stay in memory. That is fine
// for the bounded query space of a single process and is the known scaling
// limit of this design.
//
// Concurrent misses on the same key share one computation.
package respcache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultTTL = time.Hour

type entry struct {
	value     any
	createdAt time.Time
}

type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry

	group singleflight.Group
}

type Option func(*Cache)

// WithClock overrides the time source; used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// GetOrCompute returns the live value for key, or runs compute and stores its
// result. Errors are returned to every waiter and never stored.
//
// compute runs detached from the caller's cancellation because other callers
// may be waiting on it; each caller still stops waiting when its own ctx ends.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (any, error)) (any, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// Another flight may have filled the key between lookup and DoChan.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Fetch is the typed form of GetOrCompute.
func Fetch[T any](ctx context.Context, c *Cache, key string, compute func(context.Context) (T, error)) (T, error) {
	v, err := c.GetOrCompute(ctx, key, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *Cache) lookup(key string) (any, bool) {
	c.mu.RLock()
	ent, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(ent.createdAt) >= c.ttl {
		return nil, false
	}
	return ent.value, true
}

func (c *Cache) store(key string, v any) {
	c.mu.Lock()
	c.entries[key] = entry{value: v, createdAt: c.now()}
	c.mu.Unlock()
}

// Len counts stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Key joins an operation prefix with normalized parameters:
// Key("anime_search", "  Naruto  Shippuden", "2") == "anime_search:naruto shippuden:2".
func Key(op string, parts ...string) string {
	var b strings.Builder
	b.WriteString(op)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(normalize(p))
	}
	return b.String()
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
