// Package cache is an in-process keyed cache with per-entry expiry and
// invalidation by tag.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Options describes how a value is cached.
type Options struct {
	// TTL is how long the value stays fresh. A zero TTL never expires.
	TTL time.Duration
	// Tags are the tags that invalidate the value.
	Tags []string
}

type entry struct {
	value   interface{}
	expires time.Time
	tags    []string
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// Cache is a keyed cache. The zero value is not usable; use New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	tags    map[string]map[string]struct{}
	// gen is bumped on every invalidation so that loads started before it
	// don't store stale values.
	gen   uint64
	group singleflight.Group
	now   func() time.Time
}

// New creates a new empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		tags:    make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

// SetClock replaces the clock used for expiry. It is meant for tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get returns the fresh value under key.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(c.now()) {
		return nil, false
	}

	return e.value, true
}

// Set stores value under key.
func (c *Cache) Set(key string, value interface{}, opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.set(key, value, opts)
}

func (c *Cache) set(key string, value interface{}, opts Options) {
	c.delete(key)

	e := entry{value: value, tags: opts.Tags}
	if opts.TTL > 0 {
		e.expires = c.now().Add(opts.TTL)
	}

	c.entries[key] = e

	for _, tag := range opts.Tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// Delete removes the value under key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.delete(key)
	c.gen++
}

func (c *Cache) delete(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}

	delete(c.entries, key)

	for _, tag := range e.tags {
		if keys := c.tags[tag]; keys != nil {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tags, tag)
			}
		}
	}
}

// InvalidateTag removes every value cached with the given tag. The number of
// removed values is returned.
func (c *Cache) InvalidateTag(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.tags[tag]
	n := len(keys)

	for key := range keys {
		c.delete(key)
	}

	c.gen++
	return n
}

// Len returns the number of stored values, including expired ones that
// haven't been replaced yet.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Load returns the fresh value under key, or calls load to fill it.
// Concurrent loads of the same key share one call. Errors are not cached.
func (c *Cache) Load(ctx context.Context, key string, opts Options, load func(context.Context) (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen == gen {
			c.set(key, v, opts)
		}
		c.mu.Unlock()

		return v, nil
	})

	return v, err
}

// Memoize wraps load into a function that caches its result under key.
func Memoize[V any](c *Cache, key string, opts Options, load func(context.Context) (V, error)) func(context.Context) (V, error) {
	return func(ctx context.Context) (V, error) {
		v, err := c.Load(ctx, key, opts, func(ctx context.Context) (interface{}, error) {
			return load(ctx)
		})
		if err != nil {
			var zero V
			return zero, err
		}
		return v.(V), nil
	}
}
