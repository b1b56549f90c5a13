// Package cache is an in-process LRU with tag and path invalidation.
//
// Entries are stored under a key (usually the route path that renders
// them) and any number of tags. Invalidating a tag drops every entry
// carrying it; revalidating a path drops the entry stored under it.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

// Well-known tags
const (
	TagAdmin         = "admin"
	TagQuests        = "quests"
	TagExpeditions   = "expeditions"
	TagOrganizations = "organizations"
)

// DefaultSize is used when a non-positive size is configured
const DefaultSize = 512

// Invalidation describes entries to drop, locally or on another instance
type Invalidation struct {
	Origin string   `json:"origin"`
	Tags   []string `json:"tags,omitempty"`
	Paths  []string `json:"paths,omitempty"`
}

// Broadcaster forwards invalidations to other instances
type Broadcaster interface {
	Broadcast(ctx context.Context, inv Invalidation) error
}

type entry struct {
	value any
	tags  []string
}

// Cache is safe for concurrent use
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache
	byTag   map[string]map[string]struct{}

	// Invalidation counters per tag and per path, plus one for Purge.
	// They only grow, so Load can detect an invalidation that ran while
	// it was loading.
	tagGen  map[string]uint64
	pathGen map[string]uint64
	purges  uint64

	origin      string
	broadcaster Broadcaster
	logger      *slog.Logger
}

// New creates a cache holding at most size entries
func New(size int, logger *slog.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache{
		byTag:   make(map[string]map[string]struct{}),
		tagGen:  make(map[string]uint64),
		pathGen: make(map[string]uint64),
		origin:  uuid.NewString(),
		logger:  logger,
	}

	entries, err := lru.NewWithEvict(size, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c.entries = entries
	return c, nil
}

// onEvict runs inside lru calls, which only happen while c.mu is held
func (c *Cache) onEvict(key, value any) {
	k, _ := key.(string)
	e, _ := value.(entry)
	for _, tag := range e.tags {
		keys := c.byTag[tag]
		delete(keys, k)
		if len(keys) == 0 {
			delete(c.byTag, tag)
		}
	}
}

// Origin identifies this cache instance in broadcast invalidations
func (c *Cache) Origin() string {
	return c.origin
}

// SetBroadcaster enables cross-instance invalidation
func (c *Cache) SetBroadcaster(b Broadcaster) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcaster = b
}

// Get returns the value stored under key
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return v.(entry).value, true
}

// Set stores value under key with the given tags, replacing any previous entry
func (c *Cache) Set(key string, value any, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value, tags)
}

// generation sums the counters that guard key and tags. Caller holds c.mu.
func (c *Cache) generation(key string, tags []string) uint64 {
	gen := c.purges + c.pathGen[key]
	for _, tag := range tags {
		gen += c.tagGen[tag]
	}
	return gen
}

// setIfCurrent stores value unless key or one of tags was invalidated
// since gen was taken.
func (c *Cache) setIfCurrent(key string, value any, tags []string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation(key, tags) != gen {
		return false
	}
	c.set(key, value, tags)
	return true
}

func (c *Cache) set(key string, value any, tags []string) {
	c.entries.Remove(key)
	c.entries.Add(key, entry{value: value, tags: tags})
	for _, tag := range tags {
		keys, ok := c.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// InvalidateTags drops every entry carrying any of tags here and, when a
// broadcaster is set, on other instances.
func (c *Cache) InvalidateTags(ctx context.Context, tags ...string) {
	c.invalidate(ctx, Invalidation{Origin: c.origin, Tags: tags})
}

// RevalidatePaths drops the entries stored under paths
func (c *Cache) RevalidatePaths(ctx context.Context, paths ...string) {
	c.invalidate(ctx, Invalidation{Origin: c.origin, Paths: paths})
}

func (c *Cache) invalidate(ctx context.Context, inv Invalidation) {
	c.Apply(inv)

	c.mu.Lock()
	b := c.broadcaster
	c.mu.Unlock()
	if b == nil {
		return
	}
	if err := b.Broadcast(ctx, inv); err != nil {
		c.logger.Warn("cache invalidation broadcast failed", "tags", inv.Tags, "paths", inv.Paths, "error", err)
	}
}

// Apply drops the entries named by inv without broadcasting it
func (c *Cache) Apply(inv Invalidation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tag := range inv.Tags {
		for key := range c.byTag[tag] {
			c.entries.Remove(key)
		}
		delete(c.byTag, tag)
		c.tagGen[tag]++
	}
	for _, path := range inv.Paths {
		c.entries.Remove(path)
		c.pathGen[path]++
	}
}

// Purge drops every entry
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	clear(c.byTag)
	c.purges++
}

// Load returns the cached value under key or stores the result of load.
// Load errors are returned and nothing is cached. A result is not cached
// when key or one of tags is invalidated while load runs.
func Load[T any](c *Cache, key string, tags []string, load func() (T, error)) (T, error) {
	c.mu.Lock()
	if v, ok := c.entries.Get(key); ok {
		if typed, ok := v.(entry).value.(T); ok {
			c.mu.Unlock()
			return typed, nil
		}
	}
	gen := c.generation(key, tags)
	c.mu.Unlock()

	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	c.setIfCurrent(key, v, tags, gen)
	return v, nil
}
