package datalayer

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RequestKey builds a stable cache/deduplication key for a request from
// its method, resolved URL and body.
func RequestKey(req *Request) string {
	h := fnv.New64a()
	h.Write([]byte(req.Method))
	h.Write([]byte{':'})
	h.Write([]byte(req.URL))
	if req.Body != nil {
		if b, err := json.Marshal(req.Body); err == nil {
			h.Write(b)
		}
	}
	return fmt.Sprintf("%x", h.Sum64())
}

// CacheOption tunes WithCache.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	logger  zerolog.Logger
	metrics *MetricsCollector
}

// CacheLogger logs background store failures instead of dropping them.
func CacheLogger(logger zerolog.Logger) CacheOption {
	return func(c *cacheConfig) { c.logger = logger }
}

// CacheMetrics records hits and misses on the given collector.
func CacheMetrics(m *MetricsCollector) CacheOption {
	return func(c *cacheConfig) { c.metrics = m }
}

// WithCache serves responses from cache when it can. A hit returns a copy
// marked Meta.Cached without touching the wrapped fetch; a miss dispatches
// and then stores the response in a background task. Cache failures in
// either direction are advisory: they are logged and swallowed, never
// surfaced to the caller.
func WithCache(next Fetch, cache Cache, options ...CacheOption) Fetch {
	cfg := cacheConfig{logger: zerolog.Nop()}
	for _, option := range options {
		option(&cfg)
	}

	return func(ctx context.Context, req *Request) (*Response, error) {
		cached, err := cache.Get(ctx, req)
		if err != nil {
			cfg.logger.Debug().Err(err).Str("url", req.URL).Msg("cache get failed")
		} else if cached != nil {
			hit := cached.Clone()
			hit.Meta.Cached = true
			if cfg.metrics != nil {
				cfg.metrics.RecordCacheHit(req.Method, endpointOf(req))
			}
			return hit, nil
		}
		if cfg.metrics != nil {
			cfg.metrics.RecordCacheMiss(req.Method, endpointOf(req))
		}

		resp, err := next(ctx, req)
		if err != nil {
			return nil, err
		}

		go func() {
			defer func() {
				if r := recover(); r != nil {
					cfg.logger.Error().Interface("panic", r).Str("url", req.URL).Msg("cache set panicked")
				}
			}()
			if err := cache.Set(context.WithoutCancel(ctx), req, resp); err != nil {
				cfg.logger.Debug().Err(err).Str("url", req.URL).Msg("cache set failed")
			}
		}()

		return resp, nil
	}
}

// MemoryCache is a sharded in-memory Cache with a fixed TTL. Entries are
// evicted lazily on read. Both operations always succeed.
type MemoryCache struct {
	shards [memoryCacheShards]*memoryShard
	ttl    time.Duration
}

const memoryCacheShards = 16

type memoryShard struct {
	mu    sync.RWMutex
	store map[string]memoryEntry
}

type memoryEntry struct {
	resp      *Response
	expiresAt time.Time
}

// NewMemoryCache returns a MemoryCache whose entries live for ttl.
// A non-positive ttl defaults to five minutes.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &MemoryCache{ttl: ttl}
	for i := range c.shards {
		c.shards[i] = &memoryShard{store: make(map[string]memoryEntry)}
	}
	return c
}

func (c *MemoryCache) shard(key string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%memoryCacheShards]
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, req *Request) (*Response, error) {
	key := RequestKey(req)
	s := c.shard(key)

	s.mu.RLock()
	entry, ok := s.store[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.store, key)
		s.mu.Unlock()
		return nil, nil
	}
	return entry.resp.Clone(), nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, req *Request, resp *Response) error {
	key := RequestKey(req)
	s := c.shard(key)

	s.mu.Lock()
	s.store[key] = memoryEntry{resp: resp.Clone(), expiresAt: time.Now().Add(c.ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes the entry for req, if any.
func (c *MemoryCache) Delete(req *Request) {
	key := RequestKey(req)
	s := c.shard(key)
	s.mu.Lock()
	delete(s.store, key)
	s.mu.Unlock()
}

// Clear drops every entry.
func (c *MemoryCache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.store = make(map[string]memoryEntry)
		s.mu.Unlock()
	}
}

// Len reports the number of live entries across all shards.
func (c *MemoryCache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.store)
		s.mu.RUnlock()
	}
	return total
}
