package datalayer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache is a Cache backed by a Redis store. Responses are stored as
// JSON, which the Response serializability contract guarantees round-trips
// losslessly. Store failures come back as errors that WithCache swallows,
// so a flaky Redis degrades to a pass-through cache rather than breaking
// fetches.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

// NewRedisCache wraps client as a Cache with the given entry TTL.
// A non-positive ttl defaults to five minutes.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl, prefix: "datalayer:"}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, req *Request) (*Response, error) {
	val, err := c.client.Get(ctx, c.prefix+RequestKey(req)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, req *Request, resp *Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+RequestKey(req), b, c.ttl).Err()
}
