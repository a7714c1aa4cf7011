// Package redisstore is the "direct" cache backend: a TCP connection to a
// Redis-compatible server using native SET...EX, GET, KEYS, PING, and
// pipelined writes. Grounded on the teacher's internal/cache/redisstore
// client, extended with Get/Keys/Ping to cover the full spec §4.1
// operation set (the teacher only needed MGet/Set/Del).
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/observability"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option       { return func(o *redis.Options) { o.PoolSize = n } }
func WithMinIdleConns(n int) Option   { return func(o *redis.Options) { o.MinIdleConns = n } }
func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}
func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}
func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

type Client struct {
	rdb *redis.Client
}

var _ cache.Interface = (*Client)(nil)

func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     64,
		MinIdleConns: 4,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveCacheOp("ping", err, time.Since(start))
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCacheOp("get", nil, time.Since(start))
		return nil, cache.ErrMiss
	}
	observability.ObserveCacheOp("get", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("redis GET %q: %w", key, err)
	}
	return v, nil
}

func (c *Client) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, val, ttl).Err()
	observability.ObserveCacheOp("set", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	start := time.Now()
	ks, err := c.rdb.Keys(ctx, pattern).Result()
	observability.ObserveCacheOp("keys", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("redis KEYS %q: %w", pattern, err)
	}
	return ks, nil
}

func (c *Client) Pipeline(ctx context.Context, writes map[string][]byte, ttl time.Duration) error {
	start := time.Now()
	if len(writes) == 0 {
		observability.ObserveCacheOp("pipeline", nil, time.Since(start))
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range writes {
			if err := p.Set(ctx, k, v, ttl).Err(); err != nil {
				return fmt.Errorf("pipeline SET %q: %w", k, err)
			}
		}
		return nil
	})
	observability.ObserveCacheOp("pipeline", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("redis pipeline (%d keys): %w", len(writes), err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	observability.ObserveCacheOp("ping", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := c.rdb.Del(ctx, keys...).Err()
	observability.ObserveCacheOp("del", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("redis DEL %d keys: %w", len(keys), err)
	}
	return nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
