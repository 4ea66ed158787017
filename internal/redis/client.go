package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis client shared by the store backend and the event
// bus. A single client per process reuses connection pooling; pub/sub
// subscriptions open their own connections internally.
type Client struct {
	*redis.Client
}

// NewClient creates a client from a URL.
// URL format: redis://[:password@]host:port[/db]
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Client{Client: redis.NewClient(opts)}, nil
}

// NewClientFromAddr creates a client from a bare host:port address. Used by
// tests against miniredis.
func NewClientFromAddr(addr string) *Client {
	return &Client{Client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Ping verifies the connection. Call on startup to fail fast if Redis is
// unreachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.Client.Close()
}
