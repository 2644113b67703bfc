package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/placesearch/pkg/config"
)

const defaultDialTimeout = 3 * time.Second

// Client wraps the go-redis client used for selection events
type Client struct {
	client *redis.Client
	addr   string
}

// NewClient connects to the configured Redis and pings it once. A zero
// PoolSize or DialTimeout keeps the go-redis defaults.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}

	addr := cfg.RedisAddr()
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: dialTimeout,
	})

	c := &Client{client: client, addr: addr}
	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return c, nil
}

// Client returns the underlying go-redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Addr returns the address the client is connected to
func (c *Client) Addr() string {
	return c.addr
}

// Ping checks that Redis answers
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis at %s unreachable: %w", c.addr, err)
	}
	return nil
}

// Close releases the connection pool
func (c *Client) Close() error {
	return c.client.Close()
}
