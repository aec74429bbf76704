// Package redis is the storefront's thin layer over go-redis: connection
// bootstrap, the handful of commands the services use, and the key layout.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dekorekillian57-star/spendo/pkg/config"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
)

var errNotConnected = errors.New("redis client not connected")

// commands is the go-redis subset the client drives; tests swap in a fake.
type commands interface {
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	HSet(context.Context, string, ...any) *redis.IntCmd
	HGet(context.Context, string, string) *redis.StringCmd
	HGetAll(context.Context, string) *redis.MapStringStringCmd
	HDel(context.Context, string, ...string) *redis.IntCmd
}

// IsNil reports a missing key or hash field.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Pinger is the readiness probe surface.
type Pinger interface {
	Ping(context.Context) error
}

// HashStore backs the guest cart: one hash per session, one field per line.
type HashStore interface {
	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	GuestCartKey(sessionID string) string
}

// IdempotencyStore backs request replay.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// RateLimitStore backs fixed-window throttling.
type RateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// Client is a connected Redis handle plus the storefront keyspace.
type Client struct {
	Keyspace
	cmd  commands
	conn *redis.Client
}

// New connects using the URL (or the discrete address fields) and pings once.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"addr": opts.Addr, "db": opts.DB}), "redis connected")
	}
	return &Client{cmd: conn, conn: conn}, nil
}

func clientOptions(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
	case cfg.Address == "":
		return nil, errors.New("redis url or address is required")
	}

	// explicit URL settings win over the pool defaults from env
	fill := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DialTimeout, cfg.DialTimeout)
	fill(&opts.ReadTimeout, cfg.ReadTimeout)
	fill(&opts.WriteTimeout, cfg.WriteTimeout)
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	return opts, nil
}

func (c *Client) ready() (commands, error) {
	if c == nil || c.cmd == nil {
		return nil, errNotConnected
	}
	return c.cmd, nil
}

func (c *Client) Ping(ctx context.Context) error {
	cmd, err := c.ready()
	if err != nil {
		return err
	}
	return cmd.Ping(ctx).Err()
}

// Get returns redis.Nil for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	cmd, err := c.ready()
	if err != nil {
		return "", err
	}
	return cmd.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	cmd, err := c.ready()
	if err != nil {
		return err
	}
	return cmd.Set(ctx, key, value, ttl).Err()
}

// SetNX writes key only when it is absent and reports whether it did.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	cmd, err := c.ready()
	if err != nil {
		return false, err
	}
	return cmd.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	cmd, err := c.ready()
	if err != nil || len(keys) == 0 {
		return err
	}
	return cmd.Del(ctx, keys...).Err()
}

// IncrWithTTL bumps a counter; the first increment of a window starts its TTL.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	cmd, err := c.ready()
	if err != nil {
		return 0, err
	}
	count, err := cmd.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 && ttl > 0 {
		if err := cmd.Expire(ctx, key, ttl).Err(); err != nil {
			return count, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return count, nil
}

func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	cmd, err := c.ready()
	if err != nil {
		return err
	}
	return cmd.Expire(ctx, key, ttl).Err()
}

func (c *Client) HSet(ctx context.Context, key, field, value string) error {
	cmd, err := c.ready()
	if err != nil {
		return err
	}
	return cmd.HSet(ctx, key, field, value).Err()
}

// HGet returns redis.Nil for a missing field.
func (c *Client) HGet(ctx context.Context, key, field string) (string, error) {
	cmd, err := c.ready()
	if err != nil {
		return "", err
	}
	return cmd.HGet(ctx, key, field).Result()
}

// HGetAll yields an empty map for a missing hash.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd, err := c.ready()
	if err != nil {
		return nil, err
	}
	return cmd.HGetAll(ctx, key).Result()
}

func (c *Client) HDel(ctx context.Context, key string, fields ...string) error {
	cmd, err := c.ready()
	if err != nil || len(fields) == 0 {
		return err
	}
	return cmd.HDel(ctx, key, fields...).Err()
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
