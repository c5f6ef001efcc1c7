package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Client struct {
	rdb        *redis.Client
	KeyBuilder *KeyBuilder
	log        *zap.Logger
}

// NewClient creates a new Redis client
func NewClient(redisURL string, environment string, log *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 20
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, KeyBuilder: NewKeyBuilder(environment), log: log}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Health checks the Redis connection
func (c *Client) Health(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_ping", zap.Duration("duration", dur), zap.Error(err))
	} else {
		c.log.Debug("redis_ping", zap.Duration("duration", dur))
	}
	return err
}

// SetNX sets a value only if it doesn't exist (used for announce dedup)
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	start := time.Now()
	ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_setnx",
			zap.String("key", key),
			zap.Duration("duration", dur),
			zap.Error(err))
	} else {
		c.log.Debug("redis_setnx",
			zap.String("key", key),
			zap.Bool("result", ok),
			zap.Duration("duration", dur))
	}
	return ok, err
}

// SAdd adds members to a set
func (c *Client) SAdd(ctx context.Context, key string, members ...interface{}) (int64, error) {
	start := time.Now()
	n, err := c.rdb.SAdd(ctx, key, members...).Result()
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_sadd",
			zap.String("key", key),
			zap.Duration("duration", dur),
			zap.Error(err))
	} else {
		c.log.Debug("redis_sadd",
			zap.String("key", key),
			zap.Int64("added", n),
			zap.Duration("duration", dur))
	}
	return n, err
}

// SMembers returns all members of a set
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	start := time.Now()
	members, err := c.rdb.SMembers(ctx, key).Result()
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_smembers",
			zap.String("key", key),
			zap.Duration("duration", dur),
			zap.Error(err))
	} else {
		c.log.Debug("redis_smembers",
			zap.String("key", key),
			zap.Int("members", len(members)),
			zap.Duration("duration", dur))
	}
	return members, err
}

// SIsMember checks set membership
func (c *Client) SIsMember(ctx context.Context, key string, member interface{}) (bool, error) {
	start := time.Now()
	ok, err := c.rdb.SIsMember(ctx, key, member).Result()
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_sismember",
			zap.String("key", key),
			zap.Duration("duration", dur),
			zap.Error(err))
	} else {
		c.log.Debug("redis_sismember",
			zap.String("key", key),
			zap.Bool("result", ok),
			zap.Duration("duration", dur))
	}
	return ok, err
}

// SCard returns the size of a set
func (c *Client) SCard(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	n, err := c.rdb.SCard(ctx, key).Result()
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_scard",
			zap.String("key", key),
			zap.Duration("duration", dur),
			zap.Error(err))
	} else {
		c.log.Debug("redis_scard",
			zap.String("key", key),
			zap.Int64("size", n),
			zap.Duration("duration", dur))
	}
	return n, err
}

// TxPipeline creates a MULTI/EXEC pipeline for atomic batch operations
func (c *Client) TxPipeline() redis.Pipeliner {
	return c.rdb.TxPipeline()
}
