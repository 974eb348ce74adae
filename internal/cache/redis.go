package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/paystub/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Client wraps the go-redis client with health checking.
type Client struct {
	*redis.Client
}

// NewRedis connects to the configured Redis. It returns nil when no address
// is configured; callers fall back to in-process implementations.
func NewRedis(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*Client, error) {
	if !cfg.Redis.Enabled() {
		log.Info("redis not configured, using in-process stores")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	wrapped := &Client{Client: client}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := wrapped.Health(ctx); err != nil {
				return fmt.Errorf("redis ping failed: %w", err)
			}
			log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
			return nil
		},
		OnStop: func(context.Context) error {
			return wrapped.Close()
		},
	})

	return wrapped, nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// Raw returns the underlying client, or nil when Redis is not configured.
func (c *Client) Raw() *redis.Client {
	if c == nil {
		return nil
	}
	return c.Client
}
