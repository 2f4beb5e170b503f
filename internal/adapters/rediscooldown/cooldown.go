package rediscooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"itmScreener/internal/ports"
)

const keyPrefix = "itm-screener:alert:"

// setNXClient is the subset of redis.Cmdable used here.
type setNXClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cooldown suppresses repeat alerts with SET NX and a TTL. It implements ports.AlertCooldown.
type Cooldown struct {
	client setNXClient
	now    func() time.Time
}

// Options holds the Redis connection settings.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*Cooldown, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s failed: %w: %w", opts.Addr, ports.ErrConnectionFailed, err)
	}
	return &Cooldown{client: client, now: time.Now}, client, nil
}

// Acquire returns true when no alert with key was sent within ttl, and claims the slot.
func (c *Cooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, keyPrefix+key, c.now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown acquire failed: %w: %w", ports.ErrConnectionFailed, err)
	}
	return ok, nil
}

// Release deletes the slot for key so the next run can deliver it.
func (c *Cooldown) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("cooldown release failed: %w: %w", ports.ErrConnectionFailed, err)
	}
	return nil
}
