package rediscooldown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itmScreener/internal/ports"
)

// memoryClient mimics SET NX semantics in memory.
type memoryClient struct {
	keys map[string]time.Duration
	err  error
}

func (m *memoryClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if m.err != nil {
		return redis.NewBoolResult(false, m.err)
	}
	if _, ok := m.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.keys[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *memoryClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.keys[k]; ok {
			delete(m.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestCooldown_Acquire(t *testing.T) {
	mem := &memoryClient{keys: map[string]time.Duration{}}
	c := &Cooldown{client: mem, now: time.Now}
	ctx := context.Background()

	ok, err := c.Acquire(ctx, "SPY:momentum_breakout:O:SPY250620C00583000", 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Minute, mem.keys[keyPrefix+"SPY:momentum_breakout:O:SPY250620C00583000"])

	ok, err = c.Acquire(ctx, "SPY:momentum_breakout:O:SPY250620C00583000", 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second alert inside the cooldown is suppressed")

	ok, err = c.Acquire(ctx, "SPY:reversal_bounce:O:SPY250620C00583000", 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "different signal kind has its own cooldown")
}

func TestCooldown_AcquireError(t *testing.T) {
	c := &Cooldown{client: &memoryClient{err: errors.New("connection reset")}, now: time.Now}
	ok, err := c.Acquire(context.Background(), "k", time.Minute)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
}

func TestCooldown_ReleaseAllowsResend(t *testing.T) {
	mem := &memoryClient{keys: map[string]time.Duration{}}
	c := &Cooldown{client: mem, now: time.Now}
	ctx := context.Background()
	key := "SPY:reversal_bounce:O:SPY250620C00575000"

	ok, err := c.Acquire(ctx, key, 30*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Release(ctx, key))
	assert.NotContains(t, mem.keys, keyPrefix+key)

	ok, err = c.Acquire(ctx, key, 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released slot can be claimed again")

	require.NoError(t, c.Release(ctx, "never-claimed"), "releasing a missing key is not an error")
}

func TestCooldown_ReleaseError(t *testing.T) {
	c := &Cooldown{client: &memoryClient{err: errors.New("connection reset")}, now: time.Now}
	err := c.Release(context.Background(), "k")
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
}
