package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

func fastConfig() Config {
	return Config{
		Timeout:            50 * time.Millisecond,
		MaxAttempts:        3,
		InitialBackoff:     time.Millisecond,
		MaxBackoff:         2 * time.Millisecond,
		BreakerMaxFailures: 10,
		BreakerOpenTimeout: time.Minute,
	}
}

func TestExecutor_RetriesTransientFailures(t *testing.T) {
	e := NewExecutor("test", fastConfig(), nil)
	calls := 0

	err := e.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return ports.ErrConnectionFailed
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecutor_GivesUpAfterMaxAttempts(t *testing.T) {
	e := NewExecutor("test", fastConfig(), nil)
	calls := 0

	err := e.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return ports.ErrRateLimited
	})

	assert.ErrorIs(t, err, ports.ErrRateLimited)
	assert.Equal(t, 3, calls)
}

func TestExecutor_PermanentErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"invalid request", ports.ErrInvalidRequest},
		{"auth", ports.ErrAuthenticationFailed},
		{"no expirations", ports.ErrNoExpirations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExecutor("test", fastConfig(), nil)
			calls := 0
			err := e.Do(context.Background(), "op", func(ctx context.Context) error {
				calls++
				return tt.err
			})
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestExecutor_AttemptTimeout(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 1
	e := NewExecutor("test", cfg, nil)

	err := e.Do(context.Background(), "op", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, ports.ErrTimeout)
}

func TestExecutor_CanceledContext(t *testing.T) {
	e := NewExecutor("test", fastConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := e.Do(ctx, "op", func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestExecutor_BreakerOpens(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 1
	cfg.BreakerMaxFailures = 2

	var transitions []gobreaker.State
	e := NewExecutor("flaky", cfg, nil, func(name string, from, to gobreaker.State) {
		transitions = append(transitions, to)
	})

	failing := func(ctx context.Context) error { return ports.ErrConnectionFailed }
	_ = e.Do(context.Background(), "op", failing)
	_ = e.Do(context.Background(), "op", failing)
	assert.Equal(t, gobreaker.StateOpen, e.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	calls := 0
	err := e.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ports.ErrProviderUnavailable)
	assert.Equal(t, 0, calls)
}

func TestExecutor_PermanentErrorsDoNotTripBreaker(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerMaxFailures = 1
	e := NewExecutor("test", cfg, nil)

	_ = e.Do(context.Background(), "op", func(ctx context.Context) error { return ports.ErrNotFound })
	assert.Equal(t, gobreaker.StateClosed, e.State())
}

func TestCall_ReturnsValue(t *testing.T) {
	e := NewExecutor("test", fastConfig(), nil)
	calls := 0

	v, err := Call(context.Background(), e, "op", func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

type flakyBars struct {
	failures int
	calls    int
}

func (f *flakyBars) FetchBars(ctx context.Context, symbol string, interval domain.Interval, period domain.Period) ([]*domain.Bar, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, ports.ErrConnectionFailed
	}
	return []*domain.Bar{{Symbol: symbol}}, nil
}

func TestWrapBarSource(t *testing.T) {
	src := &flakyBars{failures: 1}
	wrapped := WrapBarSource(src, NewExecutor("bars", fastConfig(), nil))

	bars, err := wrapped.FetchBars(context.Background(), "SPY", domain.Interval{Multiplier: 5, Unit: domain.UnitMinute}, domain.Period{Sessions: 1})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "SPY", bars[0].Symbol)
	assert.Equal(t, 2, src.calls)
}
