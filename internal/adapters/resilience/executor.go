package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"itmScreener/internal/ports"
)

// Config holds timeout, retry and circuit breaker settings for one dependency.
type Config struct {
	Timeout            time.Duration // per attempt
	MaxAttempts        int           // total attempts including the first
	InitialBackoff     time.Duration
	MaxBackoff         time.Duration
	BreakerMaxFailures uint32        // consecutive failures that open the breaker
	BreakerOpenTimeout time.Duration // period of the open state before half-open
}

// DefaultConfig returns the standard network call settings.
func DefaultConfig() Config {
	return Config{
		Timeout:            10 * time.Second,
		MaxAttempts:        3,
		InitialBackoff:     500 * time.Millisecond,
		MaxBackoff:         5 * time.Second,
		BreakerMaxFailures: 5,
		BreakerOpenTimeout: 30 * time.Second,
	}
}

// StateObserver is notified when a breaker changes state.
type StateObserver func(name string, from, to gobreaker.State)

// Executor runs calls to one external dependency with a per-attempt timeout,
// bounded exponential backoff and a circuit breaker.
type Executor struct {
	name    string
	cfg     Config
	breaker *gobreaker.CircuitBreaker[any]
	logger  ports.Logger
}

// NewExecutor creates an Executor named after the dependency it protects.
func NewExecutor(name string, cfg Config, logger ports.Logger, observers ...StateObserver) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = DefaultConfig().BreakerMaxFailures
	}
	e := &Executor{name: name, cfg: cfg, logger: logger}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		// Caller mistakes say nothing about the dependency's health.
		IsSuccessful: func(err error) bool {
			return err == nil || ports.IsPermanent(err) || ports.IsDataUnavailable(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.Warn(context.Background(), "Circuit breaker state change", map[string]interface{}{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
			}
			for _, observe := range observers {
				observe(name, from, to)
			}
		},
	}
	e.breaker = gobreaker.NewCircuitBreaker[any](settings)
	return e
}

// Name returns the dependency name.
func (e *Executor) Name() string {
	return e.name
}

// State returns the breaker state.
func (e *Executor) State() gobreaker.State {
	return e.breaker.State()
}

func (e *Executor) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.InitialBackoff
	b.MaxInterval = e.cfg.MaxBackoff
	b.MaxElapsedTime = 0 // bounded by attempts
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.cfg.MaxAttempts-1)), ctx)
}

// Do runs fn until it succeeds, fails permanently, or attempts run out.
func (e *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		_, err := e.breaker.Execute(func() (any, error) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, e.runAttempt(ctx, fn)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(fmt.Errorf("%s %s failed: %w: circuit breaker %s", e.name, op, ports.ErrProviderUnavailable, err))
		}
		if ctx.Err() != nil {
			return backoff.Permanent(fmt.Errorf("%s %s failed: %w: %w", e.name, op, ports.ErrContextCanceled, ctx.Err()))
		}
		if ports.IsPermanent(err) || ports.IsDataUnavailable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		if e.logger != nil {
			e.logger.Warn(ctx, "Retrying after failed attempt", map[string]interface{}{
				"dependency":  e.name,
				"operation":   op,
				"attempt":     attempt,
				"maxAttempts": e.cfg.MaxAttempts,
				"wait":        wait.String(),
				"error":       err.Error(),
			})
		}
	}

	return backoff.RetryNotify(operation, e.newBackOff(ctx), notify)
}

// runAttempt bounds a single attempt by the configured timeout.
func (e *Executor) runAttempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if e.cfg.Timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	err := fn(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ports.ErrTimeout) {
		return fmt.Errorf("%w after %s: %w", ports.ErrTimeout, e.cfg.Timeout, err)
	}
	return err
}

// Call is Do for functions returning a value.
func Call[T any](ctx context.Context, e *Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
