package resilience

import (
	"context"
	"time"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// BarSource wraps a ports.BarSource with an Executor.
type BarSource struct {
	next ports.BarSource
	exec *Executor
}

// WrapBarSource decorates next.
func WrapBarSource(next ports.BarSource, exec *Executor) *BarSource {
	return &BarSource{next: next, exec: exec}
}

// FetchBars implements ports.BarSource.
func (b *BarSource) FetchBars(ctx context.Context, symbol string, interval domain.Interval, period domain.Period) ([]*domain.Bar, error) {
	return Call(ctx, b.exec, "FetchBars", func(ctx context.Context) ([]*domain.Bar, error) {
		return b.next.FetchBars(ctx, symbol, interval, period)
	})
}

// OptionChainSource wraps a ports.OptionChainSource with an Executor.
type OptionChainSource struct {
	next ports.OptionChainSource
	exec *Executor
}

// WrapOptionChainSource decorates next.
func WrapOptionChainSource(next ports.OptionChainSource, exec *Executor) *OptionChainSource {
	return &OptionChainSource{next: next, exec: exec}
}

// FetchExpirations implements ports.OptionChainSource.
func (o *OptionChainSource) FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	return Call(ctx, o.exec, "FetchExpirations", func(ctx context.Context) ([]time.Time, error) {
		return o.next.FetchExpirations(ctx, symbol)
	})
}

// FetchOptionChain implements ports.OptionChainSource.
func (o *OptionChainSource) FetchOptionChain(ctx context.Context, symbol string, expiration time.Time) ([]domain.OptionContract, error) {
	return Call(ctx, o.exec, "FetchOptionChain", func(ctx context.Context) ([]domain.OptionContract, error) {
		return o.next.FetchOptionChain(ctx, symbol, expiration)
	})
}

// Notifier wraps a ports.Notifier with an Executor.
type Notifier struct {
	next ports.Notifier
	exec *Executor
}

// WrapNotifier decorates next.
func WrapNotifier(next ports.Notifier, exec *Executor) *Notifier {
	return &Notifier{next: next, exec: exec}
}

// Name returns the wrapped notifier's name.
func (n *Notifier) Name() string {
	return n.next.Name()
}

// SendText implements ports.Notifier.
func (n *Notifier) SendText(ctx context.Context, alert *domain.Alert) error {
	return n.exec.Do(ctx, "SendText", func(ctx context.Context) error {
		return n.next.SendText(ctx, alert)
	})
}

// SendImage implements ports.Notifier.
func (n *Notifier) SendImage(ctx context.Context, alert *domain.Alert, image []byte) error {
	return n.exec.Do(ctx, "SendImage", func(ctx context.Context) error {
		return n.next.SendImage(ctx, alert, image)
	})
}
