package ports

import (
	"context"
	"time"

	"itmScreener/internal/domain"
)

// BarSource supplies OHLCV series for a symbol.
type BarSource interface {
	// FetchBars retrieves bars for symbol at the given interval covering period,
	// ordered by open time ascending.
	FetchBars(ctx context.Context, symbol string, interval domain.Interval, period domain.Period) ([]*domain.Bar, error)
}

// OptionChainSource supplies listed expirations and per-expiration chains.
type OptionChainSource interface {
	// FetchExpirations returns upcoming expiration dates, nearest first.
	FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error)

	// FetchOptionChain returns every contract listed for the expiration.
	FetchOptionChain(ctx context.Context, symbol string, expiration time.Time) ([]domain.OptionContract, error)
}
