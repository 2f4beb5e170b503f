package ports

import (
	"context"

	"itmScreener/internal/domain"
)

// IndicatorEngine turns a bar series into indicator values.
type IndicatorEngine interface {
	// RequiredDataPoints returns the minimum number of bars needed.
	RequiredDataPoints() int

	// Compute returns the latest indicator snapshot for bars.
	Compute(ctx context.Context, bars []*domain.Bar) (*domain.IndicatorSnapshot, error)

	// Series returns per-bar indicator values for bars.
	Series(ctx context.Context, bars []*domain.Bar) (*domain.IndicatorSeries, error)
}

// SignalPolicy defines the buy rule applied to an indicator snapshot.
type SignalPolicy interface {
	// Name returns the policy identifier.
	Name() string

	// Evaluate classifies the snapshot.
	Evaluate(ctx context.Context, snapshot domain.IndicatorSnapshot) domain.Signal
}

// ContractRanker filters and orders option contracts around the spot price.
type ContractRanker interface {
	Rank(ctx context.Context, contracts []domain.OptionContract, spot float64) (*domain.Ranking, error)
}
