package strategy

import (
	"context"
	"fmt"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// Strategy pairs an indicator engine with a signal policy.
type Strategy struct {
	engine ports.IndicatorEngine
	policy ports.SignalPolicy
	logger ports.Logger
}

// New creates a new Strategy instance.
func New(engine ports.IndicatorEngine, policy ports.SignalPolicy, logger ports.Logger) (*Strategy, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if engine == nil || policy == nil {
		return nil, fmt.Errorf("indicator engine and signal policy are required")
	}
	return &Strategy{engine: engine, policy: policy, logger: logger}, nil
}

// RequiredDataPoints returns the minimum number of bars needed for evaluation.
func (s *Strategy) RequiredDataPoints() int {
	return s.engine.RequiredDataPoints()
}

// PolicyName returns the name of the configured signal policy.
func (s *Strategy) PolicyName() string {
	return s.policy.Name()
}

// Evaluate computes the latest indicator snapshot and applies the policy to it.
// A short or degenerate series yields ports.ErrInsufficientData.
func (s *Strategy) Evaluate(ctx context.Context, bars []*domain.Bar) (domain.Signal, error) {
	requiredPoints := s.RequiredDataPoints()
	if len(bars) < requiredPoints {
		s.logger.Debug(ctx, "Not enough bar data for strategy evaluation",
			map[string]interface{}{"available": len(bars), "required": requiredPoints})
		return domain.Signal{Kind: domain.SignalNone}, fmt.Errorf("%w: need %d bars, got %d", ports.ErrInsufficientData, requiredPoints, len(bars))
	}

	snap, err := s.engine.Compute(ctx, bars)
	if err != nil {
		return domain.Signal{Kind: domain.SignalNone}, err
	}

	sig := s.policy.Evaluate(ctx, *snap)
	if sig.IsBuy() {
		s.logger.Info(ctx, "Buy conditions met", map[string]interface{}{
			"signal":    string(sig.Kind),
			"policy":    s.policy.Name(),
			"price":     snap.Price,
			"vwap":      snap.VWAP,
			"upperBand": snap.UpperBand,
			"lowerBand": snap.LowerBand,
			"mfi":       snap.MFI,
		})
		return sig, nil
	}

	s.logger.Debug(ctx, "Buy conditions not met", map[string]interface{}{
		"policy":   s.policy.Name(),
		"price":    snap.Price,
		"vwap":     snap.VWAP,
		"mfi":      snap.MFI,
		"hasBands": snap.HasBands,
	})
	return sig, nil
}
