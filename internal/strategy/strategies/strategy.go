package strategies

import (
	"context"
	"fmt"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// Policy names accepted by NewPolicy.
const (
	PolicyMomentum           = "momentum"
	PolicyMomentumOrReversal = "momentum_or_reversal"
)

// Thresholds holds the MFI levels used by the buy rules.
type Thresholds struct {
	MomentumMFI float64 // e.g., 50; momentum needs MFI strictly above
	ReversalMFI float64 // e.g., 30; reversal needs MFI strictly below
}

// DefaultThresholds returns the standard MFI levels.
func DefaultThresholds() Thresholds {
	return Thresholds{MomentumMFI: 50, ReversalMFI: 30}
}

// BaseStrategy provides common functionality for policies
type BaseStrategy struct {
	logger     ports.Logger
	thresholds Thresholds
}

// NewBaseStrategy creates a new base strategy instance
func NewBaseStrategy(logger ports.Logger, thresholds Thresholds) *BaseStrategy {
	return &BaseStrategy{
		logger:     logger,
		thresholds: thresholds,
	}
}

func (b *BaseStrategy) isMomentum(s domain.IndicatorSnapshot) bool {
	return s.Price > s.VWAP && s.MFI > b.thresholds.MomentumMFI
}

func (b *BaseStrategy) isReversal(s domain.IndicatorSnapshot) bool {
	return s.HasBands && s.Price < s.LowerBand && s.MFI < b.thresholds.ReversalMFI
}

func (b *BaseStrategy) debug(ctx context.Context, policy string, sig domain.Signal) {
	if b.logger == nil {
		return
	}
	b.logger.Debug(ctx, "Signal evaluated", map[string]interface{}{
		"policy":    policy,
		"signal":    string(sig.Kind),
		"price":     sig.Snapshot.Price,
		"vwap":      sig.Snapshot.VWAP,
		"lowerBand": sig.Snapshot.LowerBand,
		"mfi":       sig.Snapshot.MFI,
	})
}

// NewPolicy returns the signal policy registered under name.
func NewPolicy(name string, thresholds Thresholds, logger ports.Logger) (ports.SignalPolicy, error) {
	if thresholds.MomentumMFI < 0 || thresholds.MomentumMFI > 100 || thresholds.ReversalMFI < 0 || thresholds.ReversalMFI > 100 {
		return nil, fmt.Errorf("%w: MFI thresholds must be within [0, 100]", ports.ErrInvalidRequest)
	}
	switch name {
	case PolicyMomentum:
		return NewMomentumPolicy(thresholds, logger), nil
	case PolicyMomentumOrReversal:
		return NewMomentumOrReversalPolicy(thresholds, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown signal policy %q", ports.ErrInvalidRequest, name)
	}
}
