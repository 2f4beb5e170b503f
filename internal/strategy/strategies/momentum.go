package strategies

import (
	"context"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// MomentumPolicy buys when price trades above VWAP with money flowing in.
type MomentumPolicy struct {
	*BaseStrategy
}

// NewMomentumPolicy creates the momentum-only policy.
func NewMomentumPolicy(thresholds Thresholds, logger ports.Logger) *MomentumPolicy {
	return &MomentumPolicy{BaseStrategy: NewBaseStrategy(logger, thresholds)}
}

// Name returns the name of the policy
func (p *MomentumPolicy) Name() string {
	return PolicyMomentum
}

// Evaluate returns MomentumBreakout when price > VWAP and MFI is above the momentum threshold.
func (p *MomentumPolicy) Evaluate(ctx context.Context, snapshot domain.IndicatorSnapshot) domain.Signal {
	sig := domain.Signal{Kind: domain.SignalNone, Snapshot: snapshot}
	if p.isMomentum(snapshot) {
		sig.Kind = domain.SignalMomentumBreakout
	}
	p.debug(ctx, p.Name(), sig)
	return sig
}

// MomentumOrReversalPolicy adds an oversold bounce below the lower VWAP band.
type MomentumOrReversalPolicy struct {
	*BaseStrategy
}

// NewMomentumOrReversalPolicy creates the momentum-or-reversal policy.
func NewMomentumOrReversalPolicy(thresholds Thresholds, logger ports.Logger) *MomentumOrReversalPolicy {
	return &MomentumOrReversalPolicy{BaseStrategy: NewBaseStrategy(logger, thresholds)}
}

// Name returns the name of the policy
func (p *MomentumOrReversalPolicy) Name() string {
	return PolicyMomentumOrReversal
}

// Evaluate checks momentum first so it wins when both rules hold.
func (p *MomentumOrReversalPolicy) Evaluate(ctx context.Context, snapshot domain.IndicatorSnapshot) domain.Signal {
	sig := domain.Signal{Kind: domain.SignalNone, Snapshot: snapshot}
	switch {
	case p.isMomentum(snapshot):
		sig.Kind = domain.SignalMomentumBreakout
	case p.isReversal(snapshot):
		sig.Kind = domain.SignalReversalBounce
	}
	p.debug(ctx, p.Name(), sig)
	return sig
}
