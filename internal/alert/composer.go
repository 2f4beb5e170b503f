package alert

import (
	"fmt"
	"time"

	"itmScreener/internal/domain"
)

// Composer builds alert payloads from a signal and the suggested contract.
type Composer struct {
	now func() time.Time
}

// NewComposer creates a Composer stamping alerts with the current time.
func NewComposer() *Composer {
	return &Composer{now: time.Now}
}

// Headline returns the one-line summary for a signal kind.
func Headline(kind domain.SignalKind, symbol string) string {
	switch kind {
	case domain.SignalMomentumBreakout:
		return fmt.Sprintf("Momentum breakout on %s: price above VWAP with money flowing in", symbol)
	case domain.SignalReversalBounce:
		return fmt.Sprintf("Reversal bounce on %s: price below the lower VWAP band and oversold", symbol)
	default:
		return fmt.Sprintf("No buy signal on %s", symbol)
	}
}

// Compose returns nil unless the signal is a buy and a suggested contract exists.
func (c *Composer) Compose(symbol string, sig domain.Signal, suggested *domain.RankedContract, expiration string) *domain.Alert {
	if !sig.IsBuy() || suggested == nil {
		return nil
	}

	contract := *suggested
	contract.Type = domain.ResolveOptionType(contract.Symbol, string(contract.Type))

	snap := sig.Snapshot
	return &domain.Alert{
		Kind:       sig.Kind,
		Headline:   Headline(sig.Kind, symbol),
		Symbol:     symbol,
		Price:      snap.Price,
		VWAP:       snap.VWAP,
		MFI:        snap.MFI,
		UpperBand:  snap.UpperBand,
		LowerBand:  snap.LowerBand,
		HasBands:   snap.HasBands,
		Expiration: expiration,
		Contract:   contract,
		CreatedAt:  c.now().UTC(),
	}
}
