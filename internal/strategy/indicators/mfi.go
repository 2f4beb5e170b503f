package indicators

import (
	"context"
	"fmt"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// MFIConfig holds configuration for the Money Flow Index indicator
type MFIConfig struct {
	IndicatorConfig
}

// MFI implements the Money Flow Index indicator
type MFI struct {
	BaseIndicator
	config MFIConfig
}

// NewMFI creates a new MFI indicator instance
func NewMFI(config MFIConfig) *MFI {
	return &MFI{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (m *MFI) Name() string {
	return "MFI"
}

// RequiredDataPoints returns Period+1: each money flow compares a bar with its predecessor.
func (m *MFI) RequiredDataPoints() int {
	return m.Config.Period + 1
}

// Series computes MFI for every bar. Values before index Period are NaN.
func (m *MFI) Series(bars []*domain.Bar) []float64 {
	period := m.Config.Period
	out := nanSeries(len(bars))
	if period <= 0 || len(bars) <= period {
		return out
	}

	// Signed raw money flow per bar: positive when typical price rose,
	// negative when it fell, zero when unchanged or for the first bar.
	positive := make([]float64, len(bars))
	negative := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		tp := bars[i].TypicalPrice()
		prev := bars[i-1].TypicalPrice()
		flow := tp * bars[i].Volume
		switch {
		case tp > prev:
			positive[i] = flow
		case tp < prev:
			negative[i] = flow
		}
	}

	var pos, neg float64
	for i := 1; i < len(bars); i++ {
		pos += positive[i]
		neg += negative[i]
		if i > period {
			pos -= positive[i-period]
			neg -= negative[i-period]
		}
		if i >= period {
			out[i] = moneyFlowIndex(pos, neg)
		}
	}
	return out
}

// moneyFlowIndex maps positive and negative flow sums to [0, 100].
func moneyFlowIndex(pos, neg float64) float64 {
	if pos < 0 {
		pos = 0
	}
	if neg < 0 {
		neg = 0
	}
	if pos+neg == 0 {
		return 50 // Neutral if no money flow
	}
	mfi := 100 * pos / (pos + neg)

	// Ensure MFI is within bounds
	if mfi > 100 {
		mfi = 100
	} else if mfi < 0 {
		mfi = 0
	}
	return mfi
}

// Calculate computes the latest MFI value for the given bars
func (m *MFI) Calculate(ctx context.Context, bars []*domain.Bar) (float64, error) {
	if len(bars) < m.RequiredDataPoints() {
		return 0, fmt.Errorf("%w: MFI needs %d bars, got %d", ports.ErrInsufficientData, m.RequiredDataPoints(), len(bars))
	}
	return last(m.Series(bars)), nil
}
