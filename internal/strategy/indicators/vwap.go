package indicators

import (
	"context"
	"fmt"
	"math"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// VWAPConfig holds configuration for the VWAP indicator
type VWAPConfig struct {
	Mode   domain.VWAPMode
	Window int // trailing bars in rolling mode
}

// VWAP implements the volume weighted average price over typical price
type VWAP struct {
	config VWAPConfig
}

// NewVWAP creates a new VWAP indicator instance
func NewVWAP(config VWAPConfig) *VWAP {
	if config.Mode == "" {
		config.Mode = domain.VWAPCumulative
	}
	return &VWAP{config: config}
}

// Name returns the name of the indicator
func (v *VWAP) Name() string {
	if v.config.Mode == domain.VWAPRolling {
		return fmt.Sprintf("VWAP(%d)", v.config.Window)
	}
	return "VWAP"
}

// RequiredDataPoints returns the minimum number of bars needed for calculation
func (v *VWAP) RequiredDataPoints() int {
	if v.config.Mode == domain.VWAPRolling {
		return v.config.Window
	}
	return 1
}

// Series computes VWAP for every bar. In rolling mode indices below Window-1
// are NaN; any bar whose volume denominator is zero is NaN.
func (v *VWAP) Series(bars []*domain.Bar) []float64 {
	out := nanSeries(len(bars))
	if v.config.Mode == domain.VWAPRolling {
		w := v.config.Window
		if w <= 0 {
			return out
		}
		// Each window is summed directly.
		for i := w - 1; i < len(bars); i++ {
			var pv, vol float64
			for _, b := range bars[i-w+1 : i+1] {
				pv += b.TypicalPrice() * b.Volume
				vol += b.Volume
			}
			if vol > 0 {
				out[i] = pv / vol
			}
		}
		return out
	}

	var pv, vol float64
	for i, b := range bars {
		pv += b.TypicalPrice() * b.Volume
		vol += b.Volume
		if vol > 0 {
			out[i] = pv / vol
		}
	}
	return out
}

// Calculate computes the latest VWAP value for the given bars
func (v *VWAP) Calculate(ctx context.Context, bars []*domain.Bar) (float64, error) {
	if len(bars) < v.RequiredDataPoints() || len(bars) == 0 {
		return 0, fmt.Errorf("%w: %s needs %d bars, got %d", ports.ErrInsufficientData, v.Name(), v.RequiredDataPoints(), len(bars))
	}
	value := last(v.Series(bars))
	if math.IsNaN(value) {
		return 0, fmt.Errorf("%w: zero volume in %s window", ports.ErrInsufficientData, v.Name())
	}
	return value, nil
}
