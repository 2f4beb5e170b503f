package indicators

import (
	"context"
	"fmt"
	"math"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// Smoothing selects how true ranges are averaged.
type Smoothing string

const (
	// SmoothingSimple averages the last Period true ranges.
	SmoothingSimple Smoothing = "simple"
	// SmoothingWilder seeds with a simple average and then applies Wilder's recursion.
	SmoothingWilder Smoothing = "wilder"
)

// ATRConfig holds configuration for the Average True Range indicator
type ATRConfig struct {
	IndicatorConfig
	Smoothing Smoothing
}

// ATR implements the Average True Range indicator
type ATR struct {
	BaseIndicator
	config ATRConfig
}

// NewATR creates a new Average True Range indicator instance
func NewATR(config ATRConfig) *ATR {
	if config.Smoothing == "" {
		config.Smoothing = SmoothingSimple
	}
	return &ATR{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (a *ATR) Name() string {
	return "ATR"
}

// TrueRanges computes the true range of every bar. The first bar has no
// previous close, so its true range is just high - low.
func TrueRanges(bars []*domain.Bar) []float64 {
	trueRanges := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			trueRanges[0] = b.High - b.Low
			continue
		}
		prevClose := bars[i-1].Close

		// True Range is the greatest of:
		// 1. Current High - Current Low
		// 2. |Current High - Previous Close|
		// 3. |Current Low - Previous Close|
		tr1 := b.High - b.Low
		tr2 := math.Abs(b.High - prevClose)
		tr3 := math.Abs(b.Low - prevClose)

		trueRanges[i] = math.Max(tr1, math.Max(tr2, tr3))
	}
	return trueRanges
}

// Series computes ATR for every bar. Values before index Period-1 are NaN.
func (a *ATR) Series(bars []*domain.Bar) []float64 {
	period := a.Config.Period
	out := nanSeries(len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}
	trueRanges := TrueRanges(bars)

	switch a.config.Smoothing {
	case SmoothingWilder:
		atr := 0.0
		for i := 0; i < period; i++ {
			atr += trueRanges[i]
		}
		atr /= float64(period)
		out[period-1] = atr
		for i := period; i < len(bars); i++ {
			atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
			out[i] = atr
		}
	default:
		sum := 0.0
		for i, tr := range trueRanges {
			sum += tr
			if i >= period {
				sum -= trueRanges[i-period]
			}
			if i >= period-1 {
				out[i] = sum / float64(period)
			}
		}
	}
	return out
}

// Calculate computes the Average True Range value for the given bars
func (a *ATR) Calculate(ctx context.Context, bars []*domain.Bar) (float64, error) {
	if len(bars) < a.Config.Period {
		return 0, fmt.Errorf("%w: ATR needs %d bars, got %d", ports.ErrInsufficientData, a.Config.Period, len(bars))
	}
	return last(a.Series(bars)), nil
}
