package indicators

import (
	"context"
	"fmt"
	"math"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// EngineConfig holds the parameters of the indicator engine.
type EngineConfig struct {
	MinBars        int             // e.g., 20
	VWAPMode       domain.VWAPMode // cumulative or rolling
	VWAPWindow     int             // e.g., 7 (rolling mode only)
	ATRPeriod      int             // e.g., 20
	ATRMultiplier  float64         // e.g., 0.2
	BandMultiplier float64         // e.g., 4
	MFIPeriod      int             // e.g., 14
}

// DefaultEngineConfig returns the screener's standard parameters.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinBars:        20,
		VWAPMode:       domain.VWAPCumulative,
		VWAPWindow:     7,
		ATRPeriod:      20,
		ATRMultiplier:  0.2,
		BandMultiplier: 4,
		MFIPeriod:      14,
	}
}

// Engine computes VWAP, ATR bands and MFI for a bar series.
type Engine struct {
	cfg  EngineConfig
	vwap *VWAP
	atr  *ATR
	mfi  *MFI
}

// NewEngine creates an indicator engine. MinBars is raised if any indicator needs more history.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.ATRPeriod <= 0 || cfg.MFIPeriod <= 0 {
		return nil, fmt.Errorf("indicator periods must be positive")
	}
	if cfg.VWAPMode != domain.VWAPCumulative && cfg.VWAPMode != domain.VWAPRolling {
		return nil, fmt.Errorf("unsupported VWAP mode: %s", cfg.VWAPMode)
	}
	if cfg.VWAPMode == domain.VWAPRolling && cfg.VWAPWindow <= 0 {
		return nil, fmt.Errorf("rolling VWAP window must be positive")
	}
	if cfg.ATRMultiplier < 0 || cfg.BandMultiplier < 0 {
		return nil, fmt.Errorf("band multipliers cannot be negative")
	}

	e := &Engine{
		cfg:  cfg,
		vwap: NewVWAP(VWAPConfig{Mode: cfg.VWAPMode, Window: cfg.VWAPWindow}),
		atr:  NewATR(ATRConfig{IndicatorConfig: IndicatorConfig{Period: cfg.ATRPeriod}, Smoothing: SmoothingSimple}),
		mfi:  NewMFI(MFIConfig{IndicatorConfig: IndicatorConfig{Period: cfg.MFIPeriod}}),
	}
	for _, ind := range []Indicator{e.vwap, e.atr, e.mfi} {
		if n := ind.RequiredDataPoints(); n > e.cfg.MinBars {
			e.cfg.MinBars = n
		}
	}
	return e, nil
}

// RequiredDataPoints returns the minimum number of bars needed by Compute.
func (e *Engine) RequiredDataPoints() int {
	return e.cfg.MinBars
}

// bandOffset is the distance of each band from VWAP.
func (e *Engine) bandOffset(atr float64) float64 {
	return atr * e.cfg.ATRMultiplier * e.cfg.BandMultiplier
}

// Series computes every indicator for every bar.
func (e *Engine) Series(ctx context.Context, bars []*domain.Bar) (*domain.IndicatorSeries, error) {
	if err := domain.ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidRequest, err)
	}
	vwap := e.vwap.Series(bars)
	atr := e.atr.Series(bars)
	upper := nanSeries(len(bars))
	lower := nanSeries(len(bars))
	for i := range bars {
		if math.IsNaN(vwap[i]) || math.IsNaN(atr[i]) {
			continue
		}
		off := e.bandOffset(atr[i])
		upper[i] = vwap[i] + off
		lower[i] = vwap[i] - off
	}
	return &domain.IndicatorSeries{
		VWAP:      vwap,
		ATR:       atr,
		UpperBand: upper,
		LowerBand: lower,
		MFI:       e.mfi.Series(bars),
	}, nil
}

// Compute returns the latest indicator values. Fewer than RequiredDataPoints bars,
// or a latest value that is still undefined, yields ports.ErrInsufficientData.
func (e *Engine) Compute(ctx context.Context, bars []*domain.Bar) (*domain.IndicatorSnapshot, error) {
	if len(bars) < e.cfg.MinBars {
		return nil, fmt.Errorf("%w: need %d bars, got %d", ports.ErrInsufficientData, e.cfg.MinBars, len(bars))
	}
	series, err := e.Series(ctx, bars)
	if err != nil {
		return nil, err
	}

	i := len(bars) - 1
	vwap, atr, mfi := series.VWAP[i], series.ATR[i], series.MFI[i]
	if math.IsNaN(vwap) {
		return nil, fmt.Errorf("%w: VWAP undefined (zero volume)", ports.ErrInsufficientData)
	}
	if math.IsNaN(mfi) {
		return nil, fmt.Errorf("%w: MFI undefined", ports.ErrInsufficientData)
	}

	snap := &domain.IndicatorSnapshot{
		Time:     bars[i].OpenTime,
		Price:    bars[i].Close,
		VWAP:     vwap,
		MFI:      mfi,
		VWAPMode: e.cfg.VWAPMode,
	}
	if !math.IsNaN(atr) {
		snap.ATR = atr
		snap.UpperBand = series.UpperBand[i]
		snap.LowerBand = series.LowerBand[i]
		snap.HasBands = true
	}
	return snap, nil
}
