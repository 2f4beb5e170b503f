package domain

import "time"

// IndicatorSnapshot holds the latest indicator values for a series.
type IndicatorSnapshot struct {
	Time      time.Time
	Price     float64
	VWAP      float64
	UpperBand float64
	LowerBand float64
	ATR       float64
	MFI       float64
	HasBands  bool
	VWAPMode  VWAPMode
}

// IndicatorSeries holds per-bar indicator values aligned with the input bars.
// Entries are NaN where the indicator is not yet defined.
type IndicatorSeries struct {
	VWAP      []float64
	ATR       []float64
	UpperBand []float64
	LowerBand []float64
	MFI       []float64
}

// Signal is the evaluated buy rule together with the snapshot that produced it.
type Signal struct {
	Kind     SignalKind
	Snapshot IndicatorSnapshot
}

// IsBuy reports whether any buy rule fired.
func (s Signal) IsBuy() bool {
	return s.Kind != SignalNone && s.Kind != ""
}
