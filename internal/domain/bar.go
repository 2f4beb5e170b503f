package domain

import (
	"fmt"
	"time"
)

// Bar represents a single OHLCV data point of an intraday series.
type Bar struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Ticker symbol
	Interval  string    // Bar interval (e.g., "5m")
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// TypicalPrice returns (high + low + close) / 3.
func (b *Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// ValidateSeries checks that bars are non-nil, ordered by OpenTime ascending and free of duplicate timestamps.
func ValidateSeries(bars []*Bar) error {
	for i, b := range bars {
		if b == nil {
			return fmt.Errorf("bar %d is nil", i)
		}
		if i == 0 {
			continue
		}
		prev := bars[i-1].OpenTime
		if b.OpenTime.Equal(prev) {
			return fmt.Errorf("duplicate bar timestamp %s at index %d", b.OpenTime.Format(time.RFC3339), i)
		}
		if b.OpenTime.Before(prev) {
			return fmt.Errorf("bars out of order at index %d: %s before %s", i, b.OpenTime.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
	}
	return nil
}
