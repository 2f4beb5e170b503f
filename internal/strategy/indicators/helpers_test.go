package indicators

import (
	"math/rand"
	"time"

	"itmScreener/internal/domain"
)

var testStart = time.Date(2025, 6, 13, 13, 30, 0, 0, time.UTC)

// flatBar builds a bar whose high, low and close all equal tp.
func flatBar(i int, tp, volume float64) *domain.Bar {
	return &domain.Bar{
		OpenTime: testStart.Add(time.Duration(i) * 5 * time.Minute),
		Open:     tp, High: tp, Low: tp, Close: tp,
		Volume: volume,
	}
}

func ohlcv(i int, high, low, close, volume float64) *domain.Bar {
	return &domain.Bar{
		OpenTime: testStart.Add(time.Duration(i) * 5 * time.Minute),
		Open:     close, High: high, Low: low, Close: close,
		Volume: volume,
	}
}

// randomWalk returns n bars of a deterministic random walk around base.
func randomWalk(n int, base float64, seed int64) []*domain.Bar {
	r := rand.New(rand.NewSource(seed))
	bars := make([]*domain.Bar, 0, n)
	price := base
	for i := 0; i < n; i++ {
		open := price
		price += (r.Float64() - 0.5) * 2
		high := max(open, price) + r.Float64()
		low := min(open, price) - r.Float64()
		bars = append(bars, &domain.Bar{
			OpenTime: testStart.Add(time.Duration(i) * 5 * time.Minute),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    price,
			Volume:   float64(1000 + r.Intn(50000)),
		})
	}
	return bars
}
