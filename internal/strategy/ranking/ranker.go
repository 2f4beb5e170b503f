package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// Config holds the ranker parameters.
type Config struct {
	ProximityWindow float64 // max spot - strike, e.g., 5.00
	TopN            int     // e.g., 5
}

// DefaultConfig returns the standard ranker parameters.
func DefaultConfig() Config {
	return Config{ProximityWindow: 5.0, TopN: 5}
}

// Ranker selects near-the-money in-the-money calls and orders them by liquidity.
type Ranker struct {
	cfg    Config
	window decimal.Decimal
	logger ports.Logger
}

// New creates a Ranker. logger may be nil.
func New(cfg Config, logger ports.Logger) (*Ranker, error) {
	if cfg.ProximityWindow < 0 {
		return nil, fmt.Errorf("proximity window cannot be negative")
	}
	if cfg.TopN <= 0 {
		return nil, fmt.Errorf("top N must be positive")
	}
	return &Ranker{cfg: cfg, window: decimal.NewFromFloat(cfg.ProximityWindow), logger: logger}, nil
}

// ProximityWindow returns the maximum spot - strike distance kept.
func (r *Ranker) ProximityWindow() float64 {
	return r.cfg.ProximityWindow
}

// Liquidity returns volume / lastPrice, or ports.ErrDivisionUndefined for a zero price.
func Liquidity(volume, lastPrice float64) (float64, error) {
	if lastPrice == 0 {
		return 0, ports.ErrDivisionUndefined
	}
	return volume / lastPrice, nil
}

// PercentITM returns how far below spot the strike sits, as a percentage of spot.
func PercentITM(spot, strike float64) float64 {
	return (spot - strike) / spot * 100
}

// Rank filters contracts to calls with strike < spot and spot - strike within the
// proximity window, scores them, and stable-sorts them by liquidity descending.
// An empty result is a Ranking with NoCandidates, not an error.
func (r *Ranker) Rank(ctx context.Context, contracts []domain.OptionContract, spot float64) (*domain.Ranking, error) {
	if !(spot > 0) || math.IsInf(spot, 1) {
		return nil, fmt.Errorf("%w: spot price must be positive, got %v", ports.ErrInvalidRequest, spot)
	}

	spotDec := decimal.NewFromFloat(spot)
	ranking := &domain.Ranking{Spot: spot}

	for _, c := range contracts {
		if c.Type != domain.OptionCall || math.IsNaN(c.Strike) || math.IsInf(c.Strike, 0) {
			continue
		}
		// Decimal comparison keeps e.g. 580.1 - 575.1 on the inside of a 5.00 window.
		gap := spotDec.Sub(decimal.NewFromFloat(c.Strike))
		if !gap.IsPositive() || gap.GreaterThan(r.window) {
			continue
		}

		liquidity, err := Liquidity(c.Volume, c.LastPrice)
		if err != nil {
			ranking.ExcludedZeroPrice++
			if r.logger != nil {
				r.logger.Debug(ctx, "Excluding contract with zero last price", map[string]interface{}{"contract": c.Symbol})
			}
			continue
		}

		ranking.All = append(ranking.All, domain.RankedContract{
			OptionContract: c,
			Liquidity:      liquidity,
			PercentITM:     PercentITM(spot, c.Strike),
		})
	}

	sort.SliceStable(ranking.All, func(i, j int) bool {
		return ranking.All[i].Liquidity > ranking.All[j].Liquidity
	})

	n := r.cfg.TopN
	if n > len(ranking.All) {
		n = len(ranking.All)
	}
	ranking.Top = ranking.All[:n]
	if n > 0 {
		suggested := ranking.All[0]
		ranking.Suggested = &suggested
	}
	return ranking, nil
}
