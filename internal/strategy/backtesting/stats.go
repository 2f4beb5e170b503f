package backtesting

import (
	"math"
	"sort"

	"itmScreener/internal/domain"
)

// SignalStats summarises the forward returns of one signal kind.
type SignalStats struct {
	Kind                 domain.SignalKind
	Signals              int
	Measured             int // signals with a forward return
	Wins                 int
	Losses               int
	WinRate              float64
	AverageReturn        float64
	AverageWin           float64
	AverageLoss          float64
	BestReturn           float64
	WorstReturn          float64
	Expectancy           float64
	SharpeRatio          float64
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	ReturnsBySession     map[string]float64
}

// AnalyzeSignals calculates per-kind statistics from replay events
func AnalyzeSignals(events []SignalEvent) map[domain.SignalKind]*SignalStats {
	sorted := make([]SignalEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	stats := make(map[domain.SignalKind]*SignalStats)
	returns := make(map[domain.SignalKind][]float64)
	streakWins := make(map[domain.SignalKind]int)
	streakLosses := make(map[domain.SignalKind]int)

	for _, ev := range sorted {
		s, ok := stats[ev.Kind]
		if !ok {
			s = &SignalStats{Kind: ev.Kind, ReturnsBySession: make(map[string]float64)}
			stats[ev.Kind] = s
		}
		s.Signals++
		if !ev.HasForward {
			continue
		}

		r := ev.ForwardReturn
		if s.Measured == 0 {
			s.BestReturn, s.WorstReturn = r, r
		}
		s.Measured++
		s.BestReturn = math.Max(s.BestReturn, r)
		s.WorstReturn = math.Min(s.WorstReturn, r)
		s.ReturnsBySession[ev.Session] += r
		returns[ev.Kind] = append(returns[ev.Kind], r)

		if r > 0 {
			s.Wins++
			s.AverageWin = (s.AverageWin*float64(s.Wins-1) + r) / float64(s.Wins)
			streakWins[ev.Kind]++
			streakLosses[ev.Kind] = 0
		} else {
			s.Losses++
			s.AverageLoss = (s.AverageLoss*float64(s.Losses-1) + r) / float64(s.Losses)
			streakLosses[ev.Kind]++
			streakWins[ev.Kind] = 0
		}
		if streakWins[ev.Kind] > s.MaxConsecutiveWins {
			s.MaxConsecutiveWins = streakWins[ev.Kind]
		}
		if streakLosses[ev.Kind] > s.MaxConsecutiveLosses {
			s.MaxConsecutiveLosses = streakLosses[ev.Kind]
		}
	}

	for kind, s := range stats {
		rs := returns[kind]
		if len(rs) == 0 {
			continue
		}
		s.WinRate = float64(s.Wins) / float64(s.Measured)
		s.AverageReturn = mean(rs)
		s.Expectancy = s.WinRate*s.AverageWin + (1-s.WinRate)*s.AverageLoss
		s.SharpeRatio = sharpeRatio(rs)
	}
	return stats
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sharpeRatio is mean / sample standard deviation with a zero risk-free rate.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	var variance float64
	for _, r := range returns {
		variance += (r - m) * (r - m)
	}
	variance /= float64(len(returns) - 1)
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}
	return m / stdDev
}
