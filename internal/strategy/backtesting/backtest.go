package backtesting

import (
	"context"
	"fmt"
	"time"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// Evaluator is the signal source replayed over history.
type Evaluator interface {
	RequiredDataPoints() int
	Evaluate(ctx context.Context, bars []*domain.Bar) (domain.Signal, error)
}

// ReplayConfig holds configuration for a signal replay
type ReplayConfig struct {
	Symbol       string
	ForwardBars  int            // horizon of the forward return, in bars
	CooldownBars int            // same-kind signals within this many bars are collapsed
	Location     *time.Location // session dates are taken in this zone
}

// SignalEvent is one buy signal observed during replay.
type SignalEvent struct {
	Time          time.Time
	Session       string
	Kind          domain.SignalKind
	Price         float64
	VWAP          float64
	LowerBand     float64
	MFI           float64
	ForwardReturn float64 // fractional change of close after ForwardBars
	HasForward    bool    // false when the session ended before the horizon
}

// SessionSummary counts what one session produced.
type SessionSummary struct {
	Date      string
	Bars      int
	Evaluated int
	Signals   map[domain.SignalKind]int
}

// ReplayResult holds the results of a replay
type ReplayResult struct {
	Events   []SignalEvent
	Sessions []SessionSummary
	Stats    map[domain.SignalKind]*SignalStats
}

// Replay evaluates the strategy bar by bar, restarting at every session so a
// cumulative VWAP anchors at the session open just like a live run.
func Replay(ctx context.Context, eval Evaluator, bars []*domain.Bar, cfg ReplayConfig) (*ReplayResult, error) {
	if err := domain.ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}
	if len(bars) < eval.RequiredDataPoints() {
		return nil, fmt.Errorf("%w: need %d bars, got %d", ports.ErrInsufficientData, eval.RequiredDataPoints(), len(bars))
	}
	if cfg.ForwardBars <= 0 {
		cfg.ForwardBars = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	result := &ReplayResult{}
	for _, session := range splitSessions(bars, cfg.Location) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("replay canceled: %w: %w", ports.ErrContextCanceled, err)
		}
		summary, events, err := replaySession(ctx, eval, session, cfg)
		if err != nil {
			return nil, err
		}
		result.Sessions = append(result.Sessions, summary)
		result.Events = append(result.Events, events...)
	}

	result.Stats = AnalyzeSignals(result.Events)
	return result, nil
}

func replaySession(ctx context.Context, eval Evaluator, session []*domain.Bar, cfg ReplayConfig) (SessionSummary, []SignalEvent, error) {
	date := session[0].OpenTime.In(cfg.Location).Format("2006-01-02")
	summary := SessionSummary{Date: date, Bars: len(session), Signals: make(map[domain.SignalKind]int)}

	var events []SignalEvent
	lastAt := make(map[domain.SignalKind]int)
	for i := eval.RequiredDataPoints() - 1; i < len(session); i++ {
		sig, err := eval.Evaluate(ctx, session[:i+1])
		if err != nil {
			if ports.IsDataUnavailable(err) {
				continue
			}
			return summary, nil, fmt.Errorf("evaluate %s bar %d: %w", date, i, err)
		}
		summary.Evaluated++
		if !sig.IsBuy() {
			continue
		}
		if prev, ok := lastAt[sig.Kind]; ok && cfg.CooldownBars > 0 && i-prev <= cfg.CooldownBars {
			continue
		}
		lastAt[sig.Kind] = i
		summary.Signals[sig.Kind]++

		ev := SignalEvent{
			Time:      session[i].OpenTime,
			Session:   date,
			Kind:      sig.Kind,
			Price:     sig.Snapshot.Price,
			VWAP:      sig.Snapshot.VWAP,
			LowerBand: sig.Snapshot.LowerBand,
			MFI:       sig.Snapshot.MFI,
		}
		if j := i + cfg.ForwardBars; j < len(session) && session[i].Close != 0 {
			ev.ForwardReturn = (session[j].Close - session[i].Close) / session[i].Close
			ev.HasForward = true
		}
		events = append(events, ev)
	}
	return summary, events, nil
}

// splitSessions groups consecutive bars by their local calendar date.
func splitSessions(bars []*domain.Bar, loc *time.Location) [][]*domain.Bar {
	var sessions [][]*domain.Bar
	current := ""
	for _, b := range bars {
		day := b.OpenTime.In(loc).Format("2006-01-02")
		if day != current {
			sessions = append(sessions, nil)
			current = day
		}
		sessions[len(sessions)-1] = append(sessions[len(sessions)-1], b)
	}
	return sessions
}
