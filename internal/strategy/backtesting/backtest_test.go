package backtesting

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"itmScreener/internal/adapters/logger"
	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
	"itmScreener/internal/strategy"
	"itmScreener/internal/strategy/indicators"
	"itmScreener/internal/strategy/strategies"
)

// scriptedEvaluator reads the signal from the last bar's Volume: 1 momentum, 2 reversal.
type scriptedEvaluator struct {
	required int
	err      error
	calls    int
}

func (m *scriptedEvaluator) RequiredDataPoints() int {
	return m.required
}

func (m *scriptedEvaluator) Evaluate(ctx context.Context, bars []*domain.Bar) (domain.Signal, error) {
	m.calls++
	if m.err != nil {
		return domain.Signal{Kind: domain.SignalNone}, m.err
	}
	last := bars[len(bars)-1]
	kind := domain.SignalNone
	switch last.Volume {
	case 1:
		kind = domain.SignalMomentumBreakout
	case 2:
		kind = domain.SignalReversalBounce
	}
	return domain.Signal{Kind: kind, Snapshot: domain.IndicatorSnapshot{Price: last.Close}}, nil
}

func session(day int, closes []float64, codes []float64) []*domain.Bar {
	start := time.Date(2025, 6, day, 13, 30, 0, 0, time.UTC)
	bars := make([]*domain.Bar, len(closes))
	for i := range closes {
		bars[i] = &domain.Bar{
			OpenTime: start.Add(time.Duration(i) * 5 * time.Minute),
			Symbol:   "SPY",
			Interval: "5m",
			Close:    closes[i],
			Volume:   codes[i],
		}
	}
	return bars
}

func twoSessions() []*domain.Bar {
	bars := session(16, []float64{100, 101, 102, 103, 104}, []float64{0, 1, 0, 0, 2})
	return append(bars, session(17, []float64{100, 99, 98, 97, 96}, []float64{0, 1, 1, 0, 0})...)
}

func TestReplay(t *testing.T) {
	tests := []struct {
		name             string
		cooldown         int
		expectedEvents   int
		expectedMomentum int
		expectedLosses   int
	}{
		{name: "every signal counted", cooldown: 0, expectedEvents: 4, expectedMomentum: 3, expectedLosses: 2},
		{name: "cooldown collapses repeats", cooldown: 1, expectedEvents: 3, expectedMomentum: 2, expectedLosses: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := &scriptedEvaluator{required: 2}
			result, err := Replay(context.Background(), eval, twoSessions(), ReplayConfig{
				Symbol: "SPY", ForwardBars: 2, CooldownBars: tt.cooldown, Location: time.UTC,
			})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if len(result.Sessions) != 2 {
				t.Fatalf("Expected 2 sessions, got %d", len(result.Sessions))
			}
			if result.Sessions[0].Date != "2025-06-16" || result.Sessions[0].Evaluated != 4 {
				t.Errorf("Unexpected first session summary: %+v", result.Sessions[0])
			}
			if len(result.Events) != tt.expectedEvents {
				t.Errorf("Expected %d events, got %d", tt.expectedEvents, len(result.Events))
			}

			m := result.Stats[domain.SignalMomentumBreakout]
			if m == nil {
				t.Fatal("Expected momentum stats")
			}
			if m.Signals != tt.expectedMomentum {
				t.Errorf("Expected %d momentum signals, got %d", tt.expectedMomentum, m.Signals)
			}
			if m.Wins != 1 || m.Losses != tt.expectedLosses {
				t.Errorf("Expected 1 win and %d losses, got %d/%d", tt.expectedLosses, m.Wins, m.Losses)
			}

			r := result.Stats[domain.SignalReversalBounce]
			if r == nil || r.Signals != 1 || r.Measured != 0 {
				t.Errorf("Reversal at the session close has no forward return: %+v", r)
			}
		})
	}
}

func TestReplay_ForwardReturnStaysInSession(t *testing.T) {
	eval := &scriptedEvaluator{required: 2}
	result, err := Replay(context.Background(), eval, twoSessions(), ReplayConfig{ForwardBars: 2})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	first := result.Events[0]
	expected := (103.0 - 101.0) / 101.0
	if !first.HasForward || math.Abs(first.ForwardReturn-expected) > 1e-12 {
		t.Errorf("Expected forward return %v, got %v (has=%v)", expected, first.ForwardReturn, first.HasForward)
	}
	if result.Events[1].HasForward {
		t.Error("Forward return must not cross into the next session")
	}
}

func TestReplay_Errors(t *testing.T) {
	bars := twoSessions()
	swapped := append([]*domain.Bar{}, bars...)
	swapped[0], swapped[1] = swapped[1], swapped[0]

	tests := []struct {
		name    string
		eval    *scriptedEvaluator
		bars    []*domain.Bar
		wantErr error
	}{
		{"not enough bars", &scriptedEvaluator{required: 20}, bars, ports.ErrInsufficientData},
		{"unordered bars", &scriptedEvaluator{required: 2}, swapped, ports.ErrInvalidRequest},
		{"evaluator fault", &scriptedEvaluator{required: 2, err: errors.New("boom")}, bars, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Replay(context.Background(), tt.eval, tt.bars, ReplayConfig{})
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestReplay_SkipsUnavailableBars(t *testing.T) {
	eval := &scriptedEvaluator{required: 2, err: ports.ErrInsufficientData}
	result, err := Replay(context.Background(), eval, twoSessions(), ReplayConfig{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Events) != 0 || result.Sessions[0].Evaluated != 0 {
		t.Errorf("Expected nothing evaluated, got %+v", result.Sessions[0])
	}
}

func TestReplay_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Replay(ctx, &scriptedEvaluator{required: 2}, twoSessions(), ReplayConfig{})
	if !errors.Is(err, ports.ErrContextCanceled) {
		t.Errorf("Expected ErrContextCanceled, got %v", err)
	}
}

func TestReplay_WithRealStrategy(t *testing.T) {
	engine, err := indicators.NewEngine(indicators.DefaultEngineConfig())
	if err != nil {
		t.Fatal(err)
	}
	policy := strategies.NewMomentumOrReversalPolicy(strategies.DefaultThresholds(), nil)
	strat, err := strategy.New(engine, policy, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(7))
	var bars []*domain.Bar
	for day := 16; day <= 18; day++ {
		start := time.Date(2025, 6, day, 13, 30, 0, 0, time.UTC)
		price := 580.0
		for i := 0; i < 78; i++ {
			price += rng.Float64() - 0.5
			bars = append(bars, &domain.Bar{
				OpenTime: start.Add(time.Duration(i) * 5 * time.Minute),
				Open:     price, High: price + 0.3, Low: price - 0.3, Close: price,
				Volume: 1000 + rng.Float64()*500,
			})
		}
	}

	result, err := Replay(context.Background(), strat, bars, ReplayConfig{ForwardBars: 6})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(result.Sessions))
	}
	for _, s := range result.Sessions {
		if s.Evaluated != 78-19 {
			t.Errorf("Session %s: expected %d evaluations, got %d", s.Date, 78-19, s.Evaluated)
		}
	}
}
