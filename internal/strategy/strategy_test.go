package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
	"itmScreener/internal/strategy/indicators"
	"itmScreener/internal/strategy/strategies"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

// stubEngine returns a fixed snapshot.
type stubEngine struct {
	snap *domain.IndicatorSnapshot
	err  error
}

func (s *stubEngine) RequiredDataPoints() int { return 3 }

func (s *stubEngine) Compute(ctx context.Context, bars []*domain.Bar) (*domain.IndicatorSnapshot, error) {
	return s.snap, s.err
}

func (s *stubEngine) Series(ctx context.Context, bars []*domain.Bar) (*domain.IndicatorSeries, error) {
	return &domain.IndicatorSeries{}, s.err
}

func bars(n int) []*domain.Bar {
	start := time.Date(2025, 6, 13, 13, 30, 0, 0, time.UTC)
	out := make([]*domain.Bar, n)
	for i := range out {
		out[i] = &domain.Bar{OpenTime: start.Add(time.Duration(i) * 5 * time.Minute), High: 1, Low: 1, Close: 1, Volume: 1}
	}
	return out
}

func TestNew(t *testing.T) {
	engine := &stubEngine{}
	policy := strategies.NewMomentumPolicy(strategies.DefaultThresholds(), nil)

	tests := []struct {
		name    string
		engine  ports.IndicatorEngine
		policy  ports.SignalPolicy
		logger  ports.Logger
		wantErr bool
	}{
		{name: "valid", engine: engine, policy: policy, logger: &mockLogger{}},
		{name: "nil logger", engine: engine, policy: policy, wantErr: true},
		{name: "nil engine", policy: policy, logger: &mockLogger{}, wantErr: true},
		{name: "nil policy", engine: engine, logger: &mockLogger{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.engine, tt.policy, tt.logger)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestStrategy_Evaluate(t *testing.T) {
	policy := strategies.NewMomentumOrReversalPolicy(strategies.DefaultThresholds(), nil)

	t.Run("reversal fires and is logged", func(t *testing.T) {
		logger := &mockLogger{}
		engine := &stubEngine{snap: &domain.IndicatorSnapshot{
			Price: 579, VWAP: 585, LowerBand: 581, UpperBand: 589, MFI: 25, HasBands: true,
		}}
		s, err := New(engine, policy, logger)
		require.NoError(t, err)

		sig, err := s.Evaluate(context.Background(), bars(5))
		require.NoError(t, err)
		assert.Equal(t, domain.SignalReversalBounce, sig.Kind)
		assert.Contains(t, logger.infoMsgs, "Buy conditions met")
	})

	t.Run("too few bars", func(t *testing.T) {
		logger := &mockLogger{}
		s, err := New(&stubEngine{}, policy, logger)
		require.NoError(t, err)

		sig, err := s.Evaluate(context.Background(), bars(2))
		assert.ErrorIs(t, err, ports.ErrInsufficientData)
		assert.False(t, sig.IsBuy())
		assert.Contains(t, logger.debugMsgs, "Not enough bar data for strategy evaluation")
	})

	t.Run("engine error is returned", func(t *testing.T) {
		engineErr := errors.New("boom")
		s, err := New(&stubEngine{err: engineErr}, policy, &mockLogger{})
		require.NoError(t, err)

		_, err = s.Evaluate(context.Background(), bars(5))
		assert.ErrorIs(t, err, engineErr)
	})
}

func TestStrategy_EvaluateWithRealEngine(t *testing.T) {
	engine, err := indicators.NewEngine(indicators.DefaultEngineConfig())
	require.NoError(t, err)
	s, err := New(engine, strategies.NewMomentumPolicy(strategies.DefaultThresholds(), nil), &mockLogger{})
	require.NoError(t, err)

	_, err = s.Evaluate(context.Background(), bars(19))
	assert.ErrorIs(t, err, ports.ErrInsufficientData)
	assert.Equal(t, 20, s.RequiredDataPoints())
}
