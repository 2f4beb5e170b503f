package indicators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

func TestMFI_Calculate(t *testing.T) {
	mixed := []*domain.Bar{
		flatBar(0, 10, 100),
		flatBar(1, 11, 100),   // +1100
		flatBar(2, 10.5, 200), // -2100
		flatBar(3, 12, 100),   // +1200
		flatBar(4, 13, 100),   // +1300
	}

	tests := []struct {
		name     string
		period   int
		bars     []*domain.Bar
		expected float64
	}{
		{
			name:     "mixed flows over the last three bars",
			period:   3,
			bars:     mixed,
			expected: 100 * 2500.0 / 4600.0,
		},
		{
			name:     "window ending one bar earlier",
			period:   3,
			bars:     mixed[:4],
			expected: 100 * 2300.0 / 4400.0,
		},
		{
			name:     "only rising prices",
			period:   2,
			bars:     []*domain.Bar{flatBar(0, 10, 100), flatBar(1, 11, 100), flatBar(2, 12, 100)},
			expected: 100,
		},
		{
			name:     "only falling prices",
			period:   2,
			bars:     []*domain.Bar{flatBar(0, 12, 100), flatBar(1, 11, 100), flatBar(2, 10, 100)},
			expected: 0,
		},
		{
			name:     "unchanged prices are neutral",
			period:   2,
			bars:     []*domain.Bar{flatBar(0, 10, 100), flatBar(1, 10, 100), flatBar(2, 10, 100)},
			expected: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mfi := NewMFI(MFIConfig{IndicatorConfig: IndicatorConfig{Period: tt.period}})
			value, err := mfi.Calculate(context.Background(), tt.bars)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, value, 1e-6)
		})
	}
}

func TestMFI_InsufficientData(t *testing.T) {
	mfi := NewMFI(MFIConfig{IndicatorConfig: IndicatorConfig{Period: 14}})
	_, err := mfi.Calculate(context.Background(), randomWalk(14, 100, 1))
	assert.ErrorIs(t, err, ports.ErrInsufficientData)
}

func TestMFI_AlwaysBounded(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		series := NewMFI(MFIConfig{IndicatorConfig: IndicatorConfig{Period: 14}}).Series(randomWalk(80, 500, seed))
		for i, v := range series[14:] {
			assert.GreaterOrEqual(t, v, 0.0, "seed %d index %d", seed, i+14)
			assert.LessOrEqual(t, v, 100.0, "seed %d index %d", seed, i+14)
		}
	}
}
