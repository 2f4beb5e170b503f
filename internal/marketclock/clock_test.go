package marketclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itmScreener/internal/domain"
)

func newYorkGate(t *testing.T) *Gate {
	t.Helper()
	g, err := NewGate("")
	require.NoError(t, err)
	return g
}

func TestGate_IsOpen(t *testing.T) {
	g := newYorkGate(t)
	ny := g.Location()

	tests := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"before the open", time.Date(2025, 6, 16, 9, 29, 59, 0, ny), false},
		{"at the open", time.Date(2025, 6, 16, 9, 30, 0, 0, ny), true},
		{"midday", time.Date(2025, 6, 16, 12, 0, 0, 0, ny), true},
		{"one second before close", time.Date(2025, 6, 16, 15, 59, 59, 0, ny), true},
		{"at the close", time.Date(2025, 6, 16, 16, 0, 0, 0, ny), false},
		{"saturday", time.Date(2025, 6, 14, 12, 0, 0, 0, ny), false},
		{"sunday", time.Date(2025, 6, 15, 12, 0, 0, 0, ny), false},
		{"utc input converted", time.Date(2025, 6, 16, 14, 0, 0, 0, time.UTC), true}, // 10:00 EDT
		{"utc evening is after close", time.Date(2025, 6, 16, 20, 30, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.open, g.IsOpen(tt.at))
		})
	}
}

func TestNewGate_InvalidTimezone(t *testing.T) {
	_, err := NewGate("Mars/Olympus")
	assert.Error(t, err)
}

func TestAlwaysOpen(t *testing.T) {
	assert.True(t, AlwaysOpen{}.IsOpen(time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC)))
}

func TestGate_TrimSessions(t *testing.T) {
	g := newYorkGate(t)
	ny := g.Location()

	var bars []*domain.Bar
	add := func(day, hour, minute int) {
		bars = append(bars, &domain.Bar{OpenTime: time.Date(2025, 6, day, hour, minute, 0, 0, ny)})
	}
	add(12, 15, 55) // Thursday
	add(13, 8, 0)   // Friday pre-market
	add(13, 9, 30)
	add(13, 15, 55)
	add(13, 17, 0) // after hours
	add(16, 9, 30) // Monday
	add(16, 9, 35)

	latest := g.TrimSessions(bars, 1)
	require.Len(t, latest, 2)
	assert.Equal(t, "2025-06-16", g.SessionDate(latest[0].OpenTime))
	assert.Equal(t, 9, latest[0].OpenTime.In(ny).Hour())

	two := g.TrimSessions(bars, 2)
	require.Len(t, two, 4)
	assert.Equal(t, "2025-06-13", g.SessionDate(two[0].OpenTime))
	assert.Equal(t, 30, two[0].OpenTime.In(ny).Minute(), "pre-market bar is dropped")

	assert.Len(t, g.TrimSessions(bars, 10), 5)
	assert.Nil(t, g.TrimSessions(bars, 0))
}
