package alpacaclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itmScreener/internal/adapters/logger"
	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

type mockAlpacaDataClient struct {
	getBarsFunc func(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

func (m *mockAlpacaDataClient) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	return m.getBarsFunc(symbol, req)
}

func newTestClient(dc dataClient) *Client {
	return &Client{
		dataClient: dc,
		feed:       marketdata.IEX,
		logger:     logger.Nop(),
		now:        func() time.Time { return time.Date(2025, 6, 16, 15, 0, 0, 0, time.UTC) },
	}
}

func TestFetchBars(t *testing.T) {
	ts := time.Date(2025, 6, 16, 13, 30, 0, 0, time.UTC)
	var captured marketdata.GetBarsRequest
	client := newTestClient(&mockAlpacaDataClient{
		getBarsFunc: func(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
			captured = req
			return []marketdata.Bar{
				{Timestamp: ts, Open: 580, High: 581, Low: 579, Close: 580.5, Volume: 1200},
				{Timestamp: ts.Add(5 * time.Minute), Open: 580.5, High: 582, Low: 580, Close: 581.75, Volume: 900},
			}, nil
		},
	})

	bars, err := client.FetchBars(context.Background(), "SPY", domain.Interval{Multiplier: 5, Unit: domain.UnitMinute}, domain.Period{Sessions: 1})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, ts, bars[0].OpenTime)
	assert.Equal(t, 1200.0, bars[0].Volume)
	assert.Equal(t, 581.75, bars[1].Close)
	assert.Equal(t, "5m", bars[1].Interval)

	assert.Equal(t, marketdata.NewTimeFrame(5, marketdata.Min), captured.TimeFrame)
	assert.Equal(t, marketdata.IEX, captured.Feed)
	assert.True(t, captured.Start.Before(captured.End))
}

func TestFetchBars_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"rate limited", errors.New("status code 429: too many requests"), ports.ErrRateLimited},
		{"forbidden", errors.New("status code 403: forbidden"), ports.ErrAuthenticationFailed},
		{"other", errors.New("unexpected"), ports.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(&mockAlpacaDataClient{
				getBarsFunc: func(string, marketdata.GetBarsRequest) ([]marketdata.Bar, error) { return nil, tt.err },
			})
			_, err := client.FetchBars(context.Background(), "SPY", domain.Interval{Multiplier: 1, Unit: domain.UnitHour}, domain.Period{Sessions: 1})
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestFetchBars_CanceledContext(t *testing.T) {
	client := newTestClient(&mockAlpacaDataClient{
		getBarsFunc: func(string, marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
			t.Fatal("request must not be sent")
			return nil, nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchBars(ctx, "SPY", domain.Interval{Multiplier: 5, Unit: domain.UnitMinute}, domain.Period{Sessions: 1})
	assert.ErrorIs(t, err, ports.ErrContextCanceled)
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{Logger: logger.Nop()})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}
