package alpacaclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// dataClient is the subset of the Alpaca market data client used here.
type dataClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Client implements ports.BarSource on Alpaca market data.
type Client struct {
	dataClient dataClient
	feed       marketdata.Feed
	logger     ports.Logger
	now        func() time.Time
}

// Config holds configuration specific to the Alpaca client adapter.
type Config struct {
	APIKey    string
	APISecret string
	Feed      string // "iex" (free) or "sip"
	Logger    ports.Logger
}

// New creates a new Alpaca bar source.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Alpaca client")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: Alpaca API key and secret are required", ports.ErrConfigurationError)
	}
	feed := cfg.Feed
	if feed == "" {
		feed = marketdata.IEX
	}

	return &Client{
		dataClient: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
		}),
		feed:   feed,
		logger: cfg.Logger,
		now:    time.Now,
	}, nil
}

func timeFrame(interval domain.Interval) marketdata.TimeFrame {
	switch interval.Unit {
	case domain.UnitHour:
		return marketdata.NewTimeFrame(interval.Multiplier, marketdata.Hour)
	case domain.UnitDay:
		return marketdata.NewTimeFrame(interval.Multiplier, marketdata.Day)
	default:
		return marketdata.NewTimeFrame(interval.Multiplier, marketdata.Min)
	}
}

// FetchBars returns bars covering the period, oldest first.
func (c *Client) FetchBars(ctx context.Context, symbol string, interval domain.Interval, period domain.Period) ([]*domain.Bar, error) {
	op := "FetchBars"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s operation canceled: %w: %w", op, ports.ErrContextCanceled, err)
	}

	start, end := period.Window(c.now())
	bars, err := c.dataClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  timeFrame(interval),
		Start:      start,
		End:        end,
		Feed:       c.feed,
		Adjustment: marketdata.Split,
	})
	if err != nil {
		c.logger.Error(ctx, err, "Alpaca bars request failed", map[string]interface{}{"symbol": symbol})
		return nil, mapError(err, op)
	}

	result := make([]*domain.Bar, 0, len(bars))
	for _, b := range bars {
		open := b.Timestamp.UTC()
		result = append(result, &domain.Bar{
			OpenTime:  open,
			CloseTime: open.Add(interval.Duration()),
			Symbol:    symbol,
			Interval:  interval.String(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    float64(b.Volume),
		})
	}

	c.logger.Debug(ctx, "Fetched bars from Alpaca", map[string]interface{}{
		"symbol": symbol, "interval": interval.String(), "count": len(result),
	})
	return result, nil
}

// mapError classifies Alpaca errors. The client reports HTTP status only in the message text.
func mapError(err error, op string) error {
	msg := strings.ToLower(err.Error())
	var mapped error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		mapped = ports.ErrTimeout
	case errors.Is(err, context.Canceled):
		mapped = ports.ErrContextCanceled
	case strings.Contains(msg, "429") || strings.Contains(msg, "too many requests"):
		mapped = ports.ErrRateLimited
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "forbidden"):
		mapped = ports.ErrAuthenticationFailed
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		mapped = ports.ErrConnectionFailed
	default:
		mapped = ports.ErrUnknown
	}
	return fmt.Errorf("%s failed: %w: %w", op, mapped, err)
}
