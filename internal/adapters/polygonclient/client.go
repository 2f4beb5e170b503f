package polygonclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	polygonrest "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"golang.org/x/time/rate"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

const (
	maxExpirations    = 8
	contractPageLimit = 1000
	chainPageLimit    = 250
	aggsPageLimit     = 50000
)

// Client implements ports.BarSource and ports.OptionChainSource on the Polygon REST API.
type Client struct {
	rest    *polygonrest.Client
	limiter *rate.Limiter
	logger  ports.Logger
	loc     *time.Location
	now     func() time.Time
}

// Config holds configuration specific to the Polygon client adapter.
type Config struct {
	APIKey            string
	RequestsPerMinute int           // e.g., 5 on the free tier
	HTTPTimeout       time.Duration // e.g., 10s
	Location          *time.Location
	Logger            ports.Logger
}

// New creates a new Polygon client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Polygon client")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Polygon API key is required", ports.ErrConfigurationError)
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 5
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Client{
		rest:    polygonrest.NewWithClient(cfg.APIKey, &http.Client{Timeout: cfg.HTTPTimeout}),
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute),
		logger:  cfg.Logger,
		loc:     cfg.Location,
		now:     time.Now,
	}, nil
}

// wait paces requests to stay under the plan's rate limit.
func (c *Client) wait(ctx context.Context, op string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return mapError(fmt.Errorf("rate limiter: %w", err), op)
	}
	return nil
}

// mapError translates Polygon and transport errors into ports errors.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}

	var apiErr *models.ErrorResponse
	if errors.As(err, &apiErr) {
		var mapped error
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			mapped = ports.ErrAuthenticationFailed
		case apiErr.StatusCode == http.StatusNotFound:
			mapped = ports.ErrNotFound
		case apiErr.StatusCode == http.StatusTooManyRequests:
			mapped = ports.ErrRateLimited
		case apiErr.StatusCode == http.StatusBadRequest:
			mapped = ports.ErrInvalidRequest
		case apiErr.StatusCode >= 500:
			mapped = ports.ErrProviderUnavailable
		default:
			mapped = ports.ErrUnknown
		}
		return fmt.Errorf("%s failed: %w: %w", op, mapped, err)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s failed: %w: %w", op, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s operation canceled: %w: %w", op, ports.ErrContextCanceled, err)
	case strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "no such host"):
		return fmt.Errorf("%s failed: %w: %w", op, ports.ErrConnectionFailed, err)
	default:
		return fmt.Errorf("%s failed: %w: %w", op, ports.ErrUnknown, err)
	}
}

func timespan(unit domain.IntervalUnit) models.Timespan {
	switch unit {
	case domain.UnitHour:
		return models.Hour
	case domain.UnitDay:
		return models.Day
	default:
		return models.Minute
	}
}

// FetchBars returns bars covering the period, oldest first. Session trimming is left to the caller.
func (c *Client) FetchBars(ctx context.Context, symbol string, interval domain.Interval, period domain.Period) ([]*domain.Bar, error) {
	op := "FetchBars"
	if err := c.wait(ctx, op); err != nil {
		return nil, err
	}

	from, to := period.Window(c.now())
	params := &models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: interval.Multiplier,
		Timespan:   timespan(interval.Unit),
		From:       models.Millis(from),
		To:         models.Millis(to),
	}
	lim := aggsPageLimit
	asc := models.Asc
	adj := true
	params.Limit = &lim
	params.Order = &asc
	params.Adjusted = &adj

	iter := c.rest.ListAggs(ctx, params)
	var bars []*domain.Bar
	for iter.Next() {
		bars = append(bars, translateAgg(iter.Item(), symbol, interval))
	}
	if err := iter.Err(); err != nil {
		c.logger.Error(ctx, err, "Polygon aggregates request failed", map[string]interface{}{"symbol": symbol})
		return nil, mapError(err, op)
	}

	c.logger.Debug(ctx, "Fetched bars from Polygon", map[string]interface{}{
		"symbol": symbol, "interval": interval.String(), "count": len(bars),
	})
	return bars, nil
}

// FetchExpirations returns the nearest call expirations on or after today, ascending.
func (c *Client) FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	op := "FetchExpirations"
	if err := c.wait(ctx, op); err != nil {
		return nil, err
	}

	now := c.now().In(c.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	underlying := symbol
	contractType := "call"
	fromDate := models.Date(today)
	sortBy := models.Sort("expiration_date")
	asc := models.Asc
	lim := contractPageLimit
	params := &models.ListOptionsContractsParams{
		UnderlyingTickerEQ: &underlying,
		ContractType:       &contractType,
		ExpirationDateGTE:  &fromDate,
		Sort:               &sortBy,
		Order:              &asc,
		Limit:              &lim,
	}

	iter := c.rest.ListOptionsContracts(ctx, params)
	var dates []time.Time
	seen := make(map[string]bool)
	for iter.Next() {
		exp := time.Time(iter.Item().ExpirationDate)
		key := exp.Format("2006-01-02")
		if !seen[key] {
			seen[key] = true
			dates = append(dates, exp)
		}
		if len(seen) >= maxExpirations {
			break
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Error(ctx, err, "Polygon options contracts request failed", map[string]interface{}{"symbol": symbol})
		return nil, mapError(err, op)
	}

	dates = distinctExpirations(dates, today)
	if len(dates) == 0 {
		return nil, fmt.Errorf("%s failed: %w for %s", op, ports.ErrNoExpirations, symbol)
	}
	return dates, nil
}

// FetchOptionChain returns every contract of the chain snapshot for one expiration.
func (c *Client) FetchOptionChain(ctx context.Context, symbol string, expiration time.Time) ([]domain.OptionContract, error) {
	op := "FetchOptionChain"
	if err := c.wait(ctx, op); err != nil {
		return nil, err
	}

	exp := models.Date(expiration)
	lim := chainPageLimit
	params := &models.ListOptionsChainParams{
		UnderlyingAsset:  symbol,
		ExpirationDateEQ: &exp,
		Limit:            &lim,
	}

	iter := c.rest.ListOptionsChainSnapshot(ctx, params)
	var contracts []domain.OptionContract
	for iter.Next() {
		contracts = append(contracts, translateChainSnapshot(iter.Item(), symbol))
	}
	if err := iter.Err(); err != nil {
		c.logger.Error(ctx, err, "Polygon option chain request failed", map[string]interface{}{
			"symbol": symbol, "expiration": expiration.Format("2006-01-02"),
		})
		return nil, mapError(err, op)
	}
	if len(contracts) == 0 {
		return nil, fmt.Errorf("%s failed: %w for %s %s", op, ports.ErrEmptyChain, symbol, expiration.Format("2006-01-02"))
	}
	return contracts, nil
}

func translateAgg(a models.Agg, symbol string, interval domain.Interval) *domain.Bar {
	open := time.Time(a.Timestamp).UTC()
	return &domain.Bar{
		OpenTime:  open,
		CloseTime: open.Add(interval.Duration()),
		Symbol:    symbol,
		Interval:  interval.String(),
		Open:      a.Open,
		High:      a.High,
		Low:       a.Low,
		Close:     a.Close,
		Volume:    a.Volume,
	}
}

func translateChainSnapshot(s models.OptionContractSnapshot, underlying string) domain.OptionContract {
	// Last trade first, then the day's close, then the prior close.
	last := s.LastTrade.Price
	if last == 0 {
		last = s.Day.Close
	}
	if last == 0 {
		last = s.Day.PreviousClose
	}
	return domain.OptionContract{
		Symbol:            s.Details.Ticker,
		Underlying:        underlying,
		Expiration:        time.Time(s.Details.ExpirationDate),
		Type:              domain.ResolveOptionType(s.Details.Ticker, s.Details.ContractType),
		Strike:            s.Details.StrikePrice,
		LastPrice:         last,
		ImpliedVolatility: s.ImpliedVolatility,
		Volume:            s.Day.Volume,
		OpenInterest:      s.OpenInterest,
	}
}

// distinctExpirations drops duplicates and dates before today and sorts ascending.
func distinctExpirations(dates []time.Time, today time.Time) []time.Time {
	seen := make(map[string]bool, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		key := d.Format("2006-01-02")
		if seen[key] || d.Before(today) {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
