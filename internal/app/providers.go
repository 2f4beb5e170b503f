package app

import (
	"fmt"
	"time"

	"itmScreener/config"
	"itmScreener/internal/adapters/alpacaclient"
	"itmScreener/internal/adapters/binanceclient"
	"itmScreener/internal/adapters/polygonclient"
	"itmScreener/internal/adapters/resilience"
	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// ResilienceConfig converts the network settings into executor parameters.
func ResilienceConfig(cfg *config.Config) resilience.Config {
	return resilience.Config{
		Timeout:            cfg.RequestTimeout,
		MaxAttempts:        cfg.RetryMaxAttempts,
		InitialBackoff:     cfg.RetryInitialBackoff,
		MaxBackoff:         cfg.RetryMaxBackoff,
		BreakerMaxFailures: uint32(cfg.BreakerMaxFailures),
		BreakerOpenTimeout: cfg.BreakerOpenTimeout,
	}
}

// NewPolygon builds the Polygon client used for the option chain and, by default, bars.
func NewPolygon(cfg *config.Config, logger ports.Logger, loc *time.Location) (*polygonclient.Client, error) {
	return polygonclient.New(polygonclient.Config{
		APIKey:            cfg.PolygonAPIKey,
		RequestsPerMinute: cfg.PolygonRequestsPerMinute,
		HTTPTimeout:       cfg.RequestTimeout,
		Location:          loc,
		Logger:            logger,
	})
}

// NewBarSource returns the configured bar provider behind a retrying, breaker-guarded executor.
// polygon may be nil unless BARS_PROVIDER is polygon.
func NewBarSource(cfg *config.Config, polygon *polygonclient.Client, logger ports.Logger, observers ...resilience.StateObserver) (ports.BarSource, error) {
	var src ports.BarSource
	switch cfg.BarsProvider {
	case config.ProviderPolygon:
		if polygon == nil {
			return nil, fmt.Errorf("polygon client is required for bars: %w", ports.ErrConfigurationError)
		}
		src = polygon
	case config.ProviderAlpaca:
		c, err := alpacaclient.New(alpacaclient.Config{
			APIKey:    cfg.AlpacaAPIKey,
			APISecret: cfg.AlpacaAPISecret,
			Feed:      cfg.AlpacaFeed,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		src = c
	case config.ProviderBinance:
		c, err := binanceclient.New(binanceclient.Config{
			APIKey:    cfg.BinanceAPIKey,
			SecretKey: cfg.BinanceAPISecret,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		src = c
	default:
		return nil, fmt.Errorf("unknown bars provider %q: %w", cfg.BarsProvider, ports.ErrConfigurationError)
	}

	exec := resilience.NewExecutor(cfg.BarsProvider+"-bars", ResilienceConfig(cfg), logger, observers...)
	return resilience.WrapBarSource(src, exec), nil
}

// TrimsSessions reports whether fetched bars should be cut to regular exchange sessions.
// Binance trades around the clock and daily bars have no intraday session to trim.
func TrimsSessions(cfg *config.Config) bool {
	if cfg.BarsProvider == config.ProviderBinance {
		return false
	}
	return cfg.BarInterval.Unit != domain.UnitDay
}
