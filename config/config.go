package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"itmScreener/internal/adapters/logger" // Import the logger package for LogLevel
	"itmScreener/internal/domain"
	"itmScreener/internal/marketclock"
	"itmScreener/internal/ports"
)

// Bar providers accepted by BARS_PROVIDER.
const (
	ProviderPolygon = "polygon"
	ProviderAlpaca  = "alpaca"
	ProviderBinance = "binance"
)

// Notification transports accepted by NOTIFY_TRANSPORT.
const (
	TransportTelegram = "telegram"
	TransportKafka    = "kafka"
)

// Config holds all application configuration.
type Config struct {
	// Market data
	Symbol      string
	BarInterval domain.Interval
	BarPeriod   domain.Period
	MinBars     int

	// Indicators
	VWAPMode       domain.VWAPMode
	VWAPWindow     int     // e.g., 7 (rolling mode only)
	ATRPeriod      int     // e.g., 20
	ATRMultiplier  float64 // e.g., 0.2
	BandMultiplier float64 // e.g., 4
	MFIPeriod      int     // e.g., 14

	// Signal and ranking
	SignalPolicy    string
	MomentumMFI     float64 // e.g., 50
	ReversalMFI     float64 // e.g., 30
	ProximityWindow float64 // e.g., 5.00
	TopN            int     // e.g., 5

	// Market hours
	MarketHoursGate bool
	MarketTimezone  string

	// Notification
	NotifyMode       domain.NotifyMode
	NotifyTransport  string
	TelegramBotToken string
	TelegramChatID   string
	TelegramBaseURL  string
	KafkaBrokers     []string
	KafkaTopic       string

	// Alert cooldown (disabled when RedisAddr is empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	AlertCooldown time.Duration

	// Providers
	BarsProvider             string
	PolygonAPIKey            string
	PolygonRequestsPerMinute int
	AlpacaAPIKey             string
	AlpacaAPISecret          string
	AlpacaFeed               string
	BinanceAPIKey            string
	BinanceAPISecret         string

	// Network resilience
	RequestTimeout      time.Duration
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	BreakerMaxFailures  int
	BreakerOpenTimeout  time.Duration

	// Output
	SnapshotPath   string
	SnapshotFormat string
	DBPath         string
	HistoryEnabled bool

	// Logging
	LogLevel  logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFormat logger.Format

	// Metrics
	MetricsTextfile string
	PushgatewayURL  string

	// Runtime
	Schedule      string // cron expression; empty runs once
	ClearTerminal bool
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Market data
	cfg.Symbol = strings.ToUpper(getEnv("SYMBOL", "SPY"))
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}

	cfg.BarInterval, err = domain.ParseInterval(getEnv("BAR_INTERVAL", "5m"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BAR_INTERVAL: %v", err))
	}

	cfg.BarPeriod, err = domain.ParsePeriod(getEnv("BAR_PERIOD", "1d"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BAR_PERIOD: %v", err))
	}

	cfg.MinBars, err = getEnvAsIntRequired("MIN_BARS", 20)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_BARS: %v", err))
	} else if cfg.MinBars <= 0 {
		errs = append(errs, "MIN_BARS must be positive")
	}

	// Indicators
	cfg.VWAPMode = domain.VWAPMode(strings.ToLower(getEnv("VWAP_MODE", string(domain.VWAPCumulative))))
	if cfg.VWAPMode != domain.VWAPCumulative && cfg.VWAPMode != domain.VWAPRolling {
		errs = append(errs, "VWAP_MODE must be 'cumulative' or 'rolling'")
	}
	cfg.VWAPWindow = getEnvAsInt("VWAP_WINDOW", 7)
	cfg.ATRPeriod = getEnvAsInt("ATR_PERIOD", 20)
	cfg.MFIPeriod = getEnvAsInt("MFI_PERIOD", 14)
	if cfg.VWAPWindow <= 0 || cfg.ATRPeriod <= 0 || cfg.MFIPeriod <= 0 {
		errs = append(errs, "indicator periods (VWAP_WINDOW, ATR_PERIOD, MFI_PERIOD) must be positive")
	}

	cfg.ATRMultiplier, err = getEnvAsFloatRequired("ATR_MULTIPLIER", 0.2)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ATR_MULTIPLIER: %v", err))
	} else if cfg.ATRMultiplier < 0 {
		errs = append(errs, "ATR_MULTIPLIER cannot be negative")
	}

	cfg.BandMultiplier, err = getEnvAsFloatRequired("BAND_MULTIPLIER", 4)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BAND_MULTIPLIER: %v", err))
	} else if cfg.BandMultiplier < 0 {
		errs = append(errs, "BAND_MULTIPLIER cannot be negative")
	}

	// Signal and ranking
	cfg.SignalPolicy = strings.ToLower(getEnv("SIGNAL_POLICY", "momentum_or_reversal"))
	if cfg.SignalPolicy != "momentum" && cfg.SignalPolicy != "momentum_or_reversal" {
		errs = append(errs, "SIGNAL_POLICY must be 'momentum' or 'momentum_or_reversal'")
	}

	cfg.MomentumMFI = getEnvAsFloat("MOMENTUM_MFI", 50.0)
	cfg.ReversalMFI = getEnvAsFloat("REVERSAL_MFI", 30.0)
	if cfg.MomentumMFI < 0 || cfg.MomentumMFI > 100 || cfg.ReversalMFI < 0 || cfg.ReversalMFI > 100 {
		errs = append(errs, "invalid MFI thresholds (MOMENTUM_MFI and REVERSAL_MFI must be between 0-100)")
	}

	cfg.ProximityWindow, err = getEnvAsFloatRequired("PROXIMITY_WINDOW", 5.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PROXIMITY_WINDOW: %v", err))
	} else if cfg.ProximityWindow < 0 {
		errs = append(errs, "PROXIMITY_WINDOW cannot be negative")
	}

	cfg.TopN, err = getEnvAsIntRequired("TOP_N", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TOP_N: %v", err))
	} else if cfg.TopN <= 0 {
		errs = append(errs, "TOP_N must be positive")
	}

	// Market hours
	cfg.MarketHoursGate = getEnvAsBool("MARKET_HOURS_GATE", false)
	cfg.MarketTimezone = getEnv("MARKET_TIMEZONE", "America/New_York")
	if _, err := marketclock.NewGate(cfg.MarketTimezone); err != nil {
		errs = append(errs, fmt.Sprintf("invalid MARKET_TIMEZONE: %v", err))
	}

	// Notification
	cfg.NotifyMode = domain.NotifyMode(strings.ToLower(getEnv("NOTIFY_MODE", string(domain.NotifyNone))))
	switch cfg.NotifyMode {
	case domain.NotifyNone, domain.NotifyText, domain.NotifyImage:
	default:
		errs = append(errs, "NOTIFY_MODE must be 'none', 'text' or 'image'")
	}

	cfg.NotifyTransport = strings.ToLower(getEnv("NOTIFY_TRANSPORT", TransportTelegram))
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN") // No default: secrets never live in code
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.TelegramBaseURL = getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org")
	cfg.KafkaBrokers = getEnvAsList("KAFKA_BROKERS")
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "itm-screener.alerts")

	if cfg.NotifyMode != domain.NotifyNone {
		switch cfg.NotifyTransport {
		case TransportTelegram:
			if cfg.TelegramBotToken == "" {
				errs = append(errs, "TELEGRAM_BOT_TOKEN must be set when notifications are enabled")
			}
			if cfg.TelegramChatID == "" {
				errs = append(errs, "TELEGRAM_CHAT_ID must be set when notifications are enabled")
			}
		case TransportKafka:
			if len(cfg.KafkaBrokers) == 0 {
				errs = append(errs, "KAFKA_BROKERS must be set when NOTIFY_TRANSPORT is kafka")
			}
			if cfg.KafkaTopic == "" {
				errs = append(errs, "KAFKA_TOPIC must be set when NOTIFY_TRANSPORT is kafka")
			}
		default:
			errs = append(errs, "NOTIFY_TRANSPORT must be 'telegram' or 'kafka'")
		}
	}

	// Alert cooldown
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getEnvAsInt("REDIS_DB", 0)
	cfg.AlertCooldown, err = getEnvAsDurationRequired("ALERT_COOLDOWN", 30*time.Minute)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ALERT_COOLDOWN: %v", err))
	} else if cfg.AlertCooldown <= 0 {
		errs = append(errs, "ALERT_COOLDOWN must be positive")
	}

	// Providers
	cfg.BarsProvider = strings.ToLower(getEnv("BARS_PROVIDER", ProviderPolygon))
	cfg.PolygonAPIKey = os.Getenv("POLYGON_API_KEY")
	cfg.PolygonRequestsPerMinute = getEnvAsInt("POLYGON_REQUESTS_PER_MINUTE", 5)
	cfg.AlpacaAPIKey = os.Getenv("ALPACA_API_KEY")
	cfg.AlpacaAPISecret = os.Getenv("ALPACA_API_SECRET")
	cfg.AlpacaFeed = getEnv("ALPACA_FEED", "iex")
	cfg.BinanceAPIKey = os.Getenv("BINANCE_API_KEY")
	cfg.BinanceAPISecret = os.Getenv("BINANCE_API_SECRET")

	// The option chain always comes from Polygon.
	if cfg.PolygonAPIKey == "" {
		errs = append(errs, "POLYGON_API_KEY must be set")
	}
	if cfg.PolygonRequestsPerMinute <= 0 {
		errs = append(errs, "POLYGON_REQUESTS_PER_MINUTE must be positive")
	}
	switch cfg.BarsProvider {
	case ProviderPolygon, ProviderBinance:
	case ProviderAlpaca:
		if cfg.AlpacaAPIKey == "" || cfg.AlpacaAPISecret == "" {
			errs = append(errs, "ALPACA_API_KEY and ALPACA_API_SECRET must be set when BARS_PROVIDER is alpaca")
		}
	default:
		errs = append(errs, "BARS_PROVIDER must be 'polygon', 'alpaca' or 'binance'")
	}

	// Network resilience
	cfg.RequestTimeout, err = getEnvAsDurationRequired("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid REQUEST_TIMEOUT: %v", err))
	} else if cfg.RequestTimeout <= 0 {
		errs = append(errs, "REQUEST_TIMEOUT must be positive")
	}

	cfg.RetryMaxAttempts = getEnvAsInt("RETRY_MAX_ATTEMPTS", 3)
	if cfg.RetryMaxAttempts <= 0 {
		errs = append(errs, "RETRY_MAX_ATTEMPTS must be positive")
	}
	cfg.RetryInitialBackoff = getEnvAsDuration("RETRY_INITIAL_BACKOFF", 500*time.Millisecond)
	cfg.RetryMaxBackoff = getEnvAsDuration("RETRY_MAX_BACKOFF", 5*time.Second)
	if cfg.RetryInitialBackoff <= 0 || cfg.RetryMaxBackoff < cfg.RetryInitialBackoff {
		errs = append(errs, "RETRY_INITIAL_BACKOFF must be positive and not exceed RETRY_MAX_BACKOFF")
	}

	cfg.BreakerMaxFailures = getEnvAsInt("BREAKER_MAX_FAILURES", 5)
	if cfg.BreakerMaxFailures <= 0 {
		errs = append(errs, "BREAKER_MAX_FAILURES must be positive")
	}
	cfg.BreakerOpenTimeout = getEnvAsDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second)

	// Output
	cfg.SnapshotFormat = strings.ToLower(getEnv("SNAPSHOT_FORMAT", "csv"))
	switch cfg.SnapshotFormat {
	case "csv", "json", "parquet":
	default:
		errs = append(errs, "SNAPSHOT_FORMAT must be 'csv', 'json' or 'parquet'")
	}
	cfg.SnapshotPath = getEnv("SNAPSHOT_PATH", strings.ToLower(cfg.Symbol)+"_calls_log."+cfg.SnapshotFormat)

	cfg.HistoryEnabled = getEnvAsBool("HISTORY_ENABLED", true)
	cfg.DBPath = getEnv("DB_PATH", "./data/screener.db")
	if cfg.HistoryEnabled && cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFormat = logger.ParseFormat(getEnv("LOG_FORMAT", "text"))

	// Metrics
	cfg.MetricsTextfile = getEnv("METRICS_TEXTFILE", "")
	cfg.PushgatewayURL = getEnv("PUSHGATEWAY_URL", "")

	// Runtime
	cfg.Schedule = getEnv("SCHEDULE", "")
	cfg.ClearTerminal = getEnvAsBool("CLEAR_TERMINAL", true)

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// ValidateForScreener checks settings that only the screener run needs.
// Binance bars are accepted by LoadConfig for fetch_bars and replay only;
// the screener pairs bars with a Polygon equity option chain.
func (c *Config) ValidateForScreener() error {
	if c.BarsProvider == ProviderBinance {
		return fmt.Errorf("%w: BARS_PROVIDER binance cannot drive the screener (option chains come from Polygon); use polygon or alpaca", ports.ErrConfigurationError)
	}
	return nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := getEnvAsDurationRequired(key, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDurationRequired(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

// getEnvAsList splits a comma-separated value, dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
