package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"itmScreener/config"
	"itmScreener/internal/adapters/logger"
	"itmScreener/internal/adapters/polygonclient"
	"itmScreener/internal/app"
	"itmScreener/internal/domain"
	"itmScreener/internal/marketclock"
	"itmScreener/internal/utils"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	symbol := flag.String("symbol", cfg.Symbol, "ticker to download")
	interval := flag.String("interval", cfg.BarInterval.String(), "bar interval, e.g. 5m")
	sessions := flag.Int("sessions", 30, "number of trading sessions to download")
	out := flag.String("out", "", "output CSV path (default data/<symbol>_<interval>_<from>_to_<to>.csv)")
	trim := flag.Bool("trim", true, "keep regular-session bars only (equity providers)")
	flag.Parse()

	// 2. Initialize Logger
	appLogger := logger.NewSlogLogger(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	iv, err := domain.ParseInterval(*interval)
	if err != nil {
		log.Fatalf("Invalid interval: %v", err)
	}
	if *sessions <= 0 {
		log.Fatalf("sessions must be positive, got %d", *sessions)
	}
	cfg.BarInterval = iv

	gate, err := marketclock.NewGate(cfg.MarketTimezone)
	if err != nil {
		log.Fatalf("Invalid market timezone: %v", err)
	}

	// 3. Initialize the bar provider
	var polygon *polygonclient.Client
	if cfg.BarsProvider == config.ProviderPolygon {
		polygon, err = app.NewPolygon(cfg, appLogger, gate.Location())
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize Polygon client")
			log.Fatalf("FATAL: Failed to initialize Polygon client: %v", err)
		}
	}
	source, err := app.NewBarSource(cfg, polygon, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize bar source")
		log.Fatalf("FATAL: Failed to initialize bar source: %v", err)
	}

	fmt.Printf("Fetching %s bars for %s over %d sessions from %s...\n", iv, *symbol, *sessions, cfg.BarsProvider)
	bars, err := source.FetchBars(ctx, *symbol, iv, domain.Period{Sessions: *sessions})
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching bars")
		log.Fatalf("Error fetching bars: %v", err)
	}
	if *trim && app.TrimsSessions(cfg) {
		bars = gate.TrimSessions(bars, *sessions)
	}
	if len(bars) == 0 {
		log.Fatalf("No bars returned for %s", *symbol)
	}
	appLogger.Info(ctx, "Fetched bars", map[string]interface{}{"count": len(bars)})

	filename := *out
	if filename == "" {
		first, last := bars[0].OpenTime, bars[len(bars)-1].OpenTime
		filename = fmt.Sprintf("data/%s_%s_%s_to_%s.csv", *symbol, iv, first.Format("20060102"), last.Format("20060102"))
	}
	if err := utils.WriteBarsToCSV(bars, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": filename})
}
