package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"

	"itmScreener/config"
	"itmScreener/internal/adapters/chart"
	"itmScreener/internal/adapters/console"
	"itmScreener/internal/adapters/kafkanotifier"
	"itmScreener/internal/adapters/logger"
	"itmScreener/internal/adapters/metrics"
	"itmScreener/internal/adapters/rediscooldown"
	"itmScreener/internal/adapters/resilience"
	"itmScreener/internal/adapters/sqlite"
	"itmScreener/internal/adapters/telegram"
	"itmScreener/internal/alert"
	"itmScreener/internal/app"
	"itmScreener/internal/domain"
	"itmScreener/internal/marketclock"
	"itmScreener/internal/ports"
	"itmScreener/internal/strategy"
	"itmScreener/internal/strategy/indicators"
	"itmScreener/internal/strategy/ranking"
	"itmScreener/internal/strategy/strategies"
	"itmScreener/internal/utils"
)

func main() {
	os.Exit(run())
}

// run wires the screener and returns the process exit code so deferred closers always run.
func run() int {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	if err := cfg.ValidateForScreener(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// 2. Initialize Logger and Metrics
	appLogger := logger.NewSlogLogger(cfg.LogLevel, cfg.LogFormat)
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "symbol": cfg.Symbol})

	m := metrics.NewMetrics()
	exporter := metrics.Exporter{TextfilePath: cfg.MetricsTextfile, PushgatewayURL: cfg.PushgatewayURL}

	gate, err := marketclock.NewGate(cfg.MarketTimezone)
	if err != nil {
		return fail(appLogger, err, "Invalid market timezone")
	}

	// 3. Market data providers
	polygon, err := app.NewPolygon(cfg, appLogger, gate.Location())
	if err != nil {
		return fail(appLogger, err, "Failed to initialize Polygon client")
	}
	bars, err := app.NewBarSource(cfg, polygon, appLogger, m.ObserveBreaker)
	if err != nil {
		return fail(appLogger, err, "Failed to initialize bar source")
	}
	chainExec := resilience.NewExecutor("polygon-options", app.ResilienceConfig(cfg), appLogger, m.ObserveBreaker)
	options := resilience.WrapOptionChainSource(polygon, chainExec)
	appLogger.Info(ctx, "Market data providers initialized", map[string]interface{}{"bars": cfg.BarsProvider})

	// 4. Indicators, signal policy and ranking
	engine, err := indicators.NewEngine(indicators.EngineConfig{
		MinBars:        cfg.MinBars,
		VWAPMode:       cfg.VWAPMode,
		VWAPWindow:     cfg.VWAPWindow,
		ATRPeriod:      cfg.ATRPeriod,
		ATRMultiplier:  cfg.ATRMultiplier,
		BandMultiplier: cfg.BandMultiplier,
		MFIPeriod:      cfg.MFIPeriod,
	})
	if err != nil {
		return fail(appLogger, err, "Failed to initialize indicator engine")
	}
	policy, err := strategies.NewPolicy(cfg.SignalPolicy, strategies.Thresholds{
		MomentumMFI: cfg.MomentumMFI,
		ReversalMFI: cfg.ReversalMFI,
	}, appLogger)
	if err != nil {
		return fail(appLogger, err, "Failed to initialize signal policy")
	}
	strat, err := strategy.New(engine, policy, appLogger)
	if err != nil {
		return fail(appLogger, err, "Failed to initialize strategy")
	}
	ranker, err := ranking.New(ranking.Config{ProximityWindow: cfg.ProximityWindow, TopN: cfg.TopN}, appLogger)
	if err != nil {
		return fail(appLogger, err, "Failed to initialize contract ranker")
	}

	// 5. Output
	snapshot := utils.NewSnapshotWriter(cfg.SnapshotFormat)
	if snapshot == nil {
		return fail(appLogger, ports.ErrConfigurationError, "Unsupported snapshot format")
	}
	deps := app.Dependencies{
		Logger:    appLogger,
		Bars:      bars,
		Options:   options,
		Evaluator: strat,
		Engine:    engine,
		Ranker:    ranker,
		Composer:  alert.NewComposer(),
		Presenter: console.NewPresenter(console.Options{
			Out:           os.Stdout,
			ClearTerminal: cfg.ClearTerminal,
			MomentumMFI:   cfg.MomentumMFI,
			ReversalMFI:   cfg.ReversalMFI,
			Location:      gate.Location(),
		}),
		Snapshot: snapshot,
		Metrics:  m,
		AfterRun: func(*domain.RunRecord) {
			if err := exporter.Export(m); err != nil {
				appLogger.Warn(ctx, "Failed to export metrics", map[string]interface{}{"error": err.Error()})
			}
		},
	}
	if cfg.MarketHoursGate {
		deps.Gate = gate
	}
	if app.TrimsSessions(cfg) {
		deps.Trimmer = gate
	}

	// 6. Notifications
	if cfg.NotifyMode != domain.NotifyNone {
		var notifier ports.Notifier
		switch cfg.NotifyTransport {
		case config.TransportKafka:
			producer := kafkanotifier.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
			defer func() {
				if err := producer.Close(); err != nil {
					appLogger.Error(ctx, err, "Error closing Kafka producer")
				}
			}()
			notifier = producer
		default:
			tg, err := telegram.New(telegram.Config{
				BaseURL: cfg.TelegramBaseURL,
				Token:   cfg.TelegramBotToken,
				ChatID:  cfg.TelegramChatID,
				Timeout: cfg.RequestTimeout,
				Logger:  appLogger,
			})
			if err != nil {
				return fail(appLogger, err, "Failed to initialize Telegram client")
			}
			notifier = tg
		}
		notifyExec := resilience.NewExecutor(notifier.Name()+"-notify", app.ResilienceConfig(cfg), appLogger, m.ObserveBreaker)
		deps.Notifier = resilience.WrapNotifier(notifier, notifyExec)
		deps.Chart = chart.NewRenderer(gate.Location())
		appLogger.Info(ctx, "Notifier initialized", map[string]interface{}{"transport": notifier.Name(), "mode": string(cfg.NotifyMode)})
	}

	if cfg.RedisAddr != "" {
		cooldown, client, err := rediscooldown.New(ctx, rediscooldown.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			// Alerts still go out, just without dedupe.
			appLogger.Warn(ctx, "Redis unavailable, alert cooldown disabled", map[string]interface{}{"error": err.Error()})
		} else {
			defer client.Close()
			deps.Cooldown = cooldown
		}
	}

	// 7. Run history
	if cfg.HistoryEnabled {
		repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
		if err != nil {
			return fail(appLogger, err, "Failed to initialize run history")
		}
		defer func() {
			if err := repo.Close(); err != nil {
				appLogger.Error(ctx, err, "Error closing database repository")
			}
		}()
		deps.Runs = repo
	}

	// 8. Initialize and start the service
	service, err := app.NewScreenerService(app.Settings{
		Symbol:        cfg.Symbol,
		Interval:      cfg.BarInterval,
		Period:        cfg.BarPeriod,
		NotifyMode:    cfg.NotifyMode,
		AlertCooldown: cfg.AlertCooldown,
		SnapshotPath:  cfg.SnapshotPath,
	}, deps)
	if err != nil {
		return fail(appLogger, err, "Failed to initialize screener service")
	}

	if cfg.Schedule != "" {
		if err := service.Start(ctx, cfg.Schedule); err != nil {
			appLogger.Error(ctx, err, "Screener exited with error")
			return 1
		}
		appLogger.Info(ctx, "Application finished gracefully.")
		return 0
	}

	record, err := service.RunOnce(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "Screener run failed", map[string]interface{}{"runID": record.ID})
		return 1
	}
	appLogger.Info(ctx, "Screener run finished", map[string]interface{}{"runID": record.ID, "outcome": string(record.Outcome)})
	return 0
}

func fail(l ports.Logger, err error, msg string) int {
	l.Error(context.Background(), err, "FATAL: "+msg)
	return 1
}
