package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"itmScreener/internal/alert"
	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

const (
	expirationLayout = "2006-01-02"

	stageFetchBars   = "fetch_bars"
	stageEvaluate    = "evaluate"
	stageExpirations = "fetch_expirations"
	stageChain       = "fetch_chain"
	stageRank        = "rank"
	stageNotify      = "notify"
	stagePersist     = "persist"
)

// SignalEvaluator turns bars into a buy signal.
type SignalEvaluator interface {
	RequiredDataPoints() int
	Evaluate(ctx context.Context, bars []*domain.Bar) (domain.Signal, error)
}

// SessionTrimmer keeps the bars of the latest n sessions.
type SessionTrimmer interface {
	TrimSessions(bars []*domain.Bar, n int) []*domain.Bar
}

// Settings are the per-run parameters of the screener.
type Settings struct {
	Symbol        string
	Interval      domain.Interval
	Period        domain.Period
	NotifyMode    domain.NotifyMode
	AlertCooldown time.Duration
	SnapshotPath  string
}

// Dependencies groups the ports the pipeline drives. Optional ones may be nil.
type Dependencies struct {
	Logger    ports.Logger
	Bars      ports.BarSource
	Options   ports.OptionChainSource
	Evaluator SignalEvaluator
	Engine    ports.IndicatorEngine // chart series
	Ranker    ports.ContractRanker
	Composer  *alert.Composer
	Presenter ports.Presenter
	Snapshot  ports.SnapshotWriter

	Gate     ports.SessionGate       // nil: always open
	Trimmer  SessionTrimmer          // nil: bars used as fetched
	Notifier ports.Notifier          // nil: notifications off
	Chart    ports.ChartRenderer     // required for image mode
	Cooldown ports.AlertCooldown     // nil: no dedupe
	Runs     ports.RunRepository     // nil: no history
	Metrics  ports.Metrics           // nil: no metrics
	AfterRun func(*domain.RunRecord) // e.g. metrics export
}

// ScreenerService runs the screening pipeline.
type ScreenerService struct {
	settings Settings
	deps     Dependencies
	now      func() time.Time
	newID    func() string
}

// NewScreenerService validates dependencies and settings.
func NewScreenerService(settings Settings, deps Dependencies) (*ScreenerService, error) {
	if deps.Logger == nil || deps.Bars == nil || deps.Options == nil || deps.Evaluator == nil ||
		deps.Ranker == nil || deps.Composer == nil || deps.Presenter == nil || deps.Snapshot == nil {
		return nil, fmt.Errorf("missing required dependencies for ScreenerService")
	}
	if settings.Symbol == "" {
		return nil, fmt.Errorf("symbol is required: %w", ports.ErrConfigurationError)
	}
	if settings.Period.Sessions <= 0 {
		return nil, fmt.Errorf("period must cover at least one session: %w", ports.ErrConfigurationError)
	}
	if settings.SnapshotPath == "" {
		return nil, fmt.Errorf("snapshot path is required: %w", ports.ErrConfigurationError)
	}
	if settings.NotifyMode == "" {
		settings.NotifyMode = domain.NotifyNone
	}
	if settings.NotifyMode != domain.NotifyNone && deps.Notifier == nil {
		return nil, fmt.Errorf("notify mode %q requires a notifier: %w", settings.NotifyMode, ports.ErrConfigurationError)
	}
	if settings.NotifyMode == domain.NotifyImage && (deps.Chart == nil || deps.Engine == nil) {
		return nil, fmt.Errorf("notify mode image requires a chart renderer and indicator engine: %w", ports.ErrConfigurationError)
	}

	return &ScreenerService{
		settings: settings,
		deps:     deps,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// RunOnce executes the pipeline a single time. Expected no-data outcomes
// return a record and a nil error; genuine faults return the error too.
func (s *ScreenerService) RunOnce(ctx context.Context) (*domain.RunRecord, error) {
	run := &domain.RunRecord{
		ID:        s.newID(),
		Symbol:    s.settings.Symbol,
		StartedAt: s.now().UTC(),
	}
	err := s.run(ctx, run)
	if err != nil {
		if ports.IsDataUnavailable(err) {
			err = nil
		} else {
			run.Outcome = domain.OutcomeFailed
			run.Error = err.Error()
			s.deps.Presenter.Notice(ports.NoticeError, "Error: "+err.Error())
		}
	}
	run.FinishedAt = s.now().UTC()
	s.record(ctx, run)
	return run, err
}

func (s *ScreenerService) run(ctx context.Context, run *domain.RunRecord) error {
	symbol := s.settings.Symbol
	log := s.deps.Logger
	pres := s.deps.Presenter
	now := s.now()

	pres.Header(symbol, now)

	if s.deps.Gate != nil && !s.deps.Gate.IsOpen(now) {
		run.Outcome = domain.OutcomeMarketClosed
		pres.Notice(ports.NoticeWarn, "Market is closed. Skipping this run.")
		log.Info(ctx, "Market closed, run skipped", map[string]interface{}{"symbol": symbol})
		return nil
	}

	// 1. Bars and indicators
	var bars []*domain.Bar
	err := s.timed(stageFetchBars, func() error {
		var err error
		bars, err = s.deps.Bars.FetchBars(ctx, symbol, s.settings.Interval, s.settings.Period)
		return err
	})
	if err != nil {
		if ports.IsDataUnavailable(err) {
			return s.insufficientData(ctx, run, err)
		}
		return fmt.Errorf("fetch bars failed: %w", err)
	}
	if s.deps.Trimmer != nil {
		bars = s.deps.Trimmer.TrimSessions(bars, s.settings.Period.Sessions)
	}

	var sig domain.Signal
	err = s.timed(stageEvaluate, func() error {
		var err error
		sig, err = s.deps.Evaluator.Evaluate(ctx, bars)
		return err
	})
	if err != nil {
		if ports.IsDataUnavailable(err) {
			return s.insufficientData(ctx, run, err)
		}
		return fmt.Errorf("evaluate signal failed: %w", err)
	}
	run.Signal = &sig
	s.observeSignal(sig.Kind)

	pres.Snapshot(symbol, sig.Snapshot)
	pres.Signal(symbol, sig)

	// 2. Option chain
	var expirations []time.Time
	err = s.timed(stageExpirations, func() error {
		var err error
		expirations, err = s.deps.Options.FetchExpirations(ctx, symbol)
		return err
	})
	if err == nil && len(expirations) == 0 {
		err = fmt.Errorf("%w for %s", ports.ErrNoExpirations, symbol)
	}
	if err != nil {
		if errors.Is(err, ports.ErrNoExpirations) {
			run.Outcome = domain.OutcomeNoExpirations
			pres.Notice(ports.NoticeError, "No expiration dates found. Try again later.")
			log.Warn(ctx, "No option expirations available", map[string]interface{}{"symbol": symbol})
			return err
		}
		return fmt.Errorf("fetch expirations failed: %w", err)
	}
	expiration := expirations[0]
	run.Expiration = expiration.Format(expirationLayout)
	pres.Expiration(run.Expiration)

	var chain []domain.OptionContract
	err = s.timed(stageChain, func() error {
		var err error
		chain, err = s.deps.Options.FetchOptionChain(ctx, symbol, expiration)
		return err
	})
	if err != nil && !errors.Is(err, ports.ErrEmptyChain) {
		return fmt.Errorf("fetch option chain failed: %w", err)
	}

	var ranking *domain.Ranking
	err = s.timed(stageRank, func() error {
		var err error
		ranking, err = s.deps.Ranker.Rank(ctx, chain, sig.Snapshot.Price)
		return err
	})
	if err != nil {
		return fmt.Errorf("rank contracts failed: %w", err)
	}
	s.observeCandidates(len(ranking.All))
	if ranking.NoCandidates() {
		run.Outcome = domain.OutcomeNoCandidates
		pres.Notice(ports.NoticeWarn, fmt.Sprintf("No ITM calls within $%s of %s price found.",
			domain.Money(s.proximityWindow()), symbol))
		log.Info(ctx, "No ITM call candidates", map[string]interface{}{
			"symbol": symbol, "spot": ranking.Spot, "chainSize": len(chain), "excludedZeroPrice": ranking.ExcludedZeroPrice,
		})
		return nil
	}
	run.Ranked = ranking.All
	run.Suggested = ranking.Suggested
	pres.Ranking(ranking)

	// 3. Notification
	if a := s.deps.Composer.Compose(symbol, sig, ranking.Suggested, run.Expiration); a != nil {
		_ = s.timed(stageNotify, func() error {
			run.AlertSent = s.deliver(ctx, a, bars)
			return nil
		})
	}

	// 4. Snapshot
	if err := s.timed(stagePersist, func() error {
		return s.deps.Snapshot.Write(ranking.All, s.settings.SnapshotPath)
	}); err != nil {
		return fmt.Errorf("write snapshot %s failed: %w", s.settings.SnapshotPath, err)
	}
	log.Debug(ctx, "Snapshot written", map[string]interface{}{"path": s.settings.SnapshotPath, "rows": len(ranking.All)})

	run.Outcome = domain.OutcomeCompleted
	return nil
}

// deliver sends the alert unless muted or in cooldown. Failures are logged, never returned.
func (s *ScreenerService) deliver(ctx context.Context, a *domain.Alert, bars []*domain.Bar) bool {
	log := s.deps.Logger
	if s.settings.NotifyMode == domain.NotifyNone || s.deps.Notifier == nil {
		return false
	}
	transport := s.deps.Notifier.Name()
	fields := map[string]interface{}{"transport": transport, "signal": string(a.Kind), "contract": a.Contract.Symbol}

	claimed := false
	if s.deps.Cooldown != nil && s.settings.AlertCooldown > 0 {
		ok, err := s.deps.Cooldown.Acquire(ctx, a.DedupKey(), s.settings.AlertCooldown)
		if err != nil {
			log.Warn(ctx, "Alert cooldown check failed, sending anyway", map[string]interface{}{"error": err.Error()})
		} else if ok {
			claimed = true
		} else {
			log.Info(ctx, "Alert suppressed by cooldown", fields)
			s.observeNotification(transport, "suppressed")
			return false
		}
	}

	var err error
	switch s.settings.NotifyMode {
	case domain.NotifyImage:
		var img []byte
		img, err = s.renderChart(ctx, bars)
		if err != nil {
			log.Warn(ctx, "Chart rendering failed, sending text only", map[string]interface{}{"error": err.Error()})
			err = s.deps.Notifier.SendText(ctx, a)
		} else {
			err = s.deps.Notifier.SendImage(ctx, a, img)
		}
	default:
		err = s.deps.Notifier.SendText(ctx, a)
	}

	if err != nil {
		if !errors.Is(err, ports.ErrTransportFailure) {
			err = fmt.Errorf("%w: %w", ports.ErrTransportFailure, err)
		}
		log.Error(ctx, err, "Alert delivery failed", fields)
		if claimed {
			// The alert never went out; let the next run retry it.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if rerr := s.deps.Cooldown.Release(releaseCtx, a.DedupKey()); rerr != nil {
				log.Warn(ctx, "Failed to release alert cooldown", map[string]interface{}{"error": rerr.Error()})
			}
			cancel()
		}
		s.deps.Presenter.Notice(ports.NoticeWarn, "Alert delivery via "+transport+" failed.")
		s.observeNotification(transport, "failed")
		return false
	}
	log.Info(ctx, "Alert delivered", fields)
	s.observeNotification(transport, "sent")
	return true
}

func (s *ScreenerService) renderChart(ctx context.Context, bars []*domain.Bar) ([]byte, error) {
	series, err := s.deps.Engine.Series(ctx, bars)
	if err != nil {
		return nil, err
	}
	return s.deps.Chart.Render(ctx, s.settings.Symbol, bars, series)
}

func (s *ScreenerService) insufficientData(ctx context.Context, run *domain.RunRecord, err error) error {
	run.Outcome = domain.OutcomeInsufficientData
	s.deps.Presenter.Notice(ports.NoticeError, "Unable to retrieve VWAP/MFI data.")
	s.deps.Logger.Warn(ctx, "Indicators unavailable", map[string]interface{}{"symbol": s.settings.Symbol, "reason": err.Error()})
	return err
}

func (s *ScreenerService) proximityWindow() float64 {
	type windowed interface{ ProximityWindow() float64 }
	if w, ok := s.deps.Ranker.(windowed); ok {
		return w.ProximityWindow()
	}
	return 5
}

// record persists the run and exports metrics. Failures here never change the outcome.
func (s *ScreenerService) record(ctx context.Context, run *domain.RunRecord) {
	if s.deps.Runs != nil {
		// Persist even when the run context was canceled.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.deps.Runs.SaveRun(saveCtx, run); err != nil {
			s.deps.Logger.Error(ctx, err, "Failed to save run history", map[string]interface{}{"runID": run.ID})
		}
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveRun(run.Symbol, run.Outcome, run.FinishedAt.Sub(run.StartedAt))
	}
	if s.deps.AfterRun != nil {
		s.deps.AfterRun(run)
	}
	s.deps.Logger.Info(ctx, "Screener run finished", map[string]interface{}{
		"runID": run.ID, "symbol": run.Symbol, "outcome": string(run.Outcome), "alertSent": run.AlertSent,
	})
}

func (s *ScreenerService) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveStage(stage, time.Since(start))
	}
	return err
}

func (s *ScreenerService) observeSignal(kind domain.SignalKind) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveSignal(s.settings.Symbol, kind)
	}
}

func (s *ScreenerService) observeCandidates(n int) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveCandidates(s.settings.Symbol, n)
	}
}

func (s *ScreenerService) observeNotification(transport, result string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveNotification(transport, result)
	}
}

// Start runs the pipeline on a cron schedule until ctx is canceled or
// SIGINT/SIGTERM arrives. Run errors are logged; the schedule keeps going.
func (s *ScreenerService) Start(ctx context.Context, schedule string) error {
	log := s.deps.Logger
	log.Info(ctx, "Starting screener service...", map[string]interface{}{"symbol": s.settings.Symbol, "schedule": schedule})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			log.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			log.Error(ctx, err, "Scheduled run failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w: %w", schedule, ports.ErrConfigurationError, err)
	}
	c.Start()

	<-ctx.Done()
	log.Info(ctx, "Stopping scheduler, waiting for the current run...")
	<-c.Stop().Done()
	log.Info(ctx, "Screener service stopped.")
	return nil
}
