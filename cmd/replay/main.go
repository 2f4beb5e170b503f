package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"
	"text/tabwriter"
	"time"

	"itmScreener/internal/adapters/logger"
	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
	"itmScreener/internal/strategy"
	"itmScreener/internal/strategy/backtesting"
	"itmScreener/internal/strategy/optimization"
	"itmScreener/internal/strategy/indicators"
	"itmScreener/internal/strategy/strategies"
	"itmScreener/internal/utils"
)

func main() {
	defaults := indicators.DefaultEngineConfig()
	thresholds := strategies.DefaultThresholds()

	csvPath := flag.String("csv", "", "bars CSV written by fetch_bars (required)")
	policyName := flag.String("policy", strategies.PolicyMomentumOrReversal, "signal policy: momentum or momentum_or_reversal")
	forward := flag.Int("forward", 6, "forward-return horizon in bars")
	cooldown := flag.Int("cooldown", 0, "collapse same-kind signals within this many bars")
	tz := flag.String("tz", "America/New_York", "session timezone")
	vwapMode := flag.String("vwap-mode", string(defaults.VWAPMode), "cumulative or rolling")
	minBars := flag.Int("min-bars", defaults.MinBars, "bars required before a signal is evaluated")
	verbose := flag.Bool("v", false, "print every signal")
	sweep := flag.Bool("sweep", false, "sweep MFI thresholds and rank them instead of a single replay")
	top := flag.Int("top", 10, "sweep results to print")
	logLevel := flag.String("log-level", "WARN", "log level")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	appLogger := logger.NewSlogLogger(logger.ParseLevel(*logLevel), logger.FormatText)
	ctx := context.Background()

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Fatalf("Invalid timezone %q: %v", *tz, err)
	}

	// 1. Load bars
	bars, err := utils.ReadBarsFromCSV(*csvPath)
	if err != nil {
		log.Fatalf("Error loading bars: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("No bars in %s", *csvPath)
	}
	appLogger.Info(ctx, "Loaded bars", map[string]interface{}{"count": len(bars), "file": *csvPath})

	// 2. Build the strategy
	engineCfg := defaults
	engineCfg.VWAPMode = domain.VWAPMode(*vwapMode)
	engineCfg.MinBars = *minBars
	engine, err := indicators.NewEngine(engineCfg)
	if err != nil {
		log.Fatalf("Invalid indicator settings: %v", err)
	}
	policy, err := strategies.NewPolicy(*policyName, thresholds, appLogger)
	if err != nil {
		log.Fatalf("Invalid policy: %v", err)
	}
	strat, err := strategy.New(engine, policy, appLogger)
	if err != nil {
		log.Fatalf("Failed to build strategy: %v", err)
	}

	replayCfg := backtesting.ReplayConfig{
		Symbol:       bars[0].Symbol,
		ForwardBars:  *forward,
		CooldownBars: *cooldown,
		Location:     loc,
	}

	if *sweep {
		runSweep(ctx, bars, engineCfg, *policyName, replayCfg, *top, appLogger)
		return
	}

	// 3. Replay
	result, err := backtesting.Replay(ctx, strat, bars, replayCfg)
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}

	printResult(result, *policyName, *forward, *verbose)
}

func runSweep(ctx context.Context, bars []*domain.Bar, engineCfg indicators.EngineConfig, policyName string, replayCfg backtesting.ReplayConfig, top int, l ports.Logger) {
	ranges := []optimization.ParameterRange{
		{Name: optimization.ParamMomentumMFI, Min: 40, Max: 70, Step: 5},
		{Name: optimization.ParamReversalMFI, Min: 15, Max: 40, Step: 5},
	}
	opt, err := optimization.NewOptimizer(optimization.OptimizerConfig{
		ParameterRanges: ranges,
		Replay:          replayCfg,
		Workers:         runtime.NumCPU(),
	})
	if err != nil {
		log.Fatalf("Invalid sweep: %v", err)
	}

	factory := func(params map[string]float64) (backtesting.Evaluator, error) {
		engine, err := indicators.NewEngine(engineCfg)
		if err != nil {
			return nil, err
		}
		policy, err := strategies.NewPolicy(policyName, strategies.Thresholds{
			MomentumMFI: params[optimization.ParamMomentumMFI],
			ReversalMFI: params[optimization.ParamReversalMFI],
		}, l)
		if err != nil {
			return nil, err
		}
		return strategy.New(engine, policy, l)
	}

	results, err := opt.Optimize(ctx, factory, bars)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	fmt.Printf("\nThreshold Sweep (%s, %d combinations)\n\n", policyName, len(results))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Rank\tParameters\tSignals\tScore")
	for i, r := range results {
		if i >= top {
			break
		}
		if r.Err != nil {
			fmt.Fprintf(w, "%d\t%s\t-\terror: %v\n", i+1, optimization.ParamsFormat(ranges, r.Parameters), r.Err)
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%.5f\n", i+1, optimization.ParamsFormat(ranges, r.Parameters), len(r.Result.Events), r.Score)
	}
	w.Flush()
}

func printResult(result *backtesting.ReplayResult, policy string, forward int, verbose bool) {
	fmt.Printf("\nReplay Results (%s, forward %d bars)\n", policy, forward)
	fmt.Printf("Sessions: %d   Signals: %d\n\n", len(result.Sessions), len(result.Events))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Session\tBars\tEvaluated\tMomentum\tReversal")
	for _, s := range result.Sessions {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", s.Date, s.Bars, s.Evaluated,
			s.Signals[domain.SignalMomentumBreakout], s.Signals[domain.SignalReversalBounce])
	}
	w.Flush()

	kinds := make([]domain.SignalKind, 0, len(result.Stats))
	for k := range result.Stats {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Signal\tCount\tMeasured\tWin Rate\tAvg Return\tBest\tWorst\tExpectancy\tSharpe\tMax Wins\tMax Losses")
	for _, k := range kinds {
		s := result.Stats[k]
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f%%\t%.3f%%\t%.3f%%\t%.3f%%\t%.4f\t%.2f\t%d\t%d\n",
			k, s.Signals, s.Measured, s.WinRate*100, s.AverageReturn*100, s.BestReturn*100,
			s.WorstReturn*100, s.Expectancy*100, s.SharpeRatio, s.MaxConsecutiveWins, s.MaxConsecutiveLosses)
	}
	w.Flush()

	if !verbose {
		return
	}
	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Time\tSignal\tPrice\tVWAP\tLower Band\tMFI\tForward")
	for _, ev := range result.Events {
		fwd := "n/a"
		if ev.HasForward {
			fwd = fmt.Sprintf("%.3f%%", ev.ForwardReturn*100)
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.1f\t%s\n",
			ev.Time.Format("2006-01-02 15:04"), ev.Kind, ev.Price, ev.VWAP, ev.LowerBand, ev.MFI, fwd)
	}
	w.Flush()
}
