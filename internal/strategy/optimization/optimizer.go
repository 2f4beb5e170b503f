package optimization

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
	"itmScreener/internal/strategy/backtesting"
)

// Parameter names understood by the screener factory.
const (
	ParamMomentumMFI    = "momentum_mfi"
	ParamReversalMFI    = "reversal_mfi"
	ParamATRMultiplier  = "atr_multiplier"
	ParamBandMultiplier = "band_multiplier"
)

// ParameterRange defines a range for a parameter to optimize
type ParameterRange struct {
	Name  string
	Min   float64
	Max   float64
	Step  float64
	IsInt bool
}

// EvaluatorFactory builds an evaluator for one parameter combination.
type EvaluatorFactory func(params map[string]float64) (backtesting.Evaluator, error)

// ScoreFunction ranks a replay. Higher is better.
type ScoreFunction func(stats map[domain.SignalKind]*backtesting.SignalStats) float64

// OptimizationResult holds the outcome of one combination
type OptimizationResult struct {
	Parameters map[string]float64
	Result     *backtesting.ReplayResult
	Score      float64
	Err        error
}

// OptimizerConfig holds configuration for the optimizer
type OptimizerConfig struct {
	ParameterRanges []ParameterRange
	Replay          backtesting.ReplayConfig
	Workers         int // e.g., 4
	ScoreFunction   ScoreFunction
}

// Optimizer sweeps signal parameters over a replay.
type Optimizer struct {
	config OptimizerConfig
}

// NewOptimizer creates a new optimizer instance
func NewOptimizer(config OptimizerConfig) (*Optimizer, error) {
	for _, r := range config.ParameterRanges {
		if r.Name == "" || r.Step <= 0 || r.Max < r.Min {
			return nil, fmt.Errorf("%w: invalid range for parameter %q", ports.ErrInvalidRequest, r.Name)
		}
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.ScoreFunction == nil {
		config.ScoreFunction = DefaultScoreFunction
	}
	return &Optimizer{config: config}, nil
}

// Optimize replays every parameter combination and returns them best first.
// Combinations whose factory or replay fails are kept with Err set and sorted last.
func (o *Optimizer) Optimize(ctx context.Context, factory EvaluatorFactory, bars []*domain.Bar) ([]OptimizationResult, error) {
	combinations := o.generateParameterCombinations()
	results := make([]OptimizationResult, len(combinations))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < o.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.evaluate(ctx, factory, bars, combinations[i])
			}
		}()
	}

feed:
	for i := range combinations {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("optimization interrupted: %w: %w", ports.ErrContextCanceled, err)
	}

	sortResultsByScore(results)
	return results, nil
}

func (o *Optimizer) evaluate(ctx context.Context, factory EvaluatorFactory, bars []*domain.Bar, params map[string]float64) OptimizationResult {
	res := OptimizationResult{Parameters: params, Score: math.Inf(-1)}
	eval, err := factory(params)
	if err != nil {
		res.Err = err
		return res
	}
	replay, err := backtesting.Replay(ctx, eval, bars, o.config.Replay)
	if err != nil {
		res.Err = err
		return res
	}
	res.Result = replay
	res.Score = o.config.ScoreFunction(replay.Stats)
	return res
}

// generateParameterCombinations generates all possible parameter combinations
func (o *Optimizer) generateParameterCombinations() []map[string]float64 {
	var combinations []map[string]float64
	currentCombination := make(map[string]float64)

	var generate func(int)
	generate = func(paramIndex int) {
		if paramIndex == len(o.config.ParameterRanges) {
			combination := make(map[string]float64, len(currentCombination))
			for k, v := range currentCombination {
				combination[k] = v
			}
			combinations = append(combinations, combination)
			return
		}

		param := o.config.ParameterRanges[paramIndex]
		steps := int(math.Floor((param.Max-param.Min)/param.Step + 1e-9))
		for i := 0; i <= steps; i++ {
			value := param.Min + float64(i)*param.Step
			if param.IsInt {
				value = math.Round(value)
			}
			currentCombination[param.Name] = value
			generate(paramIndex + 1)
		}
	}

	generate(0)
	return combinations
}

// sortResultsByScore sorts optimization results by score in descending order
func sortResultsByScore(results []OptimizationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if (results[i].Err == nil) != (results[j].Err == nil) {
			return results[i].Err == nil
		}
		return results[i].Score > results[j].Score
	})
}

// DefaultScoreFunction sums expectancy times measured signals across kinds.
func DefaultScoreFunction(stats map[domain.SignalKind]*backtesting.SignalStats) float64 {
	score := 0.0
	for _, s := range stats {
		score += s.Expectancy * float64(s.Measured)
	}
	return score
}

// ParamsFormat renders a combination as "name=value" pairs in range order.
func ParamsFormat(ranges []ParameterRange, params map[string]float64) string {
	out := ""
	for i, r := range ranges {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%g", r.Name, params[r.Name])
	}
	return out
}
