package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dnldd/gridwalk/database"
	"github.com/dnldd/gridwalk/fetch"
	"github.com/dnldd/gridwalk/metrics"
	"github.com/dnldd/gridwalk/optimize"
	"github.com/dnldd/gridwalk/report"
	"github.com/dnldd/gridwalk/shared"
	"github.com/dnldd/gridwalk/strategy"
	"github.com/dnldd/gridwalk/universe"
	"github.com/dnldd/gridwalk/walkforward"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// OptimizerConfig represents the configuration struct for the optimizer
// service.
type OptimizerConfig struct {
	// StartDate is the inclusive start of the requested data range.
	StartDate time.Time
	// HoldoutMonths is the number of trailing months held out of the
	// in-sample data.
	HoldoutMonths int
	// TrainYears, TestYears and StepYears shape the walk-forward windows.
	TrainYears int
	TestYears  int
	StepYears  int
	// MinTrainBars and MinTestBars gate fold data sufficiency.
	MinTrainBars int
	MinTestBars  int
	// Cash is the simulation starting cash.
	Cash float64
	// Commission is the simulation commission rate.
	Commission float64
	// SampleSize is the number of learn tickers sampled per run.
	SampleSize int
	// OOSRandomSize is the number of random out of sample tickers per run.
	OOSRandomSize int
	// Seed seeds ticker sampling. Zero derives a seed from the current date
	// so same-day runs sample identically.
	Seed int64
	// FastPeriods and SlowPeriods are the parameter grid value lists.
	FastPeriods []int
	SlowPeriods []int
	// Weights is the robust score weighting.
	Weights metrics.Weights
	// Strategies names the enabled strategies.
	Strategies []string
	// ExtraTickers extends the master universe.
	ExtraTickers []string
	// FixedOOSTickers are always evaluated out of sample and never learned
	// on.
	FixedOOSTickers []string
	// OutputDir is the report output directory.
	OutputDir string
	// Fetcher loads daily market data.
	Fetcher shared.MarketFetcher
	// CacheDir is the bar cache directory.
	CacheDir string
	// Retry is the data fetch retry policy.
	Retry fetch.RetryPolicy
	// Store persists selection runs. A nil store disables run history.
	Store database.RunStorer
}

// Optimizer represents the walk-forward parameter selection service.
type Optimizer struct {
	cfg        *OptimizerConfig
	dataMgr    *fetch.Manager
	strategies []strategy.Strategy
	logger     *zerolog.Logger
}

// namedStrategies maps the enabled strategy names to the closed strategy set.
func namedStrategies(names []string) ([]strategy.Strategy, error) {
	all := []strategy.Strategy{strategy.NewFixedSMA(), strategy.NewSMACrossATR()}
	if len(names) == 0 {
		return all, nil
	}

	enabled := make([]strategy.Strategy, 0, len(names))
	for _, name := range names {
		found := false
		for _, strat := range all {
			if strat.Name() == name {
				enabled = append(enabled, strat)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown strategy: %s", name)
		}
	}

	return enabled, nil
}

// NewOptimizer initializes a new optimizer service.
func NewOptimizer(cfg *OptimizerConfig) (*Optimizer, error) {
	logger := log.With().Str("service", "optimizer").Logger()

	strategies, err := namedStrategies(cfg.Strategies)
	if err != nil {
		return nil, fmt.Errorf("resolving strategies: %w", err)
	}

	dataLogger := logger.With().Str("component", "fetch").Logger()
	dataMgr := fetch.NewManager(&fetch.ManagerConfig{
		Fetcher:  cfg.Fetcher,
		CacheDir: cfg.CacheDir,
		Retry:    cfg.Retry,
		Logger:   &dataLogger,
	})

	return &Optimizer{
		cfg:        cfg,
		dataMgr:    dataMgr,
		strategies: strategies,
		logger:     &logger,
	}, nil
}

// seed resolves the sampling seed, deriving one from the current date when
// unset so runs on the same day pick the same tickers.
func (o *Optimizer) seed() int64 {
	if o.cfg.Seed != 0 {
		return o.cfg.Seed
	}

	now := time.Now()
	return int64(now.Year()*1000 + now.YearDay())
}

// tickerSets samples the learn and out of sample ticker sets for a run.
func (o *Optimizer) tickerSets() (learn []string, oos []string) {
	nonAI, _ := universe.Split(o.cfg.ExtraTickers)

	fixed := make(map[string]struct{}, len(o.cfg.FixedOOSTickers))
	for _, ticker := range o.cfg.FixedOOSTickers {
		fixed[ticker] = struct{}{}
	}

	learnPool := make([]string, 0, len(nonAI))
	for _, ticker := range nonAI {
		if _, ok := fixed[ticker]; !ok {
			learnPool = append(learnPool, ticker)
		}
	}

	seed := o.seed()
	learn = universe.StratifiedSample(learnPool, o.cfg.SampleSize, seed)

	learned := make(map[string]struct{}, len(learn))
	for _, ticker := range learn {
		learned[ticker] = struct{}{}
	}

	oosPool := make([]string, 0, len(learnPool))
	for _, ticker := range learnPool {
		if _, ok := learned[ticker]; !ok {
			oosPool = append(oosPool, ticker)
		}
	}

	oos = universe.StratifiedSample(oosPool, o.cfg.OOSRandomSize, seed+1)
	oos = append(oos, o.cfg.FixedOOSTickers...)
	sort.Strings(oos)

	return learn, oos
}

// evaluateOOS walk-forward evaluates the winning parameter set on each held
// out ticker and writes the per-fold table with the concatenated out of
// sample equity curve.
func (o *Optimizer) evaluateOOS(evaluator *walkforward.Evaluator, series map[string]shared.Series,
	tickers []string, best shared.ParamSet, outDir string) {
	const label = "OOS"
	for _, ticker := range tickers {
		sr, ok := series[ticker]
		if !ok || sr.Empty() {
			o.logger.Warn().Msgf("%s: no data for %s evaluation", ticker, label)
			continue
		}

		windows := walkforward.Windows(sr.Start(), sr.End(),
			o.cfg.TrainYears, o.cfg.TestYears, o.cfg.StepYears)
		folds, curve := evaluator.EvaluateAll(sr, best, windows)
		if len(folds) == 0 {
			o.logger.Warn().Msgf("%s: insufficient data for %s evaluation", ticker, label)
			continue
		}

		_, err := report.SaveOutputs(outDir, fmt.Sprintf("%s_%s", ticker, label), folds, curve)
		if err != nil {
			o.logger.Error().Err(err).Msgf("%s: saving %s outputs failed", ticker, label)
		}
	}
}

// evaluateHoldout runs the winning parameter set once over the trailing
// holdout tail of each held out ticker. The tail is shorter than a
// walk-forward window, a single simulation covers it.
func (o *Optimizer) evaluateHoldout(sim shared.Simulator, series map[string]shared.Series,
	tickers []string, best shared.ParamSet, outDir string) {
	const label = "HOLDOUT"
	for _, ticker := range tickers {
		sr, ok := series[ticker]
		if !ok || sr.Len() < o.cfg.MinTestBars {
			o.logger.Warn().Msgf("%s: insufficient data for %s evaluation", ticker, label)
			continue
		}

		_, summary, curve, err := sim.Run(sr, best, o.cfg.Cash, o.cfg.Commission)
		if err != nil {
			o.logger.Error().Err(err).Msgf("%s: %s simulation failed", ticker, label)
			continue
		}

		fold := shared.FoldResult{
			Ticker:             ticker,
			Params:             best,
			TestStart:          sr.Start(),
			TestEnd:            sr.End(),
			Trades:             summary.Trades,
			ReturnPercent:      summary.ReturnPercent,
			SharpeRatio:        summary.SharpeRatio,
			MaxDrawdownPercent: summary.MaxDrawdownPercent,
		}

		_, err = report.SaveOutputs(outDir, fmt.Sprintf("%s_%s", ticker, label),
			[]shared.FoldResult{fold}, curve)
		if err != nil {
			o.logger.Error().Err(err).Msgf("%s: saving %s outputs failed", ticker, label)
		}
	}
}

// persistRun records the strategy run outcome and logs whether it improved on
// the previous best.
func (o *Optimizer) persistRun(ctx context.Context, strat strategy.Strategy, result *optimize.Result) {
	if o.cfg.Store == nil {
		return
	}

	previous, err := o.cfg.Store.FetchLatestRun(ctx, strat.Name())
	if err != nil {
		o.logger.Error().Err(err).Msgf("%s: fetching previous run failed", strat.Name())
	}

	if previous != nil {
		delta := result.Score - previous.Score
		o.logger.Info().Msgf("%s: score %.4f vs previous best %.4f (delta %+.4f)",
			strat.Name(), result.Score, previous.Score, delta)
	}

	run := &database.RunRecord{
		ID:        uuid.NewString(),
		Strategy:  strat.Name(),
		Fast:      result.Best.Fast,
		Slow:      result.Best.Slow,
		Score:     result.Score,
		Stable:    result.Stable,
		Folds:     len(result.Folds),
		CreatedOn: time.Now().Unix(),
	}
	if err := o.cfg.Store.PersistRun(ctx, run); err != nil {
		o.logger.Error().Err(err).Msgf("%s: persisting run failed", strat.Name())
	}
}

// runStrategy executes one full grid search for a strategy and writes its
// outputs.
func (o *Optimizer) runStrategy(ctx context.Context, strat strategy.Strategy,
	inSample map[string]shared.Series, holdout map[string]shared.Series,
	learn []string, oos []string) error {
	o.logger.Info().Msgf("%s: starting grid search", strat.Name())

	sim := strategy.NewSimulator(strat)

	evalLogger := o.logger.With().Str("component", "evaluator").Logger()
	evaluator := walkforward.NewEvaluator(&walkforward.EvaluatorConfig{
		MinTrainBars: o.cfg.MinTrainBars,
		MinTestBars:  o.cfg.MinTestBars,
		Cash:         o.cfg.Cash,
		Commission:   o.cfg.Commission,
		Simulator:    sim,
		Logger:       &evalLogger,
	})

	selectorLogger := o.logger.With().Str("component", "selector").Logger()
	selector := optimize.NewSelector(&optimize.SelectorConfig{
		FastPeriods: o.cfg.FastPeriods,
		SlowPeriods: o.cfg.SlowPeriods,
		TrainYears:  o.cfg.TrainYears,
		TestYears:   o.cfg.TestYears,
		StepYears:   o.cfg.StepYears,
		Weights:     o.cfg.Weights,
		Evaluator:   evaluator,
		Logger:      &selectorLogger,
	})

	learnSeries := make(map[string]shared.Series, len(learn))
	for _, ticker := range learn {
		learnSeries[ticker] = inSample[ticker]
	}

	result, err := selector.Select(ctx, learnSeries)
	if err != nil {
		if errors.Is(err, optimize.ErrNoScoreableCandidates) {
			return fmt.Errorf("%s: %w", strat.Name(), err)
		}
		return fmt.Errorf("%s: selecting parameters: %w", strat.Name(), err)
	}

	o.logger.Info().Msgf("%s: best params %s score=%.4f stable=%t",
		strat.Name(), result.Best.String(), result.Score, result.Stable)

	outDir := fmt.Sprintf("%s/%s", o.cfg.OutputDir, strat.Name())
	if err := report.SaveParams(outDir, result.Best, result.Score, result.Stable); err != nil {
		o.logger.Error().Err(err).Msgf("%s: saving params failed", strat.Name())
	}

	// Validate the winner out of sample and on the holdout tail.
	o.evaluateOOS(evaluator, inSample, oos, result.Best, outDir)
	o.evaluateHoldout(sim, holdout, oos, result.Best, outDir)

	o.persistRun(ctx, strat, result)

	return nil
}

// Run executes one full selection run across the enabled strategies.
func (o *Optimizer) Run(ctx context.Context) error {
	learn, oos := o.tickerSets()
	o.logger.Info().Msgf("learn tickers: %v", learn)
	o.logger.Info().Msgf("oos tickers: %v", oos)

	all := append(append([]string{}, learn...), oos...)
	sort.Strings(all)

	full := o.dataMgr.Load(ctx, all, o.cfg.StartDate, time.Time{})

	inSample := make(map[string]shared.Series, len(full))
	holdout := make(map[string]shared.Series, len(full))
	for ticker, sr := range full {
		ins, ho := fetch.SplitHoldout(sr, o.cfg.HoldoutMonths)
		inSample[ticker] = ins
		holdout[ticker] = ho
	}

	var errs error
	for _, strat := range o.strategies {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.runStrategy(ctx, strat, inSample, holdout, learn, oos); err != nil {
			// A strategy with no scoreable candidates does not abort the
			// remaining strategies.
			o.logger.Error().Err(err).Msg("strategy run failed")
			errs = errors.Join(errs, err)
		}
	}

	return errs
}
