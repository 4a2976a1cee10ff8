package walkforward

import (
	"github.com/dnldd/gridwalk/shared"
	"github.com/rs/zerolog"
)

const (
	// DefaultMinTrainBars is the default data sufficiency gate for the
	// training slice of a fold.
	DefaultMinTrainBars = 200
	// DefaultMinTestBars is the default data sufficiency gate for the test
	// slice of a fold.
	DefaultMinTestBars = 50
	// DefaultCash is the default simulation starting cash.
	DefaultCash = float64(10_000)
	// DefaultCommission is the default simulation commission rate.
	DefaultCommission = 0.002
)

// EvaluatorConfig represents the configuration for the fold evaluator.
type EvaluatorConfig struct {
	// MinTrainBars is the minimum bar count required of a training slice.
	MinTrainBars int
	// MinTestBars is the minimum bar count required of a test slice.
	MinTestBars int
	// Cash is the simulation starting cash.
	Cash float64
	// Commission is the simulation commission rate.
	Commission float64
	// Simulator runs strategy simulations on test slices.
	Simulator shared.Simulator
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Evaluator runs one strategy simulation per walk-forward fold. The training
// slice is not fitted on, its length only gates data sufficiency; simulation
// runs on the test slice alone.
type Evaluator struct {
	cfg *EvaluatorConfig
}

// NewEvaluator initializes a new fold evaluator.
func NewEvaluator(cfg *EvaluatorConfig) *Evaluator {
	if cfg.MinTrainBars == 0 {
		cfg.MinTrainBars = DefaultMinTrainBars
	}
	if cfg.MinTestBars == 0 {
		cfg.MinTestBars = DefaultMinTestBars
	}
	if cfg.Cash == 0 {
		cfg.Cash = DefaultCash
	}
	if cfg.Commission == 0 {
		cfg.Commission = DefaultCommission
	}

	return &Evaluator{cfg: cfg}
}

// emptyFold returns the fold result recorded when a simulation fails: zero
// trades, all metrics unavailable.
func emptyFold(ticker string, params shared.ParamSet, window Window) shared.FoldResult {
	return shared.FoldResult{
		Ticker:             ticker,
		Params:             params,
		TrainStart:         window.TrainStart,
		TrainEnd:           window.TrainEnd,
		TestStart:          window.TestStart,
		TestEnd:            window.TestEnd,
		ReturnPercent:      shared.NoMetric(),
		SharpeRatio:        shared.NoMetric(),
		MaxDrawdownPercent: shared.NoMetric(),
	}
}

// simulate invokes the simulator, converting panics from strategy numeric
// edge cases into errors so a single bad fold cannot abort a sweep.
func (e *Evaluator) simulate(series shared.Series, params shared.ParamSet) (summary shared.Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &shared.SimulationError{Ticker: series.Ticker, Params: params, Cause: r}
		}
	}()

	_, summary, _, err = e.cfg.Simulator.Run(series, params, e.cfg.Cash, e.cfg.Commission)
	return summary, err
}

// Evaluate runs one fold for the provided series, parameter set and window.
// The returned flag is false when the fold was skipped for insufficient data
// and contributes no result.
func (e *Evaluator) Evaluate(series shared.Series, params shared.ParamSet, window Window) (shared.FoldResult, bool) {
	train := series.SliceRange(window.TrainStart, window.TrainEnd)
	test := series.SliceRange(window.TestStart, window.TestEnd)

	if train.Len() < e.cfg.MinTrainBars || test.Len() < e.cfg.MinTestBars {
		return shared.FoldResult{}, false
	}

	summary, err := e.simulate(test, params)
	if err != nil {
		e.cfg.Logger.Error().Err(err).Msgf("%s: simulation failed for %s on window %s",
			series.Ticker, params.String(), window.String())
		return emptyFold(series.Ticker, params, window), true
	}

	return shared.FoldResult{
		Ticker:             series.Ticker,
		Params:             params,
		TrainStart:         window.TrainStart,
		TrainEnd:           window.TrainEnd,
		TestStart:          window.TestStart,
		TestEnd:            window.TestEnd,
		Trades:             summary.Trades,
		ReturnPercent:      summary.ReturnPercent,
		SharpeRatio:        summary.SharpeRatio,
		MaxDrawdownPercent: summary.MaxDrawdownPercent,
	}, true
}

// EvaluateAll runs every provided window for the series and parameter set,
// returning the produced folds and the concatenated out of sample equity
// curve across test windows.
func (e *Evaluator) EvaluateAll(series shared.Series, params shared.ParamSet, windows []Window) ([]shared.FoldResult, []shared.EquityPoint) {
	folds := make([]shared.FoldResult, 0, len(windows))
	curve := []shared.EquityPoint{}

	for idx := range windows {
		window := windows[idx]
		train := series.SliceRange(window.TrainStart, window.TrainEnd)
		test := series.SliceRange(window.TestStart, window.TestEnd)
		if train.Len() < e.cfg.MinTrainBars || test.Len() < e.cfg.MinTestBars {
			continue
		}

		summary, foldCurve, err := e.simulateWithCurve(test, params)
		if err != nil {
			e.cfg.Logger.Error().Err(err).Msgf("%s: simulation failed for %s on window %s",
				series.Ticker, params.String(), window.String())
			folds = append(folds, emptyFold(series.Ticker, params, window))
			continue
		}

		folds = append(folds, shared.FoldResult{
			Ticker:             series.Ticker,
			Params:             params,
			TrainStart:         window.TrainStart,
			TrainEnd:           window.TrainEnd,
			TestStart:          window.TestStart,
			TestEnd:            window.TestEnd,
			Trades:             summary.Trades,
			ReturnPercent:      summary.ReturnPercent,
			SharpeRatio:        summary.SharpeRatio,
			MaxDrawdownPercent: summary.MaxDrawdownPercent,
		})
		curve = append(curve, foldCurve...)
	}

	return folds, curve
}

// simulateWithCurve invokes the simulator keeping the equity curve,
// converting panics into errors like simulate.
func (e *Evaluator) simulateWithCurve(series shared.Series, params shared.ParamSet) (summary shared.Summary, curve []shared.EquityPoint, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &shared.SimulationError{Ticker: series.Ticker, Params: params, Cause: r}
		}
	}()

	_, summary, curve, err = e.cfg.Simulator.Run(series, params, e.cfg.Cash, e.cfg.Commission)
	return summary, curve, err
}
