package optimize

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"

	"github.com/dnldd/gridwalk/metrics"
	"github.com/dnldd/gridwalk/shared"
	"github.com/dnldd/gridwalk/walkforward"
	"github.com/rs/zerolog"
)

const (
	// maxWorkersCap caps the evaluation worker pool size.
	maxWorkersCap = 6
)

// ErrNoScoreableCandidates is returned when every parameter set in the grid
// failed to produce a valid fold across all tickers. Callers must decide
// whether to abort the strategy run or retry with a different ticker set.
var ErrNoScoreableCandidates = errors.New("no scoreable candidates")

// SelectorConfig represents the configuration for the candidate selector.
type SelectorConfig struct {
	// FastPeriods are the candidate fast moving average windows.
	FastPeriods []int
	// SlowPeriods are the candidate slow moving average windows.
	SlowPeriods []int
	// TrainYears, TestYears and StepYears shape the walk-forward windows.
	TrainYears int
	TestYears  int
	StepYears  int
	// FastOffsets and SlowOffsets generate the parameter neighborhood used
	// by the stability gate.
	FastOffsets []int
	SlowOffsets []int
	// Weights is the robust score weighting.
	Weights metrics.Weights
	// MaxWorkers bounds the evaluation worker pool. Zero selects
	// min(max(1, NumCPU-1), 6).
	MaxWorkers int
	// Evaluator runs individual folds.
	Evaluator *walkforward.Evaluator
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Selector orchestrates a full parameter grid search: it evaluates every
// ticker and parameter combination across walk-forward windows, aggregates
// fold results per parameter set, ranks candidates by robust score and picks
// the highest scoring candidate that passes the stability gate.
type Selector struct {
	cfg *SelectorConfig
}

// Result represents the outcome of one grid search session. Only the winner
// and its supporting evidence are retained.
type Result struct {
	// Best is the selected parameter set.
	Best shared.ParamSet
	// Score is the robust score of the selected parameter set.
	Score float64
	// Stable reports whether the winner passed the stability gate or was a
	// fallback pick.
	Stable bool
	// Folds are the fold results supporting the winner.
	Folds []shared.FoldResult
	// Scores maps every scored parameter set to its robust score.
	Scores map[shared.ParamSet]float64
}

// NewSelector initializes a new candidate selector.
func NewSelector(cfg *SelectorConfig) *Selector {
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = min(max(1, runtime.NumCPU()-1), maxWorkersCap)
	}
	if len(cfg.FastOffsets) == 0 {
		cfg.FastOffsets = []int{-5, 0, 5}
	}
	if len(cfg.SlowOffsets) == 0 {
		cfg.SlowOffsets = []int{-20, 0, 20}
	}

	return &Selector{cfg: cfg}
}

// EnumerateGrid builds the full parameter grid. Combinations violating the
// validity predicate are excluded here and never evaluated.
func (s *Selector) EnumerateGrid() []shared.ParamSet {
	grid := make([]shared.ParamSet, 0, len(s.cfg.FastPeriods)*len(s.cfg.SlowPeriods))
	for _, fast := range s.cfg.FastPeriods {
		for _, slow := range s.cfg.SlowPeriods {
			params := shared.ParamSet{Fast: fast, Slow: slow}
			if params.Valid() {
				grid = append(grid, params)
			}
		}
	}
	return grid
}

// Neighborhood generates the small parameter perturbations of the provided
// parameter set, excluding invalid combinations. The zero offset pair is kept
// so the candidate participates in its own neighborhood median, matching the
// behavior the scoring history was built on.
func (s *Selector) Neighborhood(params shared.ParamSet) []shared.ParamSet {
	hood := make([]shared.ParamSet, 0, len(s.cfg.FastOffsets)*len(s.cfg.SlowOffsets))
	for _, df := range s.cfg.FastOffsets {
		for _, ds := range s.cfg.SlowOffsets {
			neighbor := shared.ParamSet{Fast: params.Fast + df, Slow: params.Slow + ds}
			if neighbor.Valid() {
				hood = append(hood, neighbor)
			}
		}
	}
	return hood
}

// task represents one independent (ticker, parameter set) evaluation unit.
type task struct {
	ticker string
	series shared.Series
	params shared.ParamSet
}

// taskResult carries the folds produced by one task.
type taskResult struct {
	params shared.ParamSet
	folds  []shared.FoldResult
}

// Select runs a full grid search over the provided tickers and their series
// and returns the selected parameter set with its score. It returns
// ErrNoScoreableCandidates when no parameter set produced a valid fold.
func (s *Selector) Select(ctx context.Context, series map[string]shared.Series) (*Result, error) {
	grid := s.EnumerateGrid()
	if len(grid) == 0 {
		return nil, ErrNoScoreableCandidates
	}

	tickers := make([]string, 0, len(series))
	for ticker := range series {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	// Enumerate evaluation tasks, skipping tickers with no usable data. A
	// skipped ticker is excluded for that ticker only, never a global
	// failure.
	tasks := make([]task, 0, len(tickers)*len(grid))
	for _, ticker := range tickers {
		sr := series[ticker]
		if sr.Empty() {
			s.cfg.Logger.Warn().Msgf("%s: no data, skipping", ticker)
			continue
		}
		for _, params := range grid {
			tasks = append(tasks, task{ticker: ticker, series: sr, params: params})
		}
	}

	results := s.evaluate(ctx, tasks)

	// Group fold results by parameter set across all tickers and windows.
	// Grouping is order independent, the enumeration order of the grid is
	// what seeds the ranking tie-break below.
	folds := make(map[shared.ParamSet][]shared.FoldResult)
	for idx := range results {
		res := &results[idx]
		folds[res.params] = append(folds[res.params], res.folds...)
	}

	scores := make(map[shared.ParamSet]float64)
	candidates := make([]shared.ParamSet, 0, len(grid))
	for _, params := range grid {
		paramFolds, ok := folds[params]
		if !ok || len(paramFolds) == 0 {
			continue
		}
		score := metrics.Score(paramFolds, s.cfg.Weights)
		if score == metrics.EmptyScore {
			// Every fold is a recorded simulation failure. No evidence,
			// not a candidate.
			continue
		}
		scores[params] = score
		candidates = append(candidates, params)
	}

	if len(candidates) == 0 {
		return nil, ErrNoScoreableCandidates
	}

	// Rank candidates by score descending. The sort is stable so score ties
	// break by enumeration order, first seen wins.
	sort.SliceStable(candidates, func(i, j int) bool {
		return scores[candidates[i]] > scores[candidates[j]]
	})

	// Walk the ranking best to worst and select the first candidate passing
	// the stability gate.
	for _, params := range candidates {
		if metrics.IsStable(scores[params], s.Neighborhood(params), scores, s.cfg.Weights) {
			return &Result{
				Best:   params,
				Score:  scores[params],
				Stable: true,
				Folds:  folds[params],
				Scores: scores,
			}, nil
		}
	}

	// No candidate passed the gate, fall back to the top scorer. The search
	// always returns a decision.
	best := candidates[0]
	s.cfg.Logger.Warn().Msgf("no stable candidate, falling back to top scorer %s", best.String())

	return &Result{
		Best:   best,
		Score:  scores[best],
		Stable: false,
		Folds:  folds[best],
		Scores: scores,
	}, nil
}

// evaluate runs the provided tasks on a fixed size worker pool and joins
// before returning. Tasks are fully self contained, they share no mutable
// state and require no locking beyond the result collection.
func (s *Selector) evaluate(ctx context.Context, tasks []task) []taskResult {
	workers := make(chan struct{}, s.cfg.MaxWorkers)
	resultCh := make(chan taskResult, len(tasks))

	var wg sync.WaitGroup
	for idx := range tasks {
		if ctx.Err() != nil {
			break
		}

		workers <- struct{}{}
		wg.Add(1)
		go func(tk task) {
			defer func() {
				<-workers
				wg.Done()
			}()

			windows := walkforward.Windows(tk.series.Start(), tk.series.End(),
				s.cfg.TrainYears, s.cfg.TestYears, s.cfg.StepYears)

			folds := make([]shared.FoldResult, 0, len(windows))
			for widx := range windows {
				fold, ok := s.cfg.Evaluator.Evaluate(tk.series, tk.params, windows[widx])
				if !ok {
					continue
				}
				folds = append(folds, fold)
			}

			resultCh <- taskResult{params: tk.params, folds: folds}
		}(tasks[idx])
	}

	wg.Wait()
	close(resultCh)

	results := make([]taskResult, 0, len(tasks))
	for res := range resultCh {
		results = append(results, res)
	}

	return results
}
