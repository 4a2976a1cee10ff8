// Package report persists grid search outputs for downstream consumers: per
// ticker fold tables as CSV, median summaries as JSON and out of sample
// equity curves as CSV.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dnldd/gridwalk/metrics"
	"github.com/dnldd/gridwalk/shared"
	"github.com/gocarina/gocsv"
)

// foldRow is the CSV projection of a fold result. Unavailable metrics render
// as empty cells, never as zero.
type foldRow struct {
	Ticker      string `csv:"ticker"`
	Fast        int    `csv:"n_fast"`
	Slow        int    `csv:"n_slow"`
	TrainStart  string `csv:"train_start"`
	TrainEnd    string `csv:"train_end"`
	TestStart   string `csv:"test_start"`
	TestEnd     string `csv:"test_end"`
	Trades      int    `csv:"trades"`
	Return      string `csv:"return_percent"`
	Sharpe      string `csv:"sharpe_ratio"`
	MaxDrawdown string `csv:"max_drawdown_percent"`
}

// equityRow is the CSV projection of an equity curve point.
type equityRow struct {
	Date   string  `csv:"date"`
	Equity float64 `csv:"equity"`
}

// Summary represents the median summary of a fold collection.
type Summary struct {
	Folds             int      `json:"folds"`
	MedianSharpe      *float64 `json:"median_sharpe"`
	MedianReturn      *float64 `json:"median_return_percent"`
	MedianMaxDrawdown *float64 `json:"median_max_drawdown_percent"`
	TradesTotal       int      `json:"trades_total"`
}

// cell renders a metric as a CSV cell.
func cell(m shared.Metric) string {
	if !m.Valid {
		return ""
	}
	return fmt.Sprintf("%.6f", m.Value)
}

// dateCell renders a date as a CSV cell. A zero date means the fold has no
// such bound, like the train range of a plain holdout simulation, and
// renders empty.
func dateCell(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(shared.DateLayout)
}

// Summarize reduces a fold collection to its median summary. Medians exclude
// unavailable metrics; a nil field means no fold produced the statistic.
func Summarize(folds []shared.FoldResult) Summary {
	summary := Summary{Folds: len(folds)}

	var sharpes, returns, drawdowns []float64
	for idx := range folds {
		summary.TradesTotal += folds[idx].Trades
		if folds[idx].SharpeRatio.Valid {
			sharpes = append(sharpes, folds[idx].SharpeRatio.Value)
		}
		if folds[idx].ReturnPercent.Valid {
			returns = append(returns, folds[idx].ReturnPercent.Value)
		}
		if folds[idx].MaxDrawdownPercent.Valid {
			drawdowns = append(drawdowns, folds[idx].MaxDrawdownPercent.Value)
		}
	}

	if med, ok := metrics.Median(sharpes); ok {
		summary.MedianSharpe = &med
	}
	if med, ok := metrics.Median(returns); ok {
		summary.MedianReturn = &med
	}
	if med, ok := metrics.Median(drawdowns); ok {
		summary.MedianMaxDrawdown = &med
	}

	return summary
}

// basename flattens a ticker label into a filesystem friendly base name.
func basename(label string) string {
	return strings.ReplaceAll(label, ".", "_")
}

// SaveOutputs writes the fold table, its summary and the equity curve for one
// labelled ticker evaluation to the output directory. It returns the fold
// table path.
func SaveOutputs(outDir string, label string, folds []shared.FoldResult, curve []shared.EquityPoint) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	base := basename(label)

	rows := make([]foldRow, len(folds))
	for idx := range folds {
		fold := &folds[idx]
		rows[idx] = foldRow{
			Ticker:      fold.Ticker,
			Fast:        fold.Params.Fast,
			Slow:        fold.Params.Slow,
			TrainStart:  dateCell(fold.TrainStart),
			TrainEnd:    dateCell(fold.TrainEnd),
			TestStart:   dateCell(fold.TestStart),
			TestEnd:     dateCell(fold.TestEnd),
			Trades:      fold.Trades,
			Return:      cell(fold.ReturnPercent),
			Sharpe:      cell(fold.SharpeRatio),
			MaxDrawdown: cell(fold.MaxDrawdownPercent),
		}
	}

	foldPath := filepath.Join(outDir, fmt.Sprintf("%s_walkforward_result.csv", base))
	foldFile, err := os.Create(foldPath)
	if err != nil {
		return "", fmt.Errorf("creating fold table: %w", err)
	}
	defer foldFile.Close()

	if err := gocsv.MarshalFile(&rows, foldFile); err != nil {
		return "", fmt.Errorf("writing fold table: %w", err)
	}

	summary := Summarize(folds)
	summaryBytes, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}

	summaryPath := filepath.Join(outDir, fmt.Sprintf("%s_summary.json", base))
	if err := os.WriteFile(summaryPath, summaryBytes, 0o644); err != nil {
		return "", fmt.Errorf("writing summary: %w", err)
	}

	if len(curve) > 0 {
		equityRows := make([]equityRow, len(curve))
		for idx := range curve {
			equityRows[idx] = equityRow{
				Date:   curve[idx].Date.Format(shared.DateLayout),
				Equity: curve[idx].Equity,
			}
		}

		equityPath := filepath.Join(outDir, fmt.Sprintf("%s_equity.csv", base))
		equityFile, err := os.Create(equityPath)
		if err != nil {
			return "", fmt.Errorf("creating equity curve: %w", err)
		}
		defer equityFile.Close()

		if err := gocsv.MarshalFile(&equityRows, equityFile); err != nil {
			return "", fmt.Errorf("writing equity curve: %w", err)
		}
	}

	return foldPath, nil
}

// SaveParams writes the selected parameters and score for a strategy run.
func SaveParams(outDir string, best shared.ParamSet, score float64, stable bool) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	content := fmt.Sprintf("best_n_fast=%d\nbest_n_slow=%d\nscore=%.6f\nstable=%t\n",
		best.Fast, best.Slow, score, stable)

	path := filepath.Join(outDir, "_params.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing params file: %w", err)
	}

	return nil
}
