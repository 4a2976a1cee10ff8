package report

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"github.com/dnldd/gridwalk/shared"
)

func testFolds() []shared.FoldResult {
	params := shared.ParamSet{Fast: 10, Slow: 40}
	return []shared.FoldResult{
		{
			Ticker:             "AAPL",
			Params:             params,
			TrainStart:         time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
			TrainEnd:           time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC),
			TestStart:          time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			TestEnd:            time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			Trades:             8,
			ReturnPercent:      shared.MetricOf(12.5),
			SharpeRatio:        shared.MetricOf(1.1),
			MaxDrawdownPercent: shared.MetricOf(7.5),
		},
		{
			Ticker:             "AAPL",
			Params:             params,
			Trades:             4,
			ReturnPercent:      shared.MetricOf(-2.5),
			SharpeRatio:        shared.MetricOf(0.3),
			MaxDrawdownPercent: shared.MetricOf(12.5),
		},
		{
			Ticker:             "AAPL",
			Params:             params,
			Trades:             0,
			ReturnPercent:      shared.NoMetric(),
			SharpeRatio:        shared.NoMetric(),
			MaxDrawdownPercent: shared.NoMetric(),
		},
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize(testFolds())

	assert.Equal(t, summary.Folds, 3)
	assert.Equal(t, summary.TradesTotal, 12)

	// Medians exclude the fold with unavailable metrics.
	assert.NotNil(t, summary.MedianSharpe)
	if math.Abs(*summary.MedianSharpe-0.7) > 1e-9 {
		t.Errorf("expected median sharpe 0.7, got %v", *summary.MedianSharpe)
	}
	assert.NotNil(t, summary.MedianReturn)
	if math.Abs(*summary.MedianReturn-5) > 1e-9 {
		t.Errorf("expected median return 5, got %v", *summary.MedianReturn)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)

	assert.Equal(t, summary.Folds, 0)
	assert.Nil(t, summary.MedianSharpe)
	assert.Nil(t, summary.MedianReturn)
	assert.Nil(t, summary.MedianMaxDrawdown)

	// Absent medians serialize as explicit nulls.
	encoded, err := json.Marshal(summary)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(encoded), `"median_sharpe":null`))
}

func TestSaveOutputs(t *testing.T) {
	outDir := t.TempDir()

	curve := []shared.EquityPoint{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Equity: 10_000},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Equity: 10_100},
	}

	foldPath, err := SaveOutputs(outDir, "7203.T", testFolds(), curve)
	assert.NoError(t, err)
	assert.Equal(t, foldPath, filepath.Join(outDir, "7203_T_walkforward_result.csv"))

	table, err := os.ReadFile(foldPath)
	assert.NoError(t, err)

	content := string(table)
	assert.True(t, strings.Contains(content, "n_fast"))
	assert.True(t, strings.Contains(content, "2015-01-01"))

	// The fold with unavailable metrics renders empty cells, not zeroes, and
	// its unset date bounds render empty rather than as the zero time.
	lines := strings.Split(strings.TrimSpace(content), "\n")
	assert.Equal(t, len(lines), 4)
	assert.Equal(t, strings.TrimSpace(lines[3]), "AAPL,10,40,,,,,0,,,")
	assert.False(t, strings.Contains(content, "0001-01-01"))

	summaryBytes, err := os.ReadFile(filepath.Join(outDir, "7203_T_summary.json"))
	assert.NoError(t, err)

	var summary Summary
	assert.NoError(t, json.Unmarshal(summaryBytes, &summary))
	assert.Equal(t, summary.Folds, 3)

	equityBytes, err := os.ReadFile(filepath.Join(outDir, "7203_T_equity.csv"))
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(equityBytes), "2024-01-02"))
}

func TestSaveOutputsSkipsEmptyCurve(t *testing.T) {
	outDir := t.TempDir()

	_, err := SaveOutputs(outDir, "AAPL", testFolds(), nil)
	assert.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(outDir, "AAPL_equity.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveParams(t *testing.T) {
	outDir := t.TempDir()

	err := SaveParams(outDir, shared.ParamSet{Fast: 10, Slow: 40}, 1.2345, true)
	assert.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(outDir, "_params.txt"))
	assert.NoError(t, err)

	assert.True(t, strings.Contains(string(content), "best_n_fast=10"))
	assert.True(t, strings.Contains(string(content), "best_n_slow=40"))
	assert.True(t, strings.Contains(string(content), "stable=true"))
}
