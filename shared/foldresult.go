package shared

import "time"

// FoldResult represents the outcome of simulating one parameter set on one
// test window of one ticker.
type FoldResult struct {
	// Ticker is the evaluated ticker symbol.
	Ticker string
	// Params is the evaluated parameter set.
	Params ParamSet
	// TrainStart and TrainEnd bound the training window of the fold.
	TrainStart time.Time
	TrainEnd   time.Time
	// TestStart and TestEnd bound the test window of the fold.
	TestStart time.Time
	TestEnd   time.Time
	// Trades is the number of closed trades produced on the test window.
	Trades int
	// ReturnPercent is the total return over the test window.
	ReturnPercent Metric
	// SharpeRatio is the annualized sharpe ratio over the test window.
	SharpeRatio Metric
	// MaxDrawdownPercent is the maximum peak to trough equity decline over
	// the test window.
	MaxDrawdownPercent Metric
}

// EquityPoint represents a point on a cumulative equity curve.
type EquityPoint struct {
	Date   time.Time
	Equity float64
}
