package shared

import "time"

// Direction represents the direction of a position.
type Direction int

const (
	Flat Direction = iota
	Long
	Short
)

// String returns a human readable representation of the direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// Trade represents a closed trade produced by a simulation.
type Trade struct {
	// Ticker is the traded ticker symbol.
	Ticker string
	// Direction is the direction of the trade.
	Direction Direction
	// Size is the traded equity fraction at entry.
	Size float64
	// EntryDate and EntryPrice describe the trade entry.
	EntryDate  time.Time
	EntryPrice float64
	// ExitDate and ExitPrice describe the trade exit.
	ExitDate  time.Time
	ExitPrice float64
	// PNL is the profit or loss of the trade in cash terms, net of
	// commission.
	PNL float64
}

// Summary represents the summary statistics of one simulation.
type Summary struct {
	// Trades is the number of closed trades.
	Trades int
	// ReturnPercent is the total return of the simulation.
	ReturnPercent Metric
	// SharpeRatio is the annualized sharpe ratio of daily equity returns.
	SharpeRatio Metric
	// MaxDrawdownPercent is the maximum peak to trough equity decline.
	MaxDrawdownPercent Metric
}
