package shared

import (
	"context"
	"time"

	"github.com/tidwall/gjson"
)

// MarketFetcher defines the requirements for fetching daily market data.
type MarketFetcher interface {
	// FetchDailyHistorical fetches end of day historical market data.
	FetchDailyHistorical(ctx context.Context, ticker string, start time.Time, end time.Time) ([]gjson.Result, error)
}

// Simulator defines the requirements for replaying a series with a parameter
// set and reporting the resulting trades, summary statistics and equity curve.
type Simulator interface {
	// Run simulates the provided series with the provided parameter set,
	// starting cash and commission rate.
	Run(series Series, params ParamSet, cash float64, commission float64) ([]Trade, Summary, []EquityPoint, error)
}
