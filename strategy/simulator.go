package strategy

import (
	"fmt"
	"math"

	"github.com/dnldd/gridwalk/shared"
	"gonum.org/v1/gonum/stat"
)

// Simulator replays a series bar by bar against a strategy's target
// exposures, producing trade records, summary statistics and an equity curve.
// Orders are exclusive: a change in target direction closes the open position
// before a new one is opened, at the closing price of the signalling bar.
type Simulator struct {
	strategy Strategy
}

// Ensure the Simulator implements the shared.Simulator interface.
var _ shared.Simulator = (*Simulator)(nil)

// NewSimulator initializes a simulator for the provided strategy.
func NewSimulator(strategy Strategy) *Simulator {
	return &Simulator{strategy: strategy}
}

// position tracks the open position of a simulation run.
type position struct {
	direction  shared.Direction
	size       float64
	units      float64
	entryDate  int
	entryPrice float64
	commission float64
}

// direction maps a target exposure to a position direction.
func direction(exposure float64) shared.Direction {
	switch {
	case exposure > 0:
		return shared.Long
	case exposure < 0:
		return shared.Short
	default:
		return shared.Flat
	}
}

// sign returns the price move multiplier for the provided direction.
func sign(d shared.Direction) float64 {
	switch d {
	case shared.Long:
		return 1
	case shared.Short:
		return -1
	default:
		return 0
	}
}

// Run simulates the provided series with the provided parameter set, starting
// cash and commission rate.
func (s *Simulator) Run(series shared.Series, params shared.ParamSet, cash float64, commission float64) ([]shared.Trade, shared.Summary, []shared.EquityPoint, error) {
	if series.Empty() {
		return nil, shared.Summary{}, nil, fmt.Errorf("%s: cannot simulate an empty series", series.Ticker)
	}
	if cash <= 0 {
		return nil, shared.Summary{}, nil, fmt.Errorf("starting cash must be positive, got %.2f", cash)
	}

	exposures, err := s.strategy.Exposures(series, params)
	if err != nil {
		return nil, shared.Summary{}, nil, fmt.Errorf("generating %s exposures: %w", s.strategy.Name(), err)
	}
	if len(exposures) != series.Len() {
		return nil, shared.Summary{}, nil, fmt.Errorf("%s: expected %d exposures, got %d",
			s.strategy.Name(), series.Len(), len(exposures))
	}

	bars := series.Bars
	equity := cash
	trades := []shared.Trade{}
	curve := make([]shared.EquityPoint, 0, len(bars))

	var open *position

	closeTrade := func(idx int) {
		exitPrice := bars[idx].Close
		exitCommission := open.units * exitPrice * commission
		equity -= exitCommission

		pnl := open.units*(exitPrice-open.entryPrice)*sign(open.direction) -
			open.commission - exitCommission

		trades = append(trades, shared.Trade{
			Ticker:     series.Ticker,
			Direction:  open.direction,
			Size:       open.size,
			EntryDate:  bars[open.entryDate].Date,
			EntryPrice: open.entryPrice,
			ExitDate:   bars[idx].Date,
			ExitPrice:  exitPrice,
			PNL:        pnl,
		})
		open = nil
	}

	for idx := range bars {
		// Mark the open position to the current close.
		if open != nil && idx > 0 {
			equity += open.units * (bars[idx].Close - bars[idx-1].Close) * sign(open.direction)
		}

		target := direction(exposures[idx])
		if open == nil || open.direction != target {
			if open != nil {
				closeTrade(idx)
			}

			if target != shared.Flat && bars[idx].Close > 0 {
				size := math.Abs(exposures[idx])
				units := equity * size / bars[idx].Close
				entryCommission := units * bars[idx].Close * commission
				equity -= entryCommission
				open = &position{
					direction:  target,
					size:       size,
					units:      units,
					entryDate:  idx,
					entryPrice: bars[idx].Close,
					commission: entryCommission,
				}
			}
		}

		curve = append(curve, shared.EquityPoint{Date: bars[idx].Date, Equity: equity})
	}

	if open != nil {
		closeTrade(len(bars) - 1)
		curve[len(curve)-1].Equity = equity
	}

	summary := summarize(cash, equity, len(trades), curve)

	return trades, summary, curve, nil
}

// summarize reduces an equity curve to summary statistics. The sharpe ratio
// is unavailable when the curve has no variance or too few returns to
// estimate it.
func summarize(cash float64, finalEquity float64, trades int, curve []shared.EquityPoint) shared.Summary {
	summary := shared.Summary{
		Trades:             trades,
		ReturnPercent:      shared.MetricOf((finalEquity/cash - 1) * 100),
		SharpeRatio:        shared.NoMetric(),
		MaxDrawdownPercent: shared.MetricOf(maxDrawdownPercent(curve)),
	}

	returns := make([]float64, 0, len(curve))
	for idx := 1; idx < len(curve); idx++ {
		prev := curve[idx-1].Equity
		if prev > 0 {
			returns = append(returns, curve[idx].Equity/prev-1)
		}
	}

	if len(returns) >= 2 {
		mean, std := stat.MeanStdDev(returns, nil)
		if std > 0 {
			summary.SharpeRatio = shared.MetricOf(mean / std * math.Sqrt(tradingDaysPerYear))
		}
	}

	return summary
}

// maxDrawdownPercent returns the maximum peak to trough decline of the curve.
func maxDrawdownPercent(curve []shared.EquityPoint) float64 {
	var peak, maxDD float64
	for idx := range curve {
		if curve[idx].Equity > peak {
			peak = curve[idx].Equity
		}
		if peak > 0 {
			dd := (peak - curve[idx].Equity) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
