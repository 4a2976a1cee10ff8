package strategy

import (
	"errors"
	"math"
	"testing"

	"github.com/peterldowns/testy/assert"

	"github.com/dnldd/gridwalk/shared"
)

// scriptedStrategy returns a fixed exposure script regardless of the series.
type scriptedStrategy struct {
	exposures []float64
	err       error
}

func (s *scriptedStrategy) Name() string {
	return "Scripted"
}

func (s *scriptedStrategy) Exposures(series shared.Series, params shared.ParamSet) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.exposures, nil
}

var _ Strategy = (*scriptedStrategy)(nil)

func TestSimulatorLongRoundTrip(t *testing.T) {
	series := seriesFromCloses(t, []float64{100, 110, 120, 130})
	sim := NewSimulator(&scriptedStrategy{exposures: []float64{1, 1, 0, 0}})

	trades, summary, curve, err := sim.Run(series, shared.ParamSet{Fast: 2, Slow: 3}, 10_000, 0.002)
	assert.NoError(t, err)

	assert.Equal(t, len(trades), 1)
	trade := trades[0]
	assert.Equal(t, trade.Direction, shared.Long)
	assert.Equal(t, trade.EntryPrice, float64(100))
	assert.Equal(t, trade.ExitPrice, float64(120))

	// 100 units, 20 entry commission, 24 exit commission.
	if math.Abs(trade.PNL-1956) > 1e-9 {
		t.Errorf("expected trade pnl 1956, got %v", trade.PNL)
	}

	assert.True(t, summary.ReturnPercent.Valid)
	if math.Abs(summary.ReturnPercent.Value-19.56) > 1e-9 {
		t.Errorf("expected 19.56%% return, got %v", summary.ReturnPercent.Value)
	}

	assert.Equal(t, len(curve), series.Len())
	assert.Equal(t, curve[len(curve)-1].Date, series.End())
}

func TestSimulatorShortRoundTrip(t *testing.T) {
	series := seriesFromCloses(t, []float64{100, 90})
	sim := NewSimulator(&scriptedStrategy{exposures: []float64{-1, -1}})

	trades, summary, _, err := sim.Run(series, shared.ParamSet{Fast: 2, Slow: 3}, 10_000, 0.002)
	assert.NoError(t, err)

	// The position is still open at the end of the series and closes on the
	// final bar.
	assert.Equal(t, len(trades), 1)
	trade := trades[0]
	assert.Equal(t, trade.Direction, shared.Short)
	assert.Equal(t, trade.ExitDate, series.End())

	// 100 units short from 100 to 90, 20 entry and 18 exit commission.
	if math.Abs(trade.PNL-962) > 1e-9 {
		t.Errorf("expected trade pnl 962, got %v", trade.PNL)
	}

	assert.True(t, summary.MaxDrawdownPercent.Valid)
}

func TestSimulatorReversalClosesBeforeOpening(t *testing.T) {
	series := seriesFromCloses(t, []float64{100, 110, 105, 100, 95})
	sim := NewSimulator(&scriptedStrategy{exposures: []float64{1, 1, -1, -1, -1}})

	trades, _, _, err := sim.Run(series, shared.ParamSet{Fast: 2, Slow: 3}, 10_000, 0)
	assert.NoError(t, err)

	assert.Equal(t, len(trades), 2)
	assert.Equal(t, trades[0].Direction, shared.Long)
	assert.Equal(t, trades[1].Direction, shared.Short)

	// The reversal bar closes the long and opens the short at the same price.
	assert.Equal(t, trades[0].ExitPrice, trades[1].EntryPrice)
	assert.Equal(t, trades[0].ExitDate, trades[1].EntryDate)
}

func TestSimulatorFlatScript(t *testing.T) {
	series := seriesFromCloses(t, []float64{100, 101, 102})
	sim := NewSimulator(&scriptedStrategy{exposures: []float64{0, 0, 0}})

	trades, summary, curve, err := sim.Run(series, shared.ParamSet{Fast: 2, Slow: 3}, 10_000, 0.002)
	assert.NoError(t, err)

	assert.Equal(t, len(trades), 0)
	assert.Equal(t, summary.Trades, 0)
	assert.Equal(t, summary.ReturnPercent.Value, float64(0))

	// A flat equity curve has no variance, the sharpe ratio is unavailable
	// rather than zero.
	assert.False(t, summary.SharpeRatio.Valid)
	assert.Equal(t, summary.MaxDrawdownPercent.Value, float64(0))
	assert.Equal(t, len(curve), 3)
}

func TestSimulatorRunErrors(t *testing.T) {
	params := shared.ParamSet{Fast: 2, Slow: 3}

	tests := []struct {
		name   string
		series shared.Series
		sim    *Simulator
		cash   float64
	}{
		{
			name:   "empty series",
			series: shared.Series{Ticker: "AAA"},
			sim:    NewSimulator(&scriptedStrategy{}),
			cash:   10_000,
		},
		{
			name:   "non-positive cash",
			series: seriesFromCloses(t, []float64{100, 101}),
			sim:    NewSimulator(&scriptedStrategy{exposures: []float64{0, 0}}),
			cash:   0,
		},
		{
			name:   "strategy error",
			series: seriesFromCloses(t, []float64{100, 101}),
			sim:    NewSimulator(&scriptedStrategy{err: errors.New("no exposures")}),
			cash:   10_000,
		},
		{
			name:   "exposure length mismatch",
			series: seriesFromCloses(t, []float64{100, 101}),
			sim:    NewSimulator(&scriptedStrategy{exposures: []float64{1}}),
			cash:   10_000,
		},
	}

	for _, test := range tests {
		_, _, _, err := test.sim.Run(test.series, params, test.cash, 0.002)
		if err == nil {
			t.Errorf("%s: expected an error", test.name)
		}
	}
}

func TestMaxDrawdownPercent(t *testing.T) {
	curve := []shared.EquityPoint{
		{Equity: 100}, {Equity: 120}, {Equity: 90}, {Equity: 130}, {Equity: 110},
	}

	// Peak 120 to trough 90 is the deepest decline.
	got := maxDrawdownPercent(curve)
	if math.Abs(got-25) > 1e-9 {
		t.Errorf("expected 25%% drawdown, got %v", got)
	}

	assert.Equal(t, maxDrawdownPercent(nil), float64(0))
}
