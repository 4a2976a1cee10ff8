package strategy

import (
	"fmt"
	"math"

	"github.com/dnldd/gridwalk/shared"
	talib "github.com/markcheno/go-talib"
)

const (
	// tradingDaysPerYear is the number of trading days used to annualize
	// daily statistics.
	tradingDaysPerYear = 252
)

// Strategy defines the requirements for turning a series and a parameter set
// into per-bar target exposures. The set of supported strategies is closed,
// one implementation per strategy.
type Strategy interface {
	// Name returns the name of the strategy.
	Name() string
	// Exposures returns the target equity fraction for every bar of the
	// provided series. Positive fractions are long exposure, negative
	// fractions short exposure, zero is flat.
	Exposures(series shared.Series, params shared.ParamSet) ([]float64, error)
}

// FixedSMA represents the fixed simple moving average crossover strategy. It
// holds a full long position while the fast average is above the slow average
// and a full short position while it is below.
type FixedSMA struct{}

// Ensure FixedSMA implements the Strategy interface.
var _ Strategy = (*FixedSMA)(nil)

// NewFixedSMA initializes the fixed sma crossover strategy.
func NewFixedSMA() *FixedSMA {
	return &FixedSMA{}
}

// Name returns the name of the strategy.
func (s *FixedSMA) Name() string {
	return "FixedSma"
}

// Exposures returns the target equity fraction for every bar of the series.
func (s *FixedSMA) Exposures(series shared.Series, params shared.ParamSet) ([]float64, error) {
	if !params.Valid() {
		return nil, fmt.Errorf("invalid parameter set: %s", params.String())
	}

	closes := series.Closes()
	exposures := make([]float64, len(closes))
	if len(closes) < params.Slow {
		// Not enough bars to warm up the slow average, stay flat.
		return exposures, nil
	}

	fast := talib.Sma(closes, params.Fast)
	slow := talib.Sma(closes, params.Slow)

	for idx := params.Slow - 1; idx < len(closes); idx++ {
		switch {
		case fast[idx] > slow[idx]:
			exposures[idx] = 1
		case fast[idx] < slow[idx]:
			exposures[idx] = -1
		}
	}

	return exposures, nil
}

const (
	// targetAnnualVolatility is the annualized volatility targeted by
	// position sizing.
	targetAnnualVolatility = 0.15
	// atrPeriod is the lookback period for the average true range.
	atrPeriod = 14
	// defaultSize is the fallback equity fraction when volatility cannot be
	// estimated.
	defaultSize = 0.1
	// minSize and maxSize bound the sized equity fraction.
	minSize = 0.01
	maxSize = 0.95
)

// SMACrossATR represents the long-only sma crossover strategy with volatility
// targeted position sizing derived from the average true range.
type SMACrossATR struct{}

// Ensure SMACrossATR implements the Strategy interface.
var _ Strategy = (*SMACrossATR)(nil)

// NewSMACrossATR initializes the sma crossover strategy with atr sizing.
func NewSMACrossATR() *SMACrossATR {
	return &SMACrossATR{}
}

// Name returns the name of the strategy.
func (s *SMACrossATR) Name() string {
	return "SmaCross"
}

// sizeFromATR derives a bounded equity fraction from the bar's average true
// range so the position targets a fixed annualized volatility.
func sizeFromATR(atr float64, close float64) float64 {
	if !(atr > 0) || !(close > 0) || math.IsInf(atr, 0) {
		return defaultSize
	}

	dailyVolatility := atr / close
	size := targetAnnualVolatility / (dailyVolatility * math.Sqrt(tradingDaysPerYear))
	if math.IsNaN(size) || math.IsInf(size, 0) {
		return defaultSize
	}

	return math.Max(minSize, math.Min(maxSize, size))
}

// Exposures returns the target equity fraction for every bar of the series.
func (s *SMACrossATR) Exposures(series shared.Series, params shared.ParamSet) ([]float64, error) {
	if !params.Valid() {
		return nil, fmt.Errorf("invalid parameter set: %s", params.String())
	}

	bars := series.Bars
	exposures := make([]float64, len(bars))
	warmup := max(params.Slow, atrPeriod+1)
	if len(bars) < warmup {
		return exposures, nil
	}

	closes := series.Closes()
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for idx := range bars {
		highs[idx] = bars[idx].High
		lows[idx] = bars[idx].Low
	}

	fast := talib.Sma(closes, params.Fast)
	slow := talib.Sma(closes, params.Slow)
	atr := talib.Atr(highs, lows, closes, atrPeriod)

	for idx := warmup - 1; idx < len(bars); idx++ {
		if fast[idx] > slow[idx] {
			exposures[idx] = sizeFromATR(atr[idx], closes[idx])
		}
	}

	return exposures, nil
}
