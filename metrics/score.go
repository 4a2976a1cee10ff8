package metrics

import (
	"math"
	"sort"

	"github.com/dnldd/gridwalk/shared"
	"gonum.org/v1/gonum/stat"
)

// EmptyScore is the sentinel assigned to parameter sets with no valid folds.
// It guarantees such candidates never win a selection; missing neighbors in
// the stability gate default to it as well.
const EmptyScore = float64(-1e9)

// Weights represents the linear weighting of the robust score. The constants
// are tunable configuration, the defaults carry no empirical justification.
type Weights struct {
	// ReturnWeight scales the median total return contribution.
	ReturnWeight float64
	// DrawdownWeight scales the median max drawdown penalty.
	DrawdownWeight float64
	// SharpeIQRWeight scales the sharpe dispersion penalty.
	SharpeIQRWeight float64
	// TradePenalty is subtracted when the median trade count falls below
	// MinMedianTrades.
	TradePenalty float64
	// MinMedianTrades is the median trade count required to avoid the trade
	// penalty.
	MinMedianTrades float64
	// StabilityRatio is the fraction of a candidate's score its neighborhood
	// median must reach for the candidate to be considered stable.
	StabilityRatio float64
}

// DefaultWeights returns the default robust score weighting.
func DefaultWeights() Weights {
	return Weights{
		ReturnWeight:    0.01,
		DrawdownWeight:  0.005,
		SharpeIQRWeight: 0.2,
		TradePenalty:    0.5,
		MinMedianTrades: 10,
		StabilityRatio:  0.7,
	}
}

// Median returns the linearly interpolated median of the provided values, or
// false when there are none.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return stat.Quantile(0.5, stat.LinInterp, sorted, nil), true
}

// IQR returns the interquartile range of the provided values, or false when
// there are none.
func IQR(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)

	return q3 - q1, true
}

// collect gathers the available values of the provided metric across folds.
// Unavailable metrics are excluded, not coerced to zero.
func collect(folds []shared.FoldResult, metric func(shared.FoldResult) shared.Metric) []float64 {
	values := make([]float64, 0, len(folds))
	for idx := range folds {
		if m := metric(folds[idx]); m.Valid {
			values = append(values, m.Value)
		}
	}
	return values
}

// Score reduces a collection of fold results into the scalar robustness
// score: median sharpe plus small return and drawdown nudges, a penalty for
// trading too rarely, and a penalty for inconsistent per-fold sharpe. An
// empty collection scores the EmptyScore sentinel, as does one holding only
// failure records with no available metric at all: recorded failures are not
// supporting evidence.
func Score(folds []shared.FoldResult, weights Weights) float64 {
	if len(folds) == 0 {
		return EmptyScore
	}

	sharpes := collect(folds, func(f shared.FoldResult) shared.Metric { return f.SharpeRatio })
	returns := collect(folds, func(f shared.FoldResult) shared.Metric { return f.ReturnPercent })
	drawdowns := collect(folds, func(f shared.FoldResult) shared.Metric { return f.MaxDrawdownPercent })

	if len(sharpes)+len(returns)+len(drawdowns) == 0 {
		return EmptyScore
	}

	trades := make([]float64, len(folds))
	for idx := range folds {
		trades[idx] = float64(folds[idx].Trades)
	}

	var score float64
	if medSharpe, ok := Median(sharpes); ok {
		score += medSharpe
	}
	if medReturn, ok := Median(returns); ok {
		score += weights.ReturnWeight * medReturn
	}
	if medDrawdown, ok := Median(drawdowns); ok {
		score -= weights.DrawdownWeight * medDrawdown
	}

	medTrades, _ := Median(trades)
	if medTrades < weights.MinMedianTrades {
		score -= weights.TradePenalty
	}

	if sharpeIQR, ok := IQR(sharpes); ok && !math.IsNaN(sharpeIQR) && !math.IsInf(sharpeIQR, 0) {
		score -= weights.SharpeIQRWeight * sharpeIQR
	}

	return score
}

// IsStable reports whether the candidate's score holds up in its parameter
// neighborhood: the median neighbor score must be at least StabilityRatio of
// the candidate's own score. Neighbors absent from the score table default to
// the EmptyScore sentinel. With no neighbors at all there is no basis to
// reject the candidate, it is treated as stable.
func IsStable(candidateScore float64, neighborhood []shared.ParamSet, scores map[shared.ParamSet]float64, weights Weights) bool {
	if len(neighborhood) == 0 {
		return true
	}

	neighborScores := make([]float64, 0, len(neighborhood))
	for idx := range neighborhood {
		score, ok := scores[neighborhood[idx]]
		if !ok {
			score = EmptyScore
		}
		neighborScores = append(neighborScores, score)
	}

	medNeighbor, _ := Median(neighborScores)

	return medNeighbor >= weights.StabilityRatio*candidateScore
}
