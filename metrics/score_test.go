package metrics

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/assert"

	"github.com/dnldd/gridwalk/shared"
)

func fold(sharpe float64, ret float64, drawdown float64, trades int) shared.FoldResult {
	return shared.FoldResult{
		Trades:             trades,
		ReturnPercent:      shared.MetricOf(ret),
		SharpeRatio:        shared.MetricOf(sharpe),
		MaxDrawdownPercent: shared.MetricOf(drawdown),
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
		ok     bool
	}{
		{
			name:   "odd count",
			values: []float64{3, 1, 2},
			want:   2,
			ok:     true,
		},
		{
			name:   "even count interpolates",
			values: []float64{1, 2, 3, 4},
			want:   2.5,
			ok:     true,
		},
		{
			name:   "single value",
			values: []float64{7},
			want:   7,
			ok:     true,
		},
		{
			name:   "empty",
			values: nil,
			want:   0,
			ok:     false,
		},
	}

	for _, test := range tests {
		got, ok := Median(test.values)
		if ok != test.ok || math.Abs(got-test.want) > 1e-9 {
			t.Errorf("%s: expected (%v, %v), got (%v, %v)",
				test.name, test.want, test.ok, got, ok)
		}
	}
}

func TestIQR(t *testing.T) {
	got, ok := IQR([]float64{1, 2, 3, 4, 5})
	assert.True(t, ok)
	assert.Equal(t, got, float64(2))

	// IQR must not mutate the caller's slice.
	values := []float64{5, 1, 3}
	_, _ = IQR(values)
	assert.Equal(t, values, []float64{5, 1, 3})

	_, ok = IQR(nil)
	assert.False(t, ok)
}

func TestScore(t *testing.T) {
	weights := DefaultWeights()

	t.Run("empty folds score the sentinel", func(t *testing.T) {
		assert.Equal(t, Score(nil, weights), EmptyScore)
	})

	t.Run("sentinel loses to any scored candidate", func(t *testing.T) {
		// A deeply negative but real result still beats no result.
		score := Score([]shared.FoldResult{fold(-3, -40, 60, 30)}, weights)
		assert.GreaterThan(t, score, EmptyScore)
	})

	t.Run("score is monotonic in median sharpe", func(t *testing.T) {
		low := Score([]shared.FoldResult{fold(0.5, 10, 5, 30)}, weights)
		high := Score([]shared.FoldResult{fold(1.5, 10, 5, 30)}, weights)
		assert.GreaterThan(t, high, low)
	})

	t.Run("thin trading is penalized", func(t *testing.T) {
		active := Score([]shared.FoldResult{fold(1, 10, 5, 30)}, weights)
		thin := Score([]shared.FoldResult{fold(1, 10, 5, 3)}, weights)
		if math.Abs((active-thin)-weights.TradePenalty) > 1e-9 {
			t.Errorf("expected penalty gap %v, got %v", weights.TradePenalty, active-thin)
		}
	})

	t.Run("sharpe dispersion is penalized", func(t *testing.T) {
		steady := Score([]shared.FoldResult{
			fold(1, 10, 5, 30), fold(1, 10, 5, 30), fold(1, 10, 5, 30),
		}, weights)
		erratic := Score([]shared.FoldResult{
			fold(0, 10, 5, 30), fold(1, 10, 5, 30), fold(2, 10, 5, 30),
		}, weights)
		assert.GreaterThan(t, steady, erratic)
	})

	t.Run("weighted components", func(t *testing.T) {
		got := Score([]shared.FoldResult{fold(1.2, 20, 8, 30)}, weights)
		want := 1.2 + 0.01*20 - 0.005*8
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("expected score %v, got %v", want, got)
		}
	})

	t.Run("unavailable metrics are excluded not zeroed", func(t *testing.T) {
		folds := []shared.FoldResult{
			fold(2, 10, 5, 30),
			{
				Trades:             30,
				ReturnPercent:      shared.NoMetric(),
				SharpeRatio:        shared.NoMetric(),
				MaxDrawdownPercent: shared.NoMetric(),
			},
		}
		// Median sharpe stays 2 since the missing value does not dilute it
		// towards zero.
		got := Score(folds, weights)
		want := 2 + 0.01*10 - 0.005*5
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("expected score %v, got %v", want, got)
		}
	})

	t.Run("failure records only score the sentinel", func(t *testing.T) {
		failure := shared.FoldResult{
			Trades:             0,
			ReturnPercent:      shared.NoMetric(),
			SharpeRatio:        shared.NoMetric(),
			MaxDrawdownPercent: shared.NoMetric(),
		}
		got := Score([]shared.FoldResult{failure, failure}, weights)
		assert.Equal(t, got, EmptyScore)
	})
}

func TestIsStable(t *testing.T) {
	weights := DefaultWeights()

	a := shared.ParamSet{Fast: 5, Slow: 40}
	b := shared.ParamSet{Fast: 10, Slow: 40}
	c := shared.ParamSet{Fast: 15, Slow: 40}

	tests := []struct {
		name         string
		candidate    float64
		neighborhood []shared.ParamSet
		scores       map[shared.ParamSet]float64
		want         bool
	}{
		{
			name:         "no neighbors is stable",
			candidate:    2,
			neighborhood: nil,
			scores:       map[shared.ParamSet]float64{},
			want:         true,
		},
		{
			name:         "median neighbor exactly at the threshold",
			candidate:    2,
			neighborhood: []shared.ParamSet{a, b, c},
			scores:       map[shared.ParamSet]float64{a: 1.4, b: 1.4, c: 1.4},
			want:         true,
		},
		{
			name:         "median neighbor just below the threshold",
			candidate:    2,
			neighborhood: []shared.ParamSet{a, b, c},
			scores:       map[shared.ParamSet]float64{a: 1.39, b: 1.39, c: 1.39},
			want:         false,
		},
		{
			name:         "one weak neighbor does not break stability",
			candidate:    2,
			neighborhood: []shared.ParamSet{a, b, c},
			scores:       map[shared.ParamSet]float64{a: 2, b: 2, c: -5},
			want:         true,
		},
		{
			name:         "missing neighbors default to the sentinel",
			candidate:    2,
			neighborhood: []shared.ParamSet{a, b, c},
			scores:       map[shared.ParamSet]float64{a: 2},
			want:         false,
		},
		{
			name:         "negative candidate relaxes the threshold",
			candidate:    -1,
			neighborhood: []shared.ParamSet{a},
			scores:       map[shared.ParamSet]float64{a: -0.7},
			want:         true,
		},
	}

	for _, test := range tests {
		got := IsStable(test.candidate, test.neighborhood, test.scores, weights)
		if got != test.want {
			t.Errorf("%s: expected stable=%v, got %v", test.name, test.want, got)
		}
	}
}
