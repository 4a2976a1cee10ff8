package shared

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestParamSetValid(t *testing.T) {
	tests := []struct {
		name   string
		params ParamSet
		want   bool
	}{
		{
			name:   "fast below slow",
			params: ParamSet{Fast: 10, Slow: 40},
			want:   true,
		},
		{
			name:   "fast equal to slow",
			params: ParamSet{Fast: 40, Slow: 40},
			want:   false,
		},
		{
			name:   "fast above slow",
			params: ParamSet{Fast: 60, Slow: 40},
			want:   false,
		},
		{
			name:   "zero fast",
			params: ParamSet{Fast: 0, Slow: 40},
			want:   false,
		},
		{
			name:   "negative fast from perturbation",
			params: ParamSet{Fast: -5, Slow: 20},
			want:   false,
		},
	}

	for _, test := range tests {
		got := test.params.Valid()
		if got != test.want {
			t.Errorf("%s: expected valid=%v, got %v", test.name, test.want, got)
		}
	}
}

func TestMetric(t *testing.T) {
	missing := NoMetric()
	assert.False(t, missing.Valid)
	assert.Equal(t, missing.String(), "n/a")

	metric := MetricOf(1.23456)
	assert.True(t, metric.Valid)
	assert.Equal(t, metric.String(), "1.2346")
}
