package shared

import "fmt"

// Metric represents an optionally available statistic. Statistics like the
// Sharpe ratio are undefined on zero-trade folds, and zero is a meaningful
// value for every metric tracked here, so availability is carried explicitly
// rather than encoded as NaN or zero.
type Metric struct {
	Value float64
	Valid bool
}

// MetricOf returns an available metric holding the provided value.
func MetricOf(value float64) Metric {
	return Metric{Value: value, Valid: true}
}

// NoMetric returns an unavailable metric.
func NoMetric() Metric {
	return Metric{}
}

// String returns a human readable representation of the metric.
func (m Metric) String() string {
	if !m.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", m.Value)
}
