package shared

import (
	"fmt"
	"time"
)

// DateLayout is the date format used for daily bars.
const DateLayout = "2006-01-02"

// Bar represents a unit daily price bar for a ticker.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series represents a date-indexed collection of daily bars for a ticker.
// Bars are strictly increasing by date once validated. A series is read-only
// after creation and may be shared freely by concurrent readers.
type Series struct {
	Ticker string
	Bars   []Bar
}

// NewSeries validates and repairs the provided bars into a series. Bars are
// expected in ascending date order; duplicates are dropped and out of order
// bars rejected. Price violations (high below low, open or close outside the
// high-low range) are repaired rather than rejected, matching the best-effort
// contract of the data layer.
func NewSeries(ticker string, bars []Bar) (Series, error) {
	cleaned := make([]Bar, 0, len(bars))

	var last time.Time
	for idx := range bars {
		bar := bars[idx]

		if !last.IsZero() {
			switch {
			case bar.Date.Equal(last):
				// Duplicate timestamp, keep the first occurrence.
				continue
			case bar.Date.Before(last):
				return Series{}, fmt.Errorf("%s: bar dates out of order at %s",
					ticker, bar.Date.Format(DateLayout))
			}
		}

		repairBar(&bar)

		last = bar.Date
		cleaned = append(cleaned, bar)
	}

	return Series{Ticker: ticker, Bars: cleaned}, nil
}

// repairBar applies best-effort fixes to price invariant violations.
func repairBar(bar *Bar) {
	if bar.High < bar.Low {
		bar.High, bar.Low = bar.Low, bar.High
	}
	bar.High = max(bar.High, bar.Open, bar.Close)
	bar.Low = min(bar.Low, bar.Open, bar.Close)
	if bar.Volume < 0 {
		bar.Volume = 0
	}
}

// Len returns the number of bars in the series.
func (s *Series) Len() int {
	return len(s.Bars)
}

// Empty reports whether the series has no bars.
func (s *Series) Empty() bool {
	return len(s.Bars) == 0
}

// Start returns the date of the first bar of the series.
func (s *Series) Start() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[0].Date
}

// End returns the date of the last bar of the series.
func (s *Series) End() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Date
}

// SliceRange returns the sub-series with bar dates in [start, end]. The
// returned series shares the underlying bar storage, it must not be mutated.
func (s *Series) SliceRange(start time.Time, end time.Time) Series {
	lo := 0
	for lo < len(s.Bars) && s.Bars[lo].Date.Before(start) {
		lo++
	}

	hi := lo
	for hi < len(s.Bars) && !s.Bars[hi].Date.After(end) {
		hi++
	}

	return Series{Ticker: s.Ticker, Bars: s.Bars[lo:hi]}
}

// Closes returns the close prices of the series.
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for idx := range s.Bars {
		closes[idx] = s.Bars[idx].Close
	}
	return closes
}
