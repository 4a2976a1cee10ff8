package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dnldd/gridwalk/shared"
	"github.com/gocarina/gocsv"
)

// cacheRecord represents one daily bar row of a cache file.
type cacheRecord struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// cachePath forms the cache file path for a ticker. Dots in ticker symbols
// are flattened so exchange suffixed tickers produce valid filenames.
func cachePath(dir string, ticker string) string {
	name := strings.ReplaceAll(ticker, ".", "_")
	return filepath.Join(dir, fmt.Sprintf("%s.csv", name))
}

// loadCachedBars loads cached bars for a ticker, reporting false when no
// usable cache file exists or it is older than maxAge.
func loadCachedBars(dir string, ticker string, maxAge time.Duration) ([]shared.Bar, bool) {
	path := cachePath(dir, ticker)

	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) > maxAge {
		return nil, false
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer file.Close()

	records := []cacheRecord{}
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, false
	}

	bars := make([]shared.Bar, 0, len(records))
	for idx := range records {
		dt, err := time.Parse(shared.DateLayout, records[idx].Date)
		if err != nil {
			return nil, false
		}
		bars = append(bars, shared.Bar{
			Date:   dt,
			Open:   records[idx].Open,
			High:   records[idx].High,
			Low:    records[idx].Low,
			Close:  records[idx].Close,
			Volume: records[idx].Volume,
		})
	}

	return bars, true
}

// saveCachedBars persists bars for a ticker to the cache directory.
func saveCachedBars(dir string, ticker string, bars []shared.Bar) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	records := make([]cacheRecord, len(bars))
	for idx := range bars {
		records[idx] = cacheRecord{
			Date:   bars[idx].Date.Format(shared.DateLayout),
			Open:   bars[idx].Open,
			High:   bars[idx].High,
			Low:    bars[idx].Low,
			Close:  bars[idx].Close,
			Volume: bars[idx].Volume,
		}
	}

	file, err := os.Create(cachePath(dir, ticker))
	if err != nil {
		return fmt.Errorf("creating cache file for %s: %w", ticker, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&records, file); err != nil {
		return fmt.Errorf("writing cache file for %s: %w", ticker, err)
	}

	return nil
}
