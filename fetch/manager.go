package fetch

import (
	"context"
	"time"

	"github.com/dnldd/gridwalk/shared"
	"github.com/rs/zerolog"
)

const (
	// defaultCacheMaxAge is the maximum age of a usable cache file.
	defaultCacheMaxAge = time.Hour * 20
)

// ManagerConfig represents the configuration for the data manager.
type ManagerConfig struct {
	// Fetcher fetches daily market data.
	Fetcher shared.MarketFetcher
	// CacheDir is the bar cache directory. An empty value disables caching.
	CacheDir string
	// CacheMaxAge is the maximum age of a usable cache file.
	CacheMaxAge time.Duration
	// Retry is the bounded retry policy applied to fetches.
	Retry RetryPolicy
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager loads validated daily series for tickers, caching fetched bars on
// disk. A ticker that cannot be loaded yields an empty series rather than a
// failure, downstream sufficiency gates handle the rest.
type Manager struct {
	cfg *ManagerConfig
}

// NewManager initializes a new data manager.
func NewManager(cfg *ManagerConfig) *Manager {
	if cfg.CacheMaxAge == 0 {
		cfg.CacheMaxAge = defaultCacheMaxAge
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}

	return &Manager{cfg: cfg}
}

// loadTicker loads the series for one ticker, preferring the cache.
func (m *Manager) loadTicker(ctx context.Context, ticker string, start time.Time, end time.Time) (shared.Series, error) {
	if m.cfg.CacheDir != "" {
		if bars, ok := loadCachedBars(m.cfg.CacheDir, ticker, m.cfg.CacheMaxAge); ok {
			m.cfg.Logger.Debug().Msgf("%s: loaded %d bars from cache", ticker, len(bars))
			return shared.NewSeries(ticker, bars)
		}
	}

	var bars []shared.Bar
	err := m.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		data, err := m.cfg.Fetcher.FetchDailyHistorical(ctx, ticker, start, end)
		if err != nil {
			return err
		}

		bars, err = ParseBars(data)
		return err
	})
	if err != nil {
		return shared.Series{}, err
	}

	if m.cfg.CacheDir != "" && len(bars) > 0 {
		if err := saveCachedBars(m.cfg.CacheDir, ticker, bars); err != nil {
			m.cfg.Logger.Warn().Err(err).Msgf("%s: caching bars failed", ticker)
		}
	}

	return shared.NewSeries(ticker, bars)
}

// Load fetches validated daily series for the provided tickers over the
// requested date range. Tickers that fail to load map to empty series.
func (m *Manager) Load(ctx context.Context, tickers []string, start time.Time, end time.Time) map[string]shared.Series {
	series := make(map[string]shared.Series, len(tickers))

	for _, ticker := range tickers {
		sr, err := m.loadTicker(ctx, ticker, start, end)
		if err != nil {
			m.cfg.Logger.Error().Err(err).Msgf("%s: loading data failed", ticker)
			series[ticker] = shared.Series{Ticker: ticker}
			continue
		}

		m.cfg.Logger.Info().Msgf("%s: loaded %d bars", ticker, sr.Len())
		series[ticker] = sr
	}

	return series
}

// SplitHoldout splits a series on a cutoff the provided number of months
// before its last bar. The in-sample part ends at the cutoff, the holdout
// part follows it and is never used for parameter selection.
func SplitHoldout(series shared.Series, months int) (shared.Series, shared.Series) {
	if series.Empty() || months <= 0 {
		return series, shared.Series{Ticker: series.Ticker}
	}

	cutoff := series.End().AddDate(0, -months, 0)
	inSample := series.SliceRange(series.Start(), cutoff)
	holdout := series.SliceRange(cutoff.AddDate(0, 0, 1), series.End())

	return inSample, holdout
}
