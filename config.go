package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dnldd/gridwalk/metrics"
	"github.com/dnldd/gridwalk/shared"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the configuration struct for the service.
type Config struct {
	// StartDate is the inclusive start of the requested data range.
	StartDate string
	// HoldoutMonths is the number of trailing months held out of the
	// in-sample data.
	HoldoutMonths int
	// TrainYears, TestYears and StepYears shape the walk-forward windows.
	TrainYears int
	TestYears  int
	StepYears  int
	// MinTrainBars and MinTestBars gate fold data sufficiency.
	MinTrainBars int
	MinTestBars  int
	// Cash is the simulation starting cash.
	Cash float64
	// Commission is the simulation commission rate.
	Commission float64
	// SampleSize is the number of learn tickers sampled per run.
	SampleSize int
	// OOSRandomSize is the number of random out of sample tickers per run.
	OOSRandomSize int
	// Seed seeds ticker sampling, zero derives one from the current date.
	Seed int64
	// FastPeriods and SlowPeriods are the parameter grid value lists.
	FastPeriods []int
	SlowPeriods []int
	// Weights is the robust score weighting.
	Weights metrics.Weights
	// Strategies names the enabled strategies, empty enables all.
	Strategies []string
	// ExtraTickers extends the master universe.
	ExtraTickers []string
	// FixedOOSTickers are always evaluated out of sample, never learned on.
	FixedOOSTickers []string
	// FMPAPIKey is the FMP service API Key.
	FMPAPIKey string
	// CacheDir is the bar cache directory.
	CacheDir string
	// RetryAttempts and RetryDelaySeconds bound data fetch retries.
	RetryAttempts     int
	RetryDelaySeconds int
	// OutputDir is the report output directory.
	OutputDir string
	// DBEndpoint, DBUser and DBPass configure the run history database. An
	// empty endpoint disables run history.
	DBEndpoint string
	DBUser     string
	DBPass     string
	// Schedule is an optional cron expression for recurring runs.
	Schedule string
}

// Validate asserts the config has sane inputs for an optimization run.
// Commands that only read persisted runs do not need the fetch and grid
// fields and skip this check.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.FMPAPIKey == "" {
		errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
	}
	if _, err := time.Parse(shared.DateLayout, cfg.StartDate); err != nil {
		errs = errors.Join(errs, fmt.Errorf("start date must be formatted %s", shared.DateLayout))
	}
	if cfg.TrainYears <= 0 || cfg.TestYears <= 0 || cfg.StepYears <= 0 {
		errs = errors.Join(errs, fmt.Errorf("train, test and step years must all be positive"))
	}
	if len(cfg.FastPeriods) == 0 || len(cfg.SlowPeriods) == 0 {
		errs = errors.Join(errs, fmt.Errorf("parameter grid value lists cannot be empty"))
	}
	if cfg.Commission < 0 {
		errs = errors.Join(errs, fmt.Errorf("commission cannot be negative"))
	}
	if cfg.SampleSize <= 0 {
		errs = errors.Join(errs, fmt.Errorf("sample size must be positive"))
	}

	return errs
}

// splitList expands comma separated list elements. Environment sourced
// slices arrive as a single string viper only splits on whitespace.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

// setDefaults registers the configuration defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("backtest.start_date", "2005-01-01")
	v.SetDefault("backtest.holdout_months", 12)
	v.SetDefault("backtest.train_years", 5)
	v.SetDefault("backtest.test_years", 1)
	v.SetDefault("backtest.step_years", 1)
	v.SetDefault("backtest.min_train_bars", 200)
	v.SetDefault("backtest.min_test_bars", 50)
	v.SetDefault("backtest.cash", 10_000)
	v.SetDefault("backtest.commission", 0.002)
	v.SetDefault("backtest.sample_size", 12)
	v.SetDefault("backtest.oos_random_size", 8)
	v.SetDefault("backtest.seed", 0)
	v.SetDefault("grid.fast", []int{5, 10, 15, 20})
	v.SetDefault("grid.slow", []int{40, 60, 80, 100})
	v.SetDefault("weights.return", 0.01)
	v.SetDefault("weights.drawdown", 0.005)
	v.SetDefault("weights.sharpe_iqr", 0.2)
	v.SetDefault("weights.trade_penalty", 0.5)
	v.SetDefault("weights.min_median_trades", 10)
	v.SetDefault("weights.stability_ratio", 0.7)
	v.SetDefault("strategies", []string{})
	v.SetDefault("universe.extra", []string{})
	v.SetDefault("universe.fixed_oos", []string{})
	v.SetDefault("data.cache_dir", "cache")
	v.SetDefault("data.retry_attempts", 3)
	v.SetDefault("data.retry_delay_seconds", 2)
	v.SetDefault("output.dir", "reports")
	v.SetDefault("database.endpoint", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.pass", "")
	v.SetDefault("schedule", "")
}

// loadConfig loads the configuration from the .env file, environment
// variables and the yaml config file.
func loadConfig(cfg *Config, path string) error {
	// Load the expected .env file if it exists.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.BindEnv("data.fmp_api_key", "FMP_API_KEY")
	v.BindEnv("database.endpoint", "DB_ENDPOINT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.pass", "DB_PASS")
	v.BindEnv("universe.extra", "EXTRA_TICKERS")
	v.BindEnv("universe.fixed_oos", "OOS_FIXED_TICKERS")
	v.BindEnv("backtest.seed", "RANDOM_SEED")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg.StartDate = v.GetString("backtest.start_date")
	cfg.HoldoutMonths = v.GetInt("backtest.holdout_months")
	cfg.TrainYears = v.GetInt("backtest.train_years")
	cfg.TestYears = v.GetInt("backtest.test_years")
	cfg.StepYears = v.GetInt("backtest.step_years")
	cfg.MinTrainBars = v.GetInt("backtest.min_train_bars")
	cfg.MinTestBars = v.GetInt("backtest.min_test_bars")
	cfg.Cash = v.GetFloat64("backtest.cash")
	cfg.Commission = v.GetFloat64("backtest.commission")
	cfg.SampleSize = v.GetInt("backtest.sample_size")
	cfg.OOSRandomSize = v.GetInt("backtest.oos_random_size")
	cfg.Seed = v.GetInt64("backtest.seed")
	cfg.FastPeriods = v.GetIntSlice("grid.fast")
	cfg.SlowPeriods = v.GetIntSlice("grid.slow")
	cfg.Weights = metrics.Weights{
		ReturnWeight:    v.GetFloat64("weights.return"),
		DrawdownWeight:  v.GetFloat64("weights.drawdown"),
		SharpeIQRWeight: v.GetFloat64("weights.sharpe_iqr"),
		TradePenalty:    v.GetFloat64("weights.trade_penalty"),
		MinMedianTrades: v.GetFloat64("weights.min_median_trades"),
		StabilityRatio:  v.GetFloat64("weights.stability_ratio"),
	}
	cfg.Strategies = splitList(v.GetStringSlice("strategies"))
	cfg.ExtraTickers = splitList(v.GetStringSlice("universe.extra"))
	cfg.FixedOOSTickers = splitList(v.GetStringSlice("universe.fixed_oos"))
	cfg.FMPAPIKey = v.GetString("data.fmp_api_key")
	cfg.CacheDir = v.GetString("data.cache_dir")
	cfg.RetryAttempts = v.GetInt("data.retry_attempts")
	cfg.RetryDelaySeconds = v.GetInt("data.retry_delay_seconds")
	cfg.OutputDir = v.GetString("output.dir")
	cfg.DBEndpoint = v.GetString("database.endpoint")
	cfg.DBUser = v.GetString("database.user")
	cfg.DBPass = v.GetString("database.pass")
	cfg.Schedule = v.GetString("schedule")

	return nil
}
