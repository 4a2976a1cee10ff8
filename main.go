package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dnldd/gridwalk/database"
	"github.com/dnldd/gridwalk/fetch"
	"github.com/dnldd/gridwalk/service"
	"github.com/dnldd/gridwalk/shared"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// handleTermination processes context cancellation signals or interrupt
// signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

// newOptimizer wires the optimizer service from the loaded config.
func newOptimizer(ctx context.Context, cfg *Config) (*service.Optimizer, error) {
	startDate, err := time.Parse(shared.DateLayout, cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parsing start date: %w", err)
	}

	var store database.RunStorer
	if cfg.DBEndpoint != "" {
		dbLogger := log.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %w", err)
		}
		store = db
	}

	retry := fetch.DefaultRetryPolicy()
	if cfg.RetryAttempts > 0 {
		retry.MaxAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelaySeconds > 0 {
		retry.Delay = time.Duration(cfg.RetryDelaySeconds) * time.Second
	}

	return service.NewOptimizer(&service.OptimizerConfig{
		StartDate:       startDate,
		HoldoutMonths:   cfg.HoldoutMonths,
		TrainYears:      cfg.TrainYears,
		TestYears:       cfg.TestYears,
		StepYears:       cfg.StepYears,
		MinTrainBars:    cfg.MinTrainBars,
		MinTestBars:     cfg.MinTestBars,
		Cash:            cfg.Cash,
		Commission:      cfg.Commission,
		SampleSize:      cfg.SampleSize,
		OOSRandomSize:   cfg.OOSRandomSize,
		Seed:            cfg.Seed,
		FastPeriods:     cfg.FastPeriods,
		SlowPeriods:     cfg.SlowPeriods,
		Weights:         cfg.Weights,
		Strategies:      cfg.Strategies,
		ExtraTickers:    cfg.ExtraTickers,
		FixedOOSTickers: cfg.FixedOOSTickers,
		OutputDir:       cfg.OutputDir,
		Fetcher:         fetch.NewFMPClient(&fetch.FMPConfig{APIKey: cfg.FMPAPIKey}),
		CacheDir:        cfg.CacheDir,
		Retry:           retry,
		Store:           store,
	})
}

// runCommand executes selection runs, once or on a cron schedule.
func runCommand(configPath string) error {
	var cfg Config
	if err := loadConfig(&cfg, configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleTermination(ctx, cancel)

	optimizer, err := newOptimizer(ctx, &cfg)
	if err != nil {
		return fmt.Errorf("creating optimizer service: %w", err)
	}

	if cfg.Schedule == "" {
		return optimizer.Run(ctx)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating job scheduler: %w", err)
	}

	_, err = scheduler.NewJob(gocron.CronJob(cfg.Schedule, false), gocron.NewTask(func() {
		if err := optimizer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled run failed")
		}
	}))
	if err != nil {
		return fmt.Errorf("scheduling runs: %w", err)
	}

	log.Info().Msgf("scheduled recurring runs: %s", cfg.Schedule)
	scheduler.Start()

	<-ctx.Done()

	return scheduler.Shutdown()
}

// historyCommand lists persisted runs for a strategy.
func historyCommand(configPath string, strategyName string, limit int) error {
	var cfg Config
	if err := loadConfig(&cfg, configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.DBEndpoint == "" {
		return fmt.Errorf("run history requires a database endpoint")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbLogger := log.With().Str("component", "database").Logger()
	db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
		Endpoint: cfg.DBEndpoint,
		User:     cfg.DBUser,
		Pass:     cfg.DBPass,
		Logger:   &dbLogger,
	})
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}

	runs, err := db.ListRuns(ctx, strategyName, limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	for idx := range runs {
		run := &runs[idx]
		fmt.Printf("%s  %s  fast=%d slow=%d score=%.4f stable=%t folds=%d\n",
			time.Unix(run.CreatedOn, 0).Format(time.DateTime), run.Strategy,
			run.Fast, run.Slow, run.Score, run.Stable, run.Folds)
	}

	return nil
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "gridwalk",
		Short:         "Walk-forward parameter selection for trading strategies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the yaml config file")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run parameter selection for the enabled strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(configPath)
		},
	}

	var strategyName string
	var limit int
	history := &cobra.Command{
		Use:   "history",
		Short: "List persisted selection runs for a strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return historyCommand(configPath, strategyName, limit)
		},
	}
	history.Flags().StringVar(&strategyName, "strategy", "FixedSma", "strategy name")
	history.Flags().IntVar(&limit, "limit", 10, "maximum runs to list")

	root.AddCommand(run, history)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("gridwalk failed")
		os.Exit(1)
	}
}
