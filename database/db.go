package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createRunTableSQL = "CREATE TABLE IF NOT EXISTS run (id TEXT PRIMARY KEY, strategy TEXT, fast INTEGER, slow INTEGER, score REAL, stable INTEGER, folds INTEGER, createdon INTEGER)"
	persistRunSQL     = "INSERT INTO run(id, strategy, fast, slow, score, stable, folds, createdon) VALUES(?,?,?,?,?,?,?,?)"
	findLatestRunSQL  = "SELECT id, strategy, fast, slow, score, stable, folds, createdon FROM run WHERE strategy = ? ORDER BY createdon DESC LIMIT 1"
	listRunsSQL       = "SELECT id, strategy, fast, slow, score, stable, folds, createdon FROM run WHERE strategy = ? ORDER BY createdon DESC LIMIT ?"
)

// RunRecord represents one persisted parameter selection run. The run
// history is what lets a new selection report whether its parameters
// improved on the previous best.
type RunRecord struct {
	// ID is the unique run id.
	ID string
	// Strategy is the name of the evaluated strategy.
	Strategy string
	// Fast and Slow are the selected parameter values.
	Fast int
	Slow int
	// Score is the robust score of the selection.
	Score float64
	// Stable reports whether the selection passed the stability gate.
	Stable bool
	// Folds is the number of fold results supporting the selection.
	Folds int
	// CreatedOn is the unix timestamp of the run.
	CreatedOn int64
}

// RunStorer defines the requirements for persisting selection runs.
type RunStorer interface {
	// PersistRun stores the provided run record.
	PersistRun(ctx context.Context, run *RunRecord) error
	// FetchLatestRun fetches the most recent run record for a strategy.
	FetchLatestRun(ctx context.Context, strategy string) (*RunRecord, error)
	// ListRuns fetches up to limit recent run records for a strategy.
	ListRuns(ctx context.Context, strategy string, limit int) ([]RunRecord, error)
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the RunStorer interface.
var _ RunStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createRunTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// PersistRun stores the provided run record.
func (db *Database) PersistRun(ctx context.Context, run *RunRecord) error {
	stable := 0
	if run.Stable {
		stable = 1
	}

	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistRunSQL,
			PositionalParams: []any{run.ID, run.Strategy, run.Fast, run.Slow, run.Score,
				stable, run.Folds, run.CreatedOn},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("persisting run %s: %d -> %s", run.ID, idx, errStr)
	}

	db.cfg.Logger.Debug().Msgf("persisted run: %s", spew.Sdump(run))

	return nil
}

// parseRunRow parses a run record from an associative query result row.
func parseRunRow(row map[string]any) RunRecord {
	run := RunRecord{}

	if v, ok := row["id"].(string); ok {
		run.ID = v
	}
	if v, ok := row["strategy"].(string); ok {
		run.Strategy = v
	}
	if v, ok := row["fast"].(float64); ok {
		run.Fast = int(v)
	}
	if v, ok := row["slow"].(float64); ok {
		run.Slow = int(v)
	}
	if v, ok := row["score"].(float64); ok {
		run.Score = v
	}
	if v, ok := row["stable"].(float64); ok {
		run.Stable = v != 0
	}
	if v, ok := row["folds"].(float64); ok {
		run.Folds = int(v)
	}
	if v, ok := row["createdon"].(float64); ok {
		run.CreatedOn = int64(v)
	}

	return run
}

// FetchLatestRun fetches the most recent run record for a strategy. A nil
// record means no run has been persisted for the strategy yet.
func (db *Database) FetchLatestRun(ctx context.Context, strategy string) (*RunRecord, error) {
	resp, err := db.client.QuerySingle(ctx, findLatestRunSQL, strategy)
	if err != nil {
		return nil, err
	}

	rows := resp.GetQueryResultsAssoc()
	if len(rows) == 0 || len(rows[0].Rows) == 0 {
		return nil, nil
	}

	run := parseRunRow(rows[0].Rows[0])

	return &run, nil
}

// ListRuns fetches up to limit recent run records for a strategy.
func (db *Database) ListRuns(ctx context.Context, strategy string, limit int) ([]RunRecord, error) {
	resp, err := db.client.QuerySingle(ctx, listRunsSQL, strategy, limit)
	if err != nil {
		return nil, err
	}

	rows := resp.GetQueryResultsAssoc()
	if len(rows) == 0 {
		return nil, nil
	}

	runs := make([]RunRecord, 0, len(rows[0].Rows))
	for _, row := range rows[0].Rows {
		runs = append(runs, parseRunRow(row))
	}

	return runs, nil
}
