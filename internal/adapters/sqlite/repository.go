package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.RunRepository interface using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/screener.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w: %w", filepath.Dir(dbPath), ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Debug(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		outcome TEXT NOT NULL,
		signal_kind TEXT NULL,
		signal_time TIMESTAMP NULL,
		price REAL NULL,
		vwap REAL NULL,
		mfi REAL NULL,
		atr REAL NULL,
		upper_band REAL NULL,
		lower_band REAL NULL,
		has_bands INTEGER NOT NULL DEFAULT 0,
		expiration TEXT NOT NULL DEFAULT '',
		suggested_symbol TEXT NULL,
		alert_sent INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS ranked_contracts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		contract_symbol TEXT NOT NULL,
		underlying TEXT NOT NULL,
		expiration TIMESTAMP NOT NULL,
		option_type TEXT NOT NULL,
		strike REAL NOT NULL,
		last_price REAL NOT NULL,
		implied_volatility REAL NOT NULL,
		volume REAL NOT NULL,
		open_interest REAL NOT NULL,
		liquidity REAL NOT NULL,
		percent_itm REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_symbol_started_at ON runs (symbol, started_at);
	CREATE INDEX IF NOT EXISTS idx_ranked_contracts_run_id ON ranked_contracts (run_id, position);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Debug(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// SaveRun inserts the run and its ranked contracts in one transaction.
func (r *Repository) SaveRun(ctx context.Context, run *domain.RunRecord) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run must have an ID: %w", ports.ErrInvalidRequest)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for run %s: %w: %w", run.ID, ports.ErrDBConnection, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const insertRun = `
	INSERT INTO runs (id, symbol, started_at, finished_at, outcome, signal_kind, signal_time,
	                  price, vwap, mfi, atr, upper_band, lower_band, has_bands,
	                  expiration, suggested_symbol, alert_sent, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var (
		kind                                sql.NullString
		sigTime                             sql.NullTime
		price, vwap, mfi, atr, upper, lower sql.NullFloat64
		hasBands                            bool
		suggested                           sql.NullString
	)
	if run.Signal != nil {
		s := run.Signal.Snapshot
		kind = sql.NullString{String: string(run.Signal.Kind), Valid: true}
		sigTime = sql.NullTime{Time: s.Time, Valid: !s.Time.IsZero()}
		price = sql.NullFloat64{Float64: s.Price, Valid: true}
		vwap = sql.NullFloat64{Float64: s.VWAP, Valid: true}
		mfi = sql.NullFloat64{Float64: s.MFI, Valid: true}
		atr = sql.NullFloat64{Float64: s.ATR, Valid: s.HasBands}
		upper = sql.NullFloat64{Float64: s.UpperBand, Valid: s.HasBands}
		lower = sql.NullFloat64{Float64: s.LowerBand, Valid: s.HasBands}
		hasBands = s.HasBands
	}
	if run.Suggested != nil {
		suggested = sql.NullString{String: run.Suggested.Symbol, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, insertRun,
		run.ID, run.Symbol, run.StartedAt.UTC(), run.FinishedAt.UTC(), string(run.Outcome), kind, sigTime,
		price, vwap, mfi, atr, upper, lower, hasBands,
		run.Expiration, suggested, run.AlertSent, run.Error); err != nil {
		return fmt.Errorf("failed to insert run %s: %w: %w", run.ID, ports.ErrQueryFailed, err)
	}

	const insertContract = `
	INSERT INTO ranked_contracts (run_id, position, contract_symbol, underlying, expiration, option_type,
	                              strike, last_price, implied_volatility, volume, open_interest, liquidity, percent_itm)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, insertContract)
	if err != nil {
		return fmt.Errorf("failed to prepare ranked contract insert: %w: %w", ports.ErrQueryFailed, err)
	}
	defer stmt.Close()

	for i, c := range run.Ranked {
		if _, err := stmt.ExecContext(ctx, run.ID, i, c.Symbol, c.Underlying, c.Expiration.UTC(), string(c.Type),
			c.Strike, c.LastPrice, c.ImpliedVolatility, c.Volume, c.OpenInterest, c.Liquidity, c.PercentITM); err != nil {
			return fmt.Errorf("failed to insert ranked contract %s for run %s: %w: %w", c.Symbol, run.ID, ports.ErrQueryFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w: %w", run.ID, ports.ErrQueryFailed, err)
	}
	r.logger.Debug(ctx, "Run saved", map[string]interface{}{"runID": run.ID, "symbol": run.Symbol, "outcome": run.Outcome, "ranked": len(run.Ranked)})
	return nil
}

const selectRun = `
	SELECT id, symbol, started_at, finished_at, outcome, signal_kind, signal_time,
	       price, vwap, mfi, atr, upper_band, lower_band, has_bands,
	       expiration, suggested_symbol, alert_sent, error
	FROM runs`

// FindByID retrieves a run and its ranked contracts.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.RunRecord, error) {
	row := r.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id)
	run, suggested, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Run not found by ID", map[string]interface{}{"runID": id})
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query run by ID %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	if err := r.loadRanked(ctx, run, suggested); err != nil {
		return nil, err
	}
	return run, nil
}

// FindRecentBySymbol retrieves the most recent runs for a symbol, newest first.
func (r *Repository) FindRecentBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.RunRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectRun+` WHERE symbol = ? ORDER BY started_at DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs for symbol %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}

	type pending struct {
		run       *domain.RunRecord
		suggested sql.NullString
	}
	found := make([]pending, 0)
	for rows.Next() {
		run, suggested, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run during FindRecentBySymbol: %w: %w", ports.ErrQueryFailed, err)
		}
		found = append(found, pending{run, suggested})
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating run rows: %w: %w", ports.ErrQueryFailed, err)
	}
	rows.Close()

	// Single connection: ranked rows are loaded after the cursor is released.
	runs := make([]*domain.RunRecord, 0, len(found))
	for _, p := range found {
		if err := r.loadRanked(ctx, p.run, p.suggested); err != nil {
			return nil, err
		}
		runs = append(runs, p.run)
	}
	return runs, nil
}

func (r *Repository) loadRanked(ctx context.Context, run *domain.RunRecord, suggested sql.NullString) error {
	const query = `
	SELECT contract_symbol, underlying, expiration, option_type, strike, last_price,
	       implied_volatility, volume, open_interest, liquidity, percent_itm
	FROM ranked_contracts
	WHERE run_id = ? ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query ranked contracts for run %s: %w: %w", run.ID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	ranked := make([]domain.RankedContract, 0)
	for rows.Next() {
		c, err := scanRanked(rows)
		if err != nil {
			return fmt.Errorf("failed to scan ranked contract for run %s: %w: %w", run.ID, ports.ErrQueryFailed, err)
		}
		ranked = append(ranked, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating ranked contract rows: %w: %w", ports.ErrQueryFailed, err)
	}
	run.Ranked = ranked

	if suggested.Valid {
		for i := range ranked {
			if ranked[i].Symbol == suggested.String {
				s := ranked[i]
				run.Suggested = &s
				break
			}
		}
		if run.Suggested == nil {
			run.Suggested = &domain.RankedContract{OptionContract: domain.OptionContract{Symbol: suggested.String}}
		}
	}
	return nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRun scans a runs row. The suggested contract symbol is returned separately
// so it can be resolved against the ranked rows.
func scanRun(s scanner) (*domain.RunRecord, sql.NullString, error) {
	run := &domain.RunRecord{}
	var (
		outcome                             string
		kind                                sql.NullString
		sigTime                             sql.NullTime
		price, vwap, mfi, atr, upper, lower sql.NullFloat64
		hasBands                            bool
		suggested                           sql.NullString
	)
	err := s.Scan(
		&run.ID, &run.Symbol, &run.StartedAt, &run.FinishedAt, &outcome, &kind, &sigTime,
		&price, &vwap, &mfi, &atr, &upper, &lower, &hasBands,
		&run.Expiration, &suggested, &run.AlertSent, &run.Error)
	if err != nil {
		return nil, suggested, err // Handle sql.ErrNoRows in the caller
	}
	run.Outcome = domain.RunOutcome(outcome)
	if kind.Valid {
		run.Signal = &domain.Signal{
			Kind: domain.SignalKind(kind.String),
			Snapshot: domain.IndicatorSnapshot{
				Time:      sigTime.Time,
				Price:     price.Float64,
				VWAP:      vwap.Float64,
				MFI:       mfi.Float64,
				ATR:       atr.Float64,
				UpperBand: upper.Float64,
				LowerBand: lower.Float64,
				HasBands:  hasBands,
			},
		}
	}
	return run, suggested, nil
}

func scanRanked(s scanner) (domain.RankedContract, error) {
	var c domain.RankedContract
	var optType string
	err := s.Scan(&c.Symbol, &c.Underlying, &c.Expiration, &optType, &c.Strike, &c.LastPrice,
		&c.ImpliedVolatility, &c.Volume, &c.OpenInterest, &c.Liquidity, &c.PercentITM)
	if err != nil {
		return c, err
	}
	c.Type = domain.OptionType(optType)
	return c, nil
}
