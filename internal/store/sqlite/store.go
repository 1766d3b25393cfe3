// Package sqlite persists daily price bars and the trade journal in a
// local SQLite database. A single Store owns the write path; WAL mode
// keeps concurrent readers from blocking the writer.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"algotradingv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/bars.db"
}

// Store is a single-writer SQLite store for bars and trades.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database, enables WAL mode, and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer connection pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_bars (
			ticker TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume INTEGER,
			PRIMARY KEY (ticker, ts)
		);

		CREATE TABLE IF NOT EXISTS trades (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker       TEXT    NOT NULL,
			entry_ts     INTEGER NOT NULL,
			entry_price  REAL    NOT NULL,
			exit_ts      INTEGER NOT NULL,
			exit_price   REAL    NOT NULL,
			qty          INTEGER NOT NULL,
			pnl          REAL    NOT NULL,
			pnl_pct      REAL    NOT NULL,
			holding_days INTEGER NOT NULL,
			close_reason TEXT    NOT NULL,
			confidence   REAL    NOT NULL,
			created_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
		CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades (ticker, exit_ts);
	`)
	return err
}

// SaveBars upserts a batch of bars in a single transaction. Re-fetching
// an overlapping date range is safe; existing rows are replaced.
func (s *Store) SaveBars(ctx context.Context, bars []model.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_bars (ticker, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(b.Ticker, b.Date.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert %s: %w", b.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	log.Printf("[sqlite] committed %d bars in %v", len(bars), time.Since(start))
	return nil
}

// LoadBars reads a ticker's bars in the [from, to] date range, ordered
// by timestamp ascending for correct replay order.
func (s *Store) LoadBars(ctx context.Context, ticker string, from, to time.Time) ([]model.PriceBar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, ts, open, high, low, close, volume
		FROM daily_bars
		WHERE ticker = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, ticker, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		var tsUnix int64
		if err := rows.Scan(&b.Ticker, &tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bar: %w", err)
		}
		b.Date = time.Unix(tsUnix, 0).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Daily satisfies the market data provider contract, serving bars from
// local storage instead of the broker API.
func (s *Store) Daily(ctx context.Context, ticker string, from, to time.Time) ([]model.PriceBar, error) {
	return s.LoadBars(ctx, ticker, from, to)
}

// LastBarTimestamp returns the last stored bar timestamp for a ticker.
// Returns zero time if no bars exist, so callers can fetch from scratch.
func (s *Store) LastBarTimestamp(ctx context.Context, ticker string) (time.Time, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM daily_bars WHERE ticker = ?`,
		ticker,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite last ts: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.Unix(ts.Int64, 0).UTC(), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
