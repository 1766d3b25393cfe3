package sqlite

import (
	"context"
	"fmt"
	"time"

	"algotradingv1/internal/model"
)

// RecordTrade appends a closed trade to the journal. Rows are
// append-only; a trade is never updated after insert.
func (s *Store) RecordTrade(ctx context.Context, t model.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (ticker, entry_ts, entry_price, exit_ts, exit_price, qty,
			pnl, pnl_pct, holding_days, close_reason, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.Ticker, t.EntryDate.Unix(), t.EntryPrice, t.ExitDate.Unix(), t.ExitPrice, t.Qty,
		t.PnL, t.PnLPct, t.HoldingDays, string(t.CloseReason), t.MLConfidence,
	)
	if err != nil {
		return fmt.Errorf("sqlite insert trade: %w", err)
	}
	return nil
}

// ListTrades returns a ticker's journaled trades ordered by exit time.
// An empty ticker returns trades for all tickers.
func (s *Store) ListTrades(ctx context.Context, ticker string) ([]model.Trade, error) {
	query := `
		SELECT ticker, entry_ts, entry_price, exit_ts, exit_price, qty,
			pnl, pnl_pct, holding_days, close_reason, confidence
		FROM trades
	`
	args := []interface{}{}
	if ticker != "" {
		query += ` WHERE ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY exit_ts ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var entryTS, exitTS int64
		var reason string
		if err := rows.Scan(&t.Ticker, &entryTS, &t.EntryPrice, &exitTS, &t.ExitPrice, &t.Qty,
			&t.PnL, &t.PnLPct, &t.HoldingDays, &reason, &t.MLConfidence); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		t.EntryDate = time.Unix(entryTS, 0).UTC()
		t.ExitDate = time.Unix(exitTS, 0).UTC()
		t.CloseReason = model.CloseReason(reason)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
