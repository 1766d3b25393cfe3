package model

import "time"

// Position represents a tracked long position in one ticker.
// There is at most one open Position per ticker at any time; it is owned
// exclusively by that ticker's tracker for the lifetime of a run.
type Position struct {
	Ticker     string    `json:"ticker"`
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	Qty        int64     `json:"qty"`
	Open       bool      `json:"open"`
	ExitDate   time.Time `json:"exit_date,omitempty"`
	ExitPrice  float64   `json:"exit_price,omitempty"`
}

// CloseReason distinguishes how a position was closed.
type CloseReason string

const (
	// CloseBySignal means a SELL signal closed the position.
	CloseBySignal CloseReason = "signal"
	// CloseByEndOfData means the backtest force-closed the position at the
	// last available bar so the summary is not biased by unrealized P&L.
	CloseByEndOfData CloseReason = "end_of_data"
)

// Trade is a finalized ledger row: a closed Position plus derived fields.
// Rows are append-only and never mutated once written.
type Trade struct {
	Ticker      string      `json:"ticker"`
	EntryDate   time.Time   `json:"entry_date"`
	EntryPrice  float64     `json:"entry_price"`
	ExitDate    time.Time   `json:"exit_date"`
	ExitPrice   float64     `json:"exit_price"`
	Qty         int64       `json:"qty"`
	PnL         float64     `json:"pnl"`
	PnLPct      float64     `json:"pnl_pct"`
	HoldingDays int         `json:"holding_days"`
	CloseReason CloseReason `json:"close_reason"`

	// Context captured at entry, carried through for export and alerts.
	MLConfidence float64  `json:"ml_confidence"`
	EntryRSI     OptValue `json:"entry_rsi"`
	ExitRSI      OptValue `json:"exit_rsi"`
}
