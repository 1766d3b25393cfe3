package model

// PerformanceSummary aggregates a ticker's trade ledger.
// It is always recomputed from the ledger on demand, never incrementally
// mutated, so partial updates cannot drift.
type PerformanceSummary struct {
	Ticker         string   `json:"ticker"`
	TotalReturnPct float64  `json:"total_return_pct"`
	WinRatePct     OptValue `json:"win_rate_pct"` // undefined with zero trades
	NumTrades      int      `json:"num_trades"`
	AvgHoldingDays float64  `json:"avg_holding_days"`
	MaxDrawdownPct float64  `json:"max_drawdown_pct"`
}
