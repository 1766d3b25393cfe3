package backtest

import "algotradingv1/internal/model"

// Summarize computes the performance summary for one ticker's ledger.
// The ledger must be in entry-date order (Run appends in close order,
// which for a single long-only tracker is also entry order).
//
// Total return compounds per-trade returns rather than summing them, and
// max drawdown comes from replaying the equity curve trade by trade. Win
// rate with zero trades is reported as explicitly undefined, never NaN.
func Summarize(ticker string, trades []model.Trade) model.PerformanceSummary {
	s := model.PerformanceSummary{
		Ticker:    ticker,
		NumTrades: len(trades),
	}
	if len(trades) == 0 {
		return s
	}

	equity := 1.0
	peak := 1.0
	maxDrawdown := 0.0
	wins := 0
	holdingDays := 0

	for _, t := range trades {
		equity *= 1.0 + t.PnLPct/100.0
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak * 100.0; dd > maxDrawdown {
			maxDrawdown = dd
		}
		if t.PnL > 0 {
			wins++
		}
		holdingDays += t.HoldingDays
	}

	s.TotalReturnPct = (equity - 1.0) * 100.0
	s.WinRatePct = model.Avail(float64(wins) / float64(len(trades)) * 100.0)
	s.AvgHoldingDays = float64(holdingDays) / float64(len(trades))
	s.MaxDrawdownPct = maxDrawdown
	return s
}

// SummarizeAll aggregates ledgers across every ticker into one summary
// row labeled "ALL". Trades are treated as independent compounding legs
// in the order given.
func SummarizeAll(trades []model.Trade) model.PerformanceSummary {
	return Summarize("ALL", trades)
}
