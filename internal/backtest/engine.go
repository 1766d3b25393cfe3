// Package backtest replays historical daily series through the strategy
// rule and position tracker, producing a trade ledger and performance
// summary per ticker.
//
// A run is deterministic: identical inputs and configuration always yield
// an identical ledger, which regression tests and ML feature backtests
// rely on.
package backtest

import (
	"context"
	"fmt"

	"algotradingv1/internal/indicator"
	"algotradingv1/internal/mlscore"
	"algotradingv1/internal/model"
	"algotradingv1/internal/position"
	"algotradingv1/internal/strategy"
)

// Config assembles the engine's collaborators and knobs.
type Config struct {
	Rule    strategy.Rule
	Tracker position.Config
	Series  indicator.SeriesConfig

	// Scorer is optional; nil disables ML scoring entirely (the gate then
	// sees confidence 0, which a disabled threshold accepts).
	Scorer mlscore.Scorer
}

// Engine drives a Tracker across an entire historical series.
type Engine struct {
	cfg Config
}

// NewEngine creates a backtest engine.
func NewEngine(cfg Config) *Engine {
	if cfg.Rule == nil {
		cfg.Rule = strategy.NewRSIMACrossover(30, 70)
	}
	return &Engine{cfg: cfg}
}

// MinBars returns the shortest series the engine accepts: the longest
// indicator window plus one bar, so at least one snapshot pair is fully
// warmed up.
func (e *Engine) MinBars() int {
	min := e.cfg.Series.MALongWindow
	if e.cfg.Series.MAShortWindow > min {
		min = e.cfg.Series.MAShortWindow
	}
	if e.cfg.Series.RSIPeriod+1 > min {
		min = e.cfg.Series.RSIPeriod + 1
	}
	return min + 1
}

// Run replays one ticker's series in strict chronological order.
//
// snaps must be aligned one-to-one with bars (use indicator.BuildSnapshots).
// Any position still open at the end of the series is force-closed at the
// last close and marked closed-by-end-of-data, so the summary carries no
// unrealized P&L.
func (e *Engine) Run(ctx context.Context, ticker string, snaps []model.IndicatorSnapshot) ([]model.Trade, model.PerformanceSummary, error) {
	if len(snaps) < 2 {
		return nil, model.PerformanceSummary{}, fmt.Errorf("backtest: %s: need at least 2 snapshots, got %d", ticker, len(snaps))
	}

	tracker := position.NewTracker(ticker, e.cfg.Tracker)
	ledger := make([]model.Trade, 0, 16)

	for i := 1; i < len(snaps); i++ {
		select {
		case <-ctx.Done():
			return nil, model.PerformanceSummary{}, ctx.Err()
		default:
		}

		prev, curr := snaps[i-1], snaps[i]
		sig := e.cfg.Rule.Evaluate(prev, curr)

		confidence := 0.0
		if e.cfg.Scorer != nil && sig == model.SignalBuy && tracker.State() == position.Flat {
			if f, ok := mlscore.BuildFeatures(prev, curr); ok {
				c, err := e.cfg.Scorer.Score(ctx, f)
				if err != nil {
					return nil, model.PerformanceSummary{}, fmt.Errorf("backtest: %s: score step %d: %w", ticker, i, err)
				}
				confidence = c
			}
		}

		trans, err := tracker.Apply(sig, curr, confidence)
		if err != nil {
			// Invariant violation: abort this ticker's run loudly
			return nil, model.PerformanceSummary{}, fmt.Errorf("backtest: %s: step %d: %w", ticker, i, err)
		}
		if trans.Closed != nil {
			ledger = append(ledger, *trans.Closed)
		}
	}

	trade, err := tracker.ForceClose(snaps[len(snaps)-1])
	if err != nil {
		return nil, model.PerformanceSummary{}, fmt.Errorf("backtest: %s: force close: %w", ticker, err)
	}
	if trade != nil {
		ledger = append(ledger, *trade)
	}

	return ledger, Summarize(ticker, ledger), nil
}
