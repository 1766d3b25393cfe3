// Package strategy defines signal rules: pure functions mapping a pair of
// consecutive indicator snapshots to a BUY/SELL/HOLD verdict.
//
// Rules hold no state and never see more than the two-snapshot window, so
// a backtest replay and a live step through the same rule are guaranteed
// to agree.
package strategy

import "algotradingv1/internal/model"

// Rule is the interface all signal rules implement.
//
// Evaluate receives two consecutive snapshots for the same ticker, with
// curr strictly after prev. It must be deterministic and side-effect free:
// identical inputs always yield an identical Signal.
type Rule interface {
	// Name returns the unique name of the rule.
	Name() string

	// Evaluate maps one time step to a signal verdict.
	Evaluate(prev, curr model.IndicatorSnapshot) model.Signal
}
