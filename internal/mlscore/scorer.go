// Package mlscore wraps the external directional classifier behind a
// narrow capability interface. The engine treats the model strictly as a
// black box producing a confidence in [0, 1]; no model family is assumed.
package mlscore

import (
	"context"

	"algotradingv1/internal/model"
)

// Features is the input vector for one evaluation step, derived from the
// current and previous indicator snapshots.
type Features struct {
	Ticker string  `json:"ticker"`
	RSI    float64 `json:"rsi"`
	// RSIChange is the one-step RSI delta.
	RSIChange float64 `json:"rsi_change"`
	// MAGapPct is (ma_short − ma_long) / ma_long × 100.
	MAGapPct float64 `json:"ma_gap_pct"`
	// ReturnPct is the one-step close-to-close return.
	ReturnPct float64 `json:"return_pct"`
	// PriceAboveMAShort is 1 when close > ma_short, else 0.
	PriceAboveMAShort float64 `json:"price_above_ma_short"`
}

// Scorer produces a probability that price moves up next period.
type Scorer interface {
	// Score returns a confidence in [0, 1].
	Score(ctx context.Context, f Features) (float64, error)
}

// BuildFeatures derives the feature vector from a consecutive snapshot
// pair. Both snapshots must be strategy-ready; indicators still warming
// up would poison the feature values.
func BuildFeatures(prev, curr model.IndicatorSnapshot) (Features, bool) {
	if !prev.StrategyReady() || !curr.StrategyReady() {
		return Features{}, false
	}

	f := Features{
		Ticker:    curr.Ticker,
		RSI:       curr.RSI.Value,
		RSIChange: curr.RSI.Value - prev.RSI.Value,
	}
	if curr.MALong.Value != 0 {
		f.MAGapPct = (curr.MAShort.Value - curr.MALong.Value) / curr.MALong.Value * 100.0
	}
	if prev.Close != 0 {
		f.ReturnPct = (curr.Close - prev.Close) / prev.Close * 100.0
	}
	if curr.Close > curr.MAShort.Value {
		f.PriceAboveMAShort = 1
	}
	return f, true
}

// Disabled is the no-scorer scorer: always returns 0, which passes a
// disabled gate (threshold 0) and fails any configured one.
type Disabled struct{}

func (Disabled) Score(ctx context.Context, f Features) (float64, error) { return 0, nil }

// Fixed returns the same confidence for every step. Used in tests and for
// dry runs with the gate forced open or shut.
type Fixed struct {
	Confidence float64
}

func (s Fixed) Score(ctx context.Context, f Features) (float64, error) { return s.Confidence, nil }
