package strategy

import "algotradingv1/internal/model"

// RSIMACrossover is the default daily rule combining RSI thresholds with
// moving-average crossovers.
//
// Buy: RSI below the oversold threshold, or a golden cross (short MA
// crosses above long MA on this step).
// Sell: RSI above the overbought threshold, or a death cross.
//
// A cross fires only on the step where the ordering flips — holding the
// short MA above the long MA does not re-fire a buy every day. When both
// conditions hold at once, SELL wins: on conflicting indicators the rule
// prefers exiting over entering.
type RSIMACrossover struct {
	oversold   float64
	overbought float64
}

// NewRSIMACrossover creates the rule with the given RSI thresholds
// (typically 30 and 70).
func NewRSIMACrossover(oversold, overbought float64) *RSIMACrossover {
	return &RSIMACrossover{oversold: oversold, overbought: overbought}
}

func (r *RSIMACrossover) Name() string { return "RSI_MA_Crossover" }

func (r *RSIMACrossover) Evaluate(prev, curr model.IndicatorSnapshot) model.Signal {
	// Incomplete data: cannot act during indicator warm-up, even if RSI
	// alone already looks oversold.
	if !prev.StrategyReady() || !curr.StrategyReady() {
		return model.SignalHold
	}

	goldenCross := prev.MAShort.Value <= prev.MALong.Value && curr.MAShort.Value > curr.MALong.Value
	deathCross := prev.MAShort.Value >= prev.MALong.Value && curr.MAShort.Value < curr.MALong.Value

	sell := curr.RSI.Value > r.overbought || deathCross
	buy := curr.RSI.Value < r.oversold || goldenCross

	switch {
	case sell:
		return model.SignalSell
	case buy:
		return model.SignalBuy
	default:
		return model.SignalHold
	}
}
