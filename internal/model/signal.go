package model

// Signal is the verdict of a strategy rule for one time step.
// It is a pure output with no memory of prior signals.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)
