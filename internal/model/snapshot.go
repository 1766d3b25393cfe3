package model

import "time"

// OptValue is an indicator value that may not be available yet.
// Indicators need a warm-up window (e.g. the first 49 bars of a 50-day MA
// have no defined value); those steps carry Valid=false instead of a
// silently wrong zero.
type OptValue struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Avail constructs an available OptValue.
func Avail(v float64) OptValue {
	return OptValue{Value: v, Valid: true}
}

// Unavail is the explicit "not yet available" marker.
func Unavail() OptValue {
	return OptValue{}
}

// IndicatorSnapshot is the aligned per-date indicator view of one bar.
// There is exactly one snapshot per PriceBar index. RSI, MAShort and
// MALong are required by the strategy; MACD and the Bollinger bounds are
// optional extras carried for export and ML features.
type IndicatorSnapshot struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`

	RSI     OptValue `json:"rsi"`
	MAShort OptValue `json:"ma_short"`
	MALong  OptValue `json:"ma_long"`

	MACD       OptValue `json:"macd,omitempty"`
	MACDSignal OptValue `json:"macd_signal,omitempty"`
	BollUpper  OptValue `json:"boll_upper,omitempty"`
	BollLower  OptValue `json:"boll_lower,omitempty"`
}

// StrategyReady reports whether every indicator the signal rule needs is
// available. The rule must not act during warm-up.
func (s *IndicatorSnapshot) StrategyReady() bool {
	return s.RSI.Valid && s.MAShort.Valid && s.MALong.Valid
}
