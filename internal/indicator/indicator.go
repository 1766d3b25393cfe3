// Package indicator provides technical indicator calculations over daily
// price bars.
//
// All indicators implement the Indicator interface, receiving closes in
// chronological order and producing float64 values. Each indicator reports
// Ready=false during its warm-up window; callers must treat a not-ready
// value as unavailable rather than zero.
package indicator

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_20", "RSI_14").
	Name() string

	// Update feeds the next daily close and recalculates.
	Update(close float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}
