// Package model defines the core data types shared across the system:
// daily price bars, indicator snapshots, signals, positions, and trades.
package model

import (
	"encoding/json"
	"time"
)

// PriceBar represents one daily OHLCV bar for a single ticker.
// Bars are immutable once recorded; a ticker's series is ordered by
// strictly increasing Date with no duplicates.
type PriceBar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"` // trading day (UTC, midnight-aligned)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Key returns a unique key for this bar: "ticker@yyyy-mm-dd".
func (b *PriceBar) Key() string {
	return b.Ticker + "@" + b.Date.Format("2006-01-02")
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *PriceBar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}
