package position

import "math"

// SizingPolicy computes the share quantity for a new position at the
// given entry price. Returning 0 (or less) declines the entry.
type SizingPolicy func(price float64) int64

// FixedShares always buys the same share count.
func FixedShares(qty int64) SizingPolicy {
	return func(float64) int64 { return qty }
}

// FixedNotional buys as many whole shares as the notional amount covers
// (notional / price, floored). An entry is declined when the price exceeds
// the notional.
func FixedNotional(notional float64) SizingPolicy {
	return func(price float64) int64 {
		if price <= 0 {
			return 0
		}
		return int64(math.Floor(notional / price))
	}
}
