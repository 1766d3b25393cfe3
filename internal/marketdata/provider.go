// Package marketdata supplies ordered daily price series for tickers.
//
// A Provider either returns a valid series or fails with
// ErrDataUnavailable; the engines never see partially valid data. Series
// validation (ordering, duplicates, minimum length) lives here so every
// provider implementation is held to the same contract.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"algotradingv1/internal/model"
)

// ErrDataUnavailable indicates the upstream price series is missing, too
// short for the longest indicator window, or malformed. Per-ticker runs
// that hit it are skipped; other tickers continue.
var ErrDataUnavailable = errors.New("marketdata: data unavailable")

// Provider supplies daily bars for a ticker over a date range.
type Provider interface {
	// Daily returns the ticker's daily bars in [from, to], ordered by
	// strictly increasing date. Implementations must return
	// ErrDataUnavailable (wrapped) when the series cannot be served.
	Daily(ctx context.Context, ticker string, from, to time.Time) ([]model.PriceBar, error)
}

// ValidateSeries checks the core series invariants: non-empty, at least
// minBars long, and strictly increasing duplicate-free dates.
func ValidateSeries(ticker string, bars []model.PriceBar, minBars int) error {
	if len(bars) == 0 {
		return fmt.Errorf("%w: %s: empty series", ErrDataUnavailable, ticker)
	}
	if len(bars) < minBars {
		return fmt.Errorf("%w: %s: %d bars, need at least %d for the longest indicator window",
			ErrDataUnavailable, ticker, len(bars), minBars)
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return fmt.Errorf("%w: %s: non-increasing date at index %d (%s -> %s)",
				ErrDataUnavailable, ticker, i,
				bars[i-1].Date.Format("2006-01-02"), bars[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}
