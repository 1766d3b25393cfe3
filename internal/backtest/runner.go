package backtest

import (
	"context"
	"log"
	"sync"
	"time"

	"algotradingv1/internal/indicator"
	"algotradingv1/internal/marketdata"
	"algotradingv1/internal/model"
)

// Outcome is the per-ticker result of a universe run. Err is non-nil when
// the ticker was skipped (data unavailable) or its run aborted; other
// tickers are unaffected.
type Outcome struct {
	Ticker  string
	Trades  []model.Trade
	Summary model.PerformanceSummary
	Err     error
}

// RunUniverse backtests every ticker independently. Series are fetched
// concurrently (the only blocking I/O), then each ticker replays on its
// own: no cross-ticker interaction, no shared capital pool. Outcomes come
// back in the input ticker order regardless of fetch completion order.
func (e *Engine) RunUniverse(ctx context.Context, provider marketdata.Provider, tickers []string, from, to time.Time) []Outcome {
	outcomes := make([]Outcome, len(tickers))

	var wg sync.WaitGroup
	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			outcomes[i] = e.runOne(ctx, provider, ticker, from, to)
		}(i, ticker)
	}
	wg.Wait()

	for _, o := range outcomes {
		if o.Err != nil {
			log.Printf("[backtest] %s: skipped: %v", o.Ticker, o.Err)
		}
	}
	return outcomes
}

func (e *Engine) runOne(ctx context.Context, provider marketdata.Provider, ticker string, from, to time.Time) Outcome {
	o := Outcome{Ticker: ticker}

	bars, err := provider.Daily(ctx, ticker, from, to)
	if err != nil {
		o.Err = err
		return o
	}
	if err := marketdata.ValidateSeries(ticker, bars, e.MinBars()); err != nil {
		o.Err = err
		return o
	}

	snaps := indicator.BuildSnapshots(bars, e.cfg.Series)
	o.Trades, o.Summary, o.Err = e.Run(ctx, ticker, snaps)
	return o
}
