package backtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"algotradingv1/internal/indicator"
	"algotradingv1/internal/marketdata"
	"algotradingv1/internal/mlscore"
	"algotradingv1/internal/model"
	"algotradingv1/internal/position"
	"algotradingv1/internal/strategy"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// snapSeries builds synthetic snapshots: step i carries close[i], rsi[i]
// and the MA pair from mas[i] (nil entries stay unavailable).
type step struct {
	close   float64
	rsi     float64
	maShort float64
	maLong  float64
	warm    bool // false = indicators not yet available
}

func synth(ticker string, steps []step) []model.IndicatorSnapshot {
	snaps := make([]model.IndicatorSnapshot, len(steps))
	for i, st := range steps {
		s := model.IndicatorSnapshot{
			Ticker: ticker,
			Date:   day0.AddDate(0, 0, i),
			Close:  st.close,
		}
		if st.warm {
			s.RSI = model.Avail(st.rsi)
			s.MAShort = model.Avail(st.maShort)
			s.MALong = model.Avail(st.maLong)
		}
		snaps[i] = s
	}
	return snaps
}

func testEngine() *Engine {
	return NewEngine(Config{
		Rule:    strategy.NewRSIMACrossover(30, 70),
		Tracker: position.Config{Sizing: position.FixedShares(10)},
		Series:  indicator.DefaultSeriesConfig(),
	})
}

func TestRun_GoldenCrossFiresOnce(t *testing.T) {
	// One golden cross at step 3; the short MA then stays above the long
	// MA for many steps. Exactly one position must open.
	steps := []step{
		{close: 100, rsi: 50, maShort: 98, maLong: 100, warm: true},
		{close: 100, rsi: 50, maShort: 99, maLong: 100, warm: true},
		{close: 100, rsi: 50, maShort: 100, maLong: 100, warm: true},
		{close: 101, rsi: 50, maShort: 101, maLong: 100, warm: true}, // cross
		{close: 102, rsi: 50, maShort: 102, maLong: 100, warm: true},
		{close: 103, rsi: 50, maShort: 103, maLong: 100, warm: true},
		{close: 104, rsi: 50, maShort: 104, maLong: 100, warm: true},
	}

	trades, _, err := testEngine().Run(context.Background(), "SBIN", synth("SBIN", steps))
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected exactly 1 trade, got %d", len(trades))
	}
	if !trades[0].EntryDate.Equal(day0.AddDate(0, 0, 3)) {
		t.Errorf("entry at %s, want the crossing step (day 3)", trades[0].EntryDate.Format("2006-01-02"))
	}
	if trades[0].EntryPrice != 101 {
		t.Errorf("entry price = %.2f, want close at cross 101", trades[0].EntryPrice)
	}
	if trades[0].CloseReason != model.CloseByEndOfData {
		t.Errorf("still-open position must be marked end_of_data, got %s", trades[0].CloseReason)
	}
}

func TestRun_EndOfDataForceClose(t *testing.T) {
	steps := []step{
		{close: 100, rsi: 40, maShort: 100, maLong: 100, warm: true},
		{close: 100, rsi: 25, maShort: 100, maLong: 100, warm: true}, // oversold buy
		{close: 105, rsi: 50, maShort: 101, maLong: 100, warm: true},
		{close: 112, rsi: 55, maShort: 102, maLong: 100, warm: true}, // series ends long
	}

	trades, summary, err := testEngine().Run(context.Background(), "SBIN", synth("SBIN", steps))
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if tr.CloseReason != model.CloseByEndOfData {
		t.Errorf("CloseReason = %s, want end_of_data", tr.CloseReason)
	}
	if tr.ExitPrice != 112 {
		t.Errorf("ExitPrice = %.2f, want last close 112", tr.ExitPrice)
	}
	if tr.PnLPct != 12.0 {
		t.Errorf("PnLPct = %.2f, want 12.0", tr.PnLPct)
	}
	if summary.NumTrades != 1 {
		t.Errorf("summary NumTrades = %d", summary.NumTrades)
	}
}

func TestRun_SignalCloseVsForceCloseDistinguished(t *testing.T) {
	steps := []step{
		{close: 100, rsi: 40, maShort: 100, maLong: 100, warm: true},
		{close: 100, rsi: 25, maShort: 100, maLong: 100, warm: true}, // buy
		{close: 110, rsi: 75, maShort: 101, maLong: 100, warm: true}, // overbought sell
		{close: 110, rsi: 50, maShort: 101, maLong: 100, warm: true},
	}
	trades, _, err := testEngine().Run(context.Background(), "SBIN", synth("SBIN", steps))
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].CloseReason != model.CloseBySignal {
		t.Errorf("CloseReason = %s, want signal", trades[0].CloseReason)
	}
}

func TestRun_WarmupScenario(t *testing.T) {
	// Spec-shaped scenario: 60 steps, RSI drops to 25 on day 10 while the
	// MAs are still warming up, MAs become available at day 50, a golden
	// cross occurs on day 55. The only BUY must fire at day 55.
	steps := make([]step, 60)
	for i := range steps {
		st := step{close: 100, rsi: 50}
		if i == 10 {
			st.rsi = 25 // oversold, but warm-up incomplete
		}
		if i >= 50 {
			st.warm = true
			st.maShort, st.maLong = 99, 100
			if i >= 55 {
				st.maShort = 101 // cross at day 55
			}
		}
		steps[i] = st
	}

	trades, _, err := testEngine().Run(context.Background(), "SBIN", synth("SBIN", steps))
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if !trades[0].EntryDate.Equal(day0.AddDate(0, 0, 55)) {
		t.Errorf("entry at %s, want day 55", trades[0].EntryDate.Format("2006-01-02"))
	}
}

func TestRun_Deterministic(t *testing.T) {
	// A real end-to-end series through the indicator builder: a slow
	// decline into oversold territory, then a recovery.
	closes := make([]float64, 120)
	for i := range closes {
		switch {
		case i < 60:
			closes[i] = 200 - float64(i)
		default:
			closes[i] = 140 + float64(i-60)*1.5
		}
	}
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{Ticker: "SBIN", Date: day0.AddDate(0, 0, i), Close: c}
	}
	snaps := indicator.BuildSnapshots(bars, indicator.DefaultSeriesConfig())

	e := testEngine()
	first, _, err := e.Run(context.Background(), "SBIN", snaps)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := e.Run(context.Background(), "SBIN", snaps)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Fatal("two runs over identical inputs produced different ledgers")
	}
}

func TestRun_ScorerGatesEntries(t *testing.T) {
	steps := []step{
		{close: 100, rsi: 40, maShort: 100, maLong: 100, warm: true},
		{close: 100, rsi: 25, maShort: 100, maLong: 100, warm: true}, // buy, gated
		{close: 100, rsi: 25, maShort: 100, maLong: 100, warm: true}, // buy, gated
	}

	e := NewEngine(Config{
		Rule:    strategy.NewRSIMACrossover(30, 70),
		Tracker: position.Config{Sizing: position.FixedShares(1), MinConfidence: 0.6},
		Series:  indicator.DefaultSeriesConfig(),
		Scorer:  mlscore.Fixed{Confidence: 0.4},
	})
	trades, summary, err := e.Run(context.Background(), "SBIN", synth("SBIN", steps))
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 0 {
		t.Fatalf("low-confidence buys must be gated, got %d trades", len(trades))
	}
	if summary.WinRatePct.Valid {
		t.Error("win rate with zero trades must be undefined")
	}
}

// fakeProvider serves canned series and errors per ticker.
type fakeProvider struct {
	series map[string][]model.PriceBar
}

func (f *fakeProvider) Daily(ctx context.Context, ticker string, from, to time.Time) ([]model.PriceBar, error) {
	bars, ok := f.series[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no data", marketdata.ErrDataUnavailable, ticker)
	}
	return bars, nil
}

func TestRunUniverse_IsolatesFailures(t *testing.T) {
	good := make([]model.PriceBar, 80)
	for i := range good {
		good[i] = model.PriceBar{Ticker: "TCS", Date: day0.AddDate(0, 0, i), Close: 100 + float64(i%7)}
	}
	provider := &fakeProvider{series: map[string][]model.PriceBar{
		"TCS":  good,
		"INFY": good[:10], // too short for MA50
	}}

	outcomes := testEngine().RunUniverse(context.Background(), provider,
		[]string{"TCS", "INFY", "SBIN"}, day0, day0.AddDate(0, 0, 80))

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Ticker != "TCS" || outcomes[0].Err != nil {
		t.Errorf("TCS should succeed: %+v", outcomes[0].Err)
	}
	if !errors.Is(outcomes[1].Err, marketdata.ErrDataUnavailable) {
		t.Errorf("INFY (short series): want ErrDataUnavailable, got %v", outcomes[1].Err)
	}
	if !errors.Is(outcomes[2].Err, marketdata.ErrDataUnavailable) {
		t.Errorf("SBIN (missing): want ErrDataUnavailable, got %v", outcomes[2].Err)
	}
}
