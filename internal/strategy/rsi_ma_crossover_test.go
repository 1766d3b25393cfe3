package strategy

import (
	"testing"
	"time"

	"algotradingv1/internal/model"
)

func snap(day int, rsi, maShort, maLong float64) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Ticker:  "SBIN",
		Date:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Close:   100,
		RSI:     model.Avail(rsi),
		MAShort: model.Avail(maShort),
		MALong:  model.Avail(maLong),
	}
}

func TestEvaluate_Table(t *testing.T) {
	rule := NewRSIMACrossover(30, 70)

	cases := []struct {
		name string
		prev model.IndicatorSnapshot
		curr model.IndicatorSnapshot
		want model.Signal
	}{
		{
			name: "rsi oversold buys",
			prev: snap(0, 40, 100, 105),
			curr: snap(1, 25, 100, 105),
			want: model.SignalBuy,
		},
		{
			name: "golden cross buys",
			prev: snap(0, 50, 99, 100),
			curr: snap(1, 50, 101, 100),
			want: model.SignalBuy,
		},
		{
			name: "short MA merely above long does not re-fire",
			prev: snap(0, 50, 101, 100),
			curr: snap(1, 50, 102, 100),
			want: model.SignalHold,
		},
		{
			name: "rsi overbought sells",
			prev: snap(0, 60, 105, 100),
			curr: snap(1, 75, 105, 100),
			want: model.SignalSell,
		},
		{
			name: "death cross sells",
			prev: snap(0, 50, 100, 99),
			curr: snap(1, 50, 98, 99),
			want: model.SignalSell,
		},
		{
			name: "short MA merely below long does not re-fire",
			prev: snap(0, 50, 98, 100),
			curr: snap(1, 50, 97, 100),
			want: model.SignalHold,
		},
		{
			name: "neutral holds",
			prev: snap(0, 50, 100, 100),
			curr: snap(1, 50, 100, 100),
			want: model.SignalHold,
		},
		{
			name: "conflicting buy and sell resolves to sell",
			// Oversold RSI (buy) and a death cross (sell) in the same step
			prev: snap(0, 40, 100, 99),
			curr: snap(1, 25, 98, 99),
			want: model.SignalSell,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rule.Evaluate(tc.prev, tc.curr)
			if got != tc.want {
				t.Errorf("Evaluate() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestEvaluate_WarmupHolds(t *testing.T) {
	rule := NewRSIMACrossover(30, 70)

	// RSI deeply oversold but the long MA hasn't warmed up yet
	prev := snap(0, 25, 100, 0)
	prev.MALong = model.Unavail()
	curr := snap(1, 25, 100, 0)
	curr.MALong = model.Unavail()

	if got := rule.Evaluate(prev, curr); got != model.SignalHold {
		t.Errorf("warm-up step: expected HOLD, got %s", got)
	}

	// Any single missing indicator on either side holds
	full := snap(2, 25, 100, 105)
	noRSI := snap(3, 0, 100, 105)
	noRSI.RSI = model.Unavail()
	if got := rule.Evaluate(full, noRSI); got != model.SignalHold {
		t.Errorf("missing curr RSI: expected HOLD, got %s", got)
	}
	if got := rule.Evaluate(noRSI, full); got != model.SignalHold {
		t.Errorf("missing prev RSI: expected HOLD, got %s", got)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	rule := NewRSIMACrossover(30, 70)
	prev := snap(0, 28, 99, 100)
	curr := snap(1, 29, 101, 100)

	first := rule.Evaluate(prev, curr)
	for i := 0; i < 100; i++ {
		if got := rule.Evaluate(prev, curr); got != first {
			t.Fatalf("iteration %d: Evaluate not deterministic: %s vs %s", i, got, first)
		}
	}
}
